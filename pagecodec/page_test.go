package pagecodec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sorenkrogh/recman/recerr"
)

func TestInsertGetRoundTrip(t *testing.T) {
	p := New(128)
	if err := p.InsertRecord([]byte("aaaaaaaaaa"), 0, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := p.InsertRecord([]byte("bbbbbbbbbbbbbbbbbbbb"), 1, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := p.InsertRecord([]byte("cccccccccccccccccccccccccccc"), 2, false); err != nil {
		t.Fatalf("insert: %v", err)
	}

	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(raw) > 128 {
		t.Fatalf("encoded size %d exceeds pageSize 128", len(raw))
	}

	p2, err := DecodeHeader(raw, 128)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if p2.SlotCount() != 3 {
		t.Fatalf("SlotCount = %d, want 3", p2.SlotCount())
	}
	if err := DecodeTail(p2, raw); err != nil {
		t.Fatalf("decode tail: %v", err)
	}
	data, isLink, err := p2.GetRecord(1)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if isLink {
		t.Fatalf("record 1 should not be a link")
	}
	if !bytes.Equal(data, []byte("bbbbbbbbbbbbbbbbbbbb")) {
		t.Fatalf("GetRecord(1) = %q", data)
	}
}

func TestFreeRecordNumberPolicy(t *testing.T) {
	p := New(256)
	nr, _ := p.GetFreeRecordNumber()
	if nr != 0 {
		t.Fatalf("first free recordNr = %d, want 0", nr)
	}
	if err := p.InsertRecord([]byte("x"), 5, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	nr, _ = p.GetFreeRecordNumber()
	if nr != 4 {
		t.Fatalf("free recordNr = %d, want 4 (min-1)", nr)
	}
	if err := p.InsertRecord([]byte("x"), 0, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	nr, _ = p.GetFreeRecordNumber()
	if nr != 6 {
		t.Fatalf("free recordNr = %d, want 6 (max+1, since min is 0)", nr)
	}
}

func TestRemoveShiftsOffsets(t *testing.T) {
	p := New(256)
	_ = p.InsertRecord([]byte("111"), 0, false)
	_ = p.InsertRecord([]byte("2222"), 1, false)
	_ = p.InsertRecord([]byte("33333"), 2, false)

	if err := p.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if p.SlotCount() != 2 {
		t.Fatalf("SlotCount after remove = %d, want 2", p.SlotCount())
	}
	data, _, err := p.GetRecord(2)
	if err != nil {
		t.Fatalf("get record 2: %v", err)
	}
	if !bytes.Equal(data, []byte("33333")) {
		t.Fatalf("GetRecord(2) after remove = %q", data)
	}
	if p.UsedBytes() != 8 {
		t.Fatalf("UsedBytes = %d, want 8", p.UsedBytes())
	}
}

func TestGetRecordAbsentIsStructuralError(t *testing.T) {
	p := New(64)
	_, _, err := p.GetRecord(0)
	if !errors.Is(err, recerr.StructuralError) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestInsertDuplicateRecordNrIsStructuralError(t *testing.T) {
	p := New(64)
	_ = p.InsertRecord([]byte("a"), 0, false)
	err := p.InsertRecord([]byte("b"), 0, false)
	if !errors.Is(err, recerr.StructuralError) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestFitsPredicate(t *testing.T) {
	p := New(32)
	if !p.Fits(10) {
		t.Fatalf("empty 32-byte page should fit a 10-byte record")
	}
	if p.Fits(1000) {
		t.Fatalf("32-byte page should not fit a 1000-byte record")
	}
}

func TestLinkRecordRoundTrip(t *testing.T) {
	p := New(64)
	if err := p.InsertRecord([]byte{1, 2, 3, 4}, 0, true); err != nil {
		t.Fatalf("insert link: %v", err)
	}
	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p2, err := DecodeHeader(raw, 64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := DecodeTail(p2, raw); err != nil {
		t.Fatalf("decode tail: %v", err)
	}
	_, isLink, err := p2.GetRecord(0)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !isLink {
		t.Fatalf("expected link slot")
	}
}
