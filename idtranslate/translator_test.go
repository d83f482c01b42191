package idtranslate

import (
	"bytes"
	"testing"

	"github.com/sorenkrogh/recman/pageio"
)

func TestIdentityRoundTrip(t *testing.T) {
	var tr Identity
	tid := pageio.TID{PageID: 7, RecordNr: 3}
	id := tr.Insert(tid)
	got, ok := tr.Query(id)
	if !ok || got != tid {
		t.Fatalf("Query = (%v,%v), want (%v,true)", got, ok, tid)
	}
	if !tr.UseLinks() {
		t.Fatalf("Identity.UseLinks() = false, want true")
	}
	if _, ok := tr.IDs(); ok {
		t.Fatalf("Identity.IDs() ok = true, want false (enumerate via pages)")
	}
}

func TestMapRoundTripAndRecycling(t *testing.T) {
	m := NewMap()
	tidA := pageio.TID{PageID: 1, RecordNr: 0}
	tidB := pageio.TID{PageID: 2, RecordNr: 0}
	tidC := pageio.TID{PageID: 3, RecordNr: 0}

	idA := m.Insert(tidA)
	idB := m.Insert(tidB)
	_ = idB

	got, ok := m.Query(idA)
	if !ok || got != tidA {
		t.Fatalf("Query(idA) = (%v,%v), want (%v,true)", got, ok, tidA)
	}

	m.Remove(idA)
	if _, ok := m.Query(idA); ok {
		t.Fatalf("Query(idA) after remove should fail")
	}

	idC := m.Insert(tidC)
	if idC.Handle != idA.Handle {
		t.Fatalf("recycled handle = %d, want smallest-available %d", idC.Handle, idA.Handle)
	}

	if m.UseLinks() {
		t.Fatalf("Map.UseLinks() = true, want false")
	}
}

func TestMapWriteReadRoundTrip(t *testing.T) {
	m := NewMap()
	m.Insert(pageio.TID{PageID: 1, RecordNr: 0})
	idB := m.Insert(pageio.TID{PageID: 2, RecordNr: 1})
	m.Remove(idB)
	m.Insert(pageio.TID{PageID: 3, RecordNr: 2})

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	reloaded, err := ReadMap(&buf)
	if err != nil {
		t.Fatalf("ReadMap: %v", err)
	}
	idsWant, _ := m.IDs()
	idsGot, _ := reloaded.IDs()
	if len(idsWant) != len(idsGot) {
		t.Fatalf("reloaded id count = %d, want %d", len(idsGot), len(idsWant))
	}
	for _, id := range idsWant {
		wantTID, _ := m.Query(id)
		gotTID, ok := reloaded.Query(id)
		if !ok || gotTID != wantTID {
			t.Fatalf("reloaded Query(%v) = (%v,%v), want (%v,true)", id, gotTID, ok, wantTID)
		}
	}
}
