package pageio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sorenkrogh/recman/recerr"
)

func TestBoltContainerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "test.db", 128)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	id, err := c.Insert([]byte("hello"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 128 {
		t.Fatalf("Get returned %d bytes, want 128", len(got))
	}
	if !bytes.Equal(got[:5], []byte("hello")) {
		t.Fatalf("Get = %q, want hello prefix", got[:5])
	}

	if err := c.Update(id, []byte("world!")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = c.Get(id)
	if !bytes.Equal(got[:6], []byte("world!")) {
		t.Fatalf("Get after update = %q", got[:6])
	}

	if err := c.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Get(id); !errors.Is(err, recerr.NotFound) {
		t.Fatalf("Get after remove = %v, want NotFound", err)
	}
}

func TestBoltContainerOrdering(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "order.db", 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	var ids []PageID
	for i := 0; i < 5; i++ {
		id, err := c.Insert([]byte{byte(i)})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("PageIDs not increasing: %v", ids)
		}
	}
}

func TestBoltContainerStamp(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "stamp.db", 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s1, err := c.Stamp()
	if err != nil {
		t.Fatalf("Stamp: %v", err)
	}
	c.Close()

	c2, err := Open(dir, "stamp.db", 64)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	s2, err := c2.Stamp()
	if err != nil {
		t.Fatalf("Stamp after reopen: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("stamp changed across reopen: %v != %v", s1, s2)
	}
}
