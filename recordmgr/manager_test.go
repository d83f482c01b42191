package recordmgr

import (
	"bytes"
	"testing"

	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/strategy"
)

func newTestManager(t *testing.T, pageSize int, strat strategy.Strategy, translator idtranslate.Translator) (*Manager, *pageio.BoltContainer) {
	t.Helper()
	c, err := pageio.Open(t.TempDir(), "pages.bolt", pageSize)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return New(c, strat, translator, 4), c
}

func TestInsertGetIdentity(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	id, err := m.Insert([]byte("hello world"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("Get = %q, want %q", got, "hello world")
	}
}

func TestInsertGetMapTranslator(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.NewMap())
	idA, err := m.Insert([]byte("aaa"))
	if err != nil {
		t.Fatalf("Insert a: %v", err)
	}
	idB, err := m.Insert([]byte("bbb"))
	if err != nil {
		t.Fatalf("Insert b: %v", err)
	}
	if idA.Handle == idB.Handle {
		t.Fatalf("distinct records got the same handle %d", idA.Handle)
	}
	got, err := m.Get(idB)
	if err != nil || !bytes.Equal(got, []byte("bbb")) {
		t.Fatalf("Get(idB) = (%q,%v), want (bbb,nil)", got, err)
	}
}

func TestUpdateInPlaceGrowAndShrink(t *testing.T) {
	m, _ := newTestManager(t, 512, &strategy.FirstFit{}, idtranslate.Identity{})
	id, err := m.Insert([]byte("short"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := m.Update(id, []byte("a slightly longer value")); err != nil {
		t.Fatalf("Update grow: %v", err)
	}
	got, err := m.Get(id)
	if err != nil || !bytes.Equal(got, []byte("a slightly longer value")) {
		t.Fatalf("Get after grow = (%q,%v)", got, err)
	}
	if err := m.Update(id, []byte("x")); err != nil {
		t.Fatalf("Update shrink: %v", err)
	}
	got, err = m.Get(id)
	if err != nil || !bytes.Equal(got, []byte("x")) {
		t.Fatalf("Get after shrink = (%q,%v)", got, err)
	}
}

func TestUpdateForcesRelocationAndLink(t *testing.T) {
	pageSize := 96
	m, _ := newTestManager(t, pageSize, &strategy.FirstFit{}, idtranslate.Identity{})
	id, err := m.Insert([]byte("x"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Fill the rest of the first page with other records so the
	// update below has no room to grow in place.
	for i := 0; i < 3; i++ {
		if _, err := m.Insert(bytes.Repeat([]byte("y"), 15)); err != nil {
			t.Fatalf("filler insert %d: %v", i, err)
		}
	}
	big := bytes.Repeat([]byte("z"), 40)
	if err := m.Update(id, big); err != nil {
		t.Fatalf("Update relocate: %v", err)
	}
	got, err := m.Get(id)
	if err != nil || !bytes.Equal(got, big) {
		t.Fatalf("Get after relocate = (%q,%v), want (%q,nil)", got, err, big)
	}
}

func TestRemoveFreesEmptyPage(t *testing.T) {
	m, c := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	id, err := m.Insert([]byte("solo"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if m.NumberOfPages() != 1 {
		t.Fatalf("NumberOfPages = %d, want 1", m.NumberOfPages())
	}
	if err := m.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if m.NumberOfPages() != 0 {
		t.Fatalf("NumberOfPages after remove = %d, want 0", m.NumberOfPages())
	}
	if _, err := m.Get(id); err == nil {
		t.Fatalf("Get after remove should fail")
	}
	_ = c
}

func TestReserveThenFlushOnRead(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	first, err := m.Insert([]byte("seed"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id, err := m.Reserve(func() ([]byte, error) { return []byte("reserved"), nil })
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	got, err := m.Get(id)
	if err != nil || !bytes.Equal(got, []byte("reserved")) {
		t.Fatalf("Get reserved = (%q,%v)", got, err)
	}
	_, err = m.Get(first)
	if err != nil {
		t.Fatalf("Get seed after reserve flush: %v", err)
	}
}

func TestIDsEnumeratesIdentityViaPages(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	want := map[string]bool{}
	for _, s := range []string{"a", "bb", "ccc"} {
		id, err := m.Insert([]byte(s))
		if err != nil {
			t.Fatalf("Insert %q: %v", s, err)
		}
		_ = id
		want[s] = true
	}
	ids, err := m.IDs()
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(IDs()) = %d, want 3", len(ids))
	}
	for _, id := range ids {
		data, err := m.Get(id)
		if err != nil {
			t.Fatalf("Get(%v): %v", id, err)
		}
		if !want[string(data)] {
			t.Fatalf("unexpected record %q", data)
		}
	}
}

func TestCheckConsistencyPasses(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	for _, s := range []string{"a", "bb", "ccc"} {
		if _, err := m.Insert([]byte(s)); err != nil {
			t.Fatalf("Insert %q: %v", s, err)
		}
	}
	if err := m.CheckConsistency(); err != nil {
		t.Fatalf("CheckConsistency: %v", err)
	}
}

func TestClearRemovesAllPages(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	for _, s := range []string{"a", "bb", "ccc"} {
		if _, err := m.Insert([]byte(s)); err != nil {
			t.Fatalf("Insert %q: %v", s, err)
		}
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if m.NumberOfPages() != 0 || m.Size() != 0 {
		t.Fatalf("after Clear: pages=%d size=%d, want 0/0", m.NumberOfPages(), m.Size())
	}
}

func TestWriteLoadManagerRoundTrip(t *testing.T) {
	m, c := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	var ids []ID
	for _, s := range []string{"a", "bb", "ccc"} {
		id, err := m.Insert([]byte(s))
		if err != nil {
			t.Fatalf("Insert %q: %v", s, err)
		}
		ids = append(ids, id)
	}

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := LoadManager(c, &strategy.FirstFit{}, idtranslate.Identity{}, 4, &buf)
	if err != nil {
		t.Fatalf("LoadManager: %v", err)
	}
	if loaded.NumberOfPages() != m.NumberOfPages() || loaded.Size() != m.Size() {
		t.Fatalf("LoadManager pages/size = %d/%d, want %d/%d", loaded.NumberOfPages(), loaded.Size(), m.NumberOfPages(), m.Size())
	}
	for i, want := range []string{"a", "bb", "ccc"} {
		got, err := loaded.Get(ids[i])
		if err != nil || !bytes.Equal(got, []byte(want)) {
			t.Fatalf("Get(%v) = (%q,%v), want (%q,nil)", ids[i], got, err, want)
		}
	}
	if err := loaded.CheckConsistency(); err != nil {
		t.Fatalf("CheckConsistency: %v", err)
	}
}

func TestLoadManagerRejectsMismatchedContainer(t *testing.T) {
	m, _ := newTestManager(t, 256, &strategy.FirstFit{}, idtranslate.Identity{})
	if _, err := m.Insert([]byte("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	otherC, err := pageio.Open(t.TempDir(), "other.bolt", 256)
	if err != nil {
		t.Fatalf("Open other container: %v", err)
	}
	defer otherC.Close()

	if _, err := LoadManager(otherC, &strategy.FirstFit{}, idtranslate.Identity{}, 4, &buf); err == nil {
		t.Fatalf("LoadManager against a different container should fail")
	}
}
