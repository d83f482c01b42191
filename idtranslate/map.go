package idtranslate

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recerr"
)

// freeHeap is a min-heap of recycled handles so Map can hand out the
// smallest available id rather than always growing the generator.
type freeHeap []uint64

func (h freeHeap) Len() int            { return len(h) }
func (h freeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h freeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *freeHeap) Push(x any)         { *h = append(*h, x.(uint64)) }
func (h *freeHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Map is the translator whose external id is an opaque uint64 handle
// generated by a monotonic counter that recycles freed handles under
// a smallest-available policy. It never needs link records: moves
// update the handle→TID mapping directly.
type Map struct {
	byHandle map[uint64]pageio.TID
	next     uint64
	free     freeHeap
}

// NewMap returns an empty Map translator; its generator starts at 0.
func NewMap() *Map {
	return &Map{byHandle: make(map[uint64]pageio.TID)}
}

func (m *Map) allocate() uint64 {
	if len(m.free) > 0 {
		return heap.Pop(&m.free).(uint64)
	}
	h := m.next
	m.next++
	return h
}

func (m *Map) Insert(tid pageio.TID) ExternalID {
	h := m.allocate()
	m.byHandle[h] = tid
	return FromHandle(h)
}

func (m *Map) Query(id ExternalID) (pageio.TID, bool) {
	tid, ok := m.byHandle[id.Handle]
	return tid, ok
}

func (m *Map) Update(id ExternalID, tid pageio.TID) {
	m.byHandle[id.Handle] = tid
}

func (m *Map) Remove(id ExternalID) {
	if _, ok := m.byHandle[id.Handle]; !ok {
		return
	}
	delete(m.byHandle, id.Handle)
	heap.Push(&m.free, id.Handle)
}

func (m *Map) IDs() ([]ExternalID, bool) {
	ids := make([]ExternalID, 0, len(m.byHandle))
	for h := range m.byHandle {
		ids = append(ids, FromHandle(h))
	}
	return ids, true
}

func (m *Map) UseLinks() bool { return false }

// Write persists the generator counter, the set of recyclable
// handles, and the live handle→TID mapping.
func (m *Map) Write(w io.Writer) error {
	if err := writeUint64(w, m.next); err != nil {
		return fmt.Errorf("idtranslate: write generator: %w", err)
	}
	if err := writeUint32(w, uint32(len(m.free))); err != nil {
		return fmt.Errorf("idtranslate: write free count: %w", err)
	}
	for _, h := range m.free {
		if err := writeUint64(w, h); err != nil {
			return fmt.Errorf("idtranslate: write free handle: %w", err)
		}
	}
	if err := writeUint32(w, uint32(len(m.byHandle))); err != nil {
		return fmt.Errorf("idtranslate: write mapping count: %w", err)
	}
	for h, tid := range m.byHandle {
		if err := writeUint64(w, h); err != nil {
			return fmt.Errorf("idtranslate: write handle: %w", err)
		}
		if _, err := w.Write(pageio.EncodeTID(tid)); err != nil {
			return fmt.Errorf("idtranslate: write tid: %w", err)
		}
	}
	return nil
}

// ReadMap is the inverse of (*Map).Write.
func ReadMap(r io.Reader) (*Map, error) {
	m := NewMap()
	next, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("idtranslate: read generator: %w", err)
	}
	m.next = next

	freeCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("idtranslate: read free count: %w", err)
	}
	m.free = make(freeHeap, 0, freeCount)
	for i := uint32(0); i < freeCount; i++ {
		h, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("idtranslate: read free handle: %w", err)
		}
		m.free = append(m.free, h)
	}
	heap.Init(&m.free)

	mapCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("idtranslate: read mapping count: %w", err)
	}
	for i := uint32(0); i < mapCount; i++ {
		h, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("idtranslate: read handle: %w", err)
		}
		tidBuf := make([]byte, pageio.TIDSize)
		if _, err := io.ReadFull(r, tidBuf); err != nil {
			return nil, fmt.Errorf("idtranslate: read tid: %w: %w", recerr.PersistenceError, err)
		}
		m.byHandle[h] = pageio.DecodeTID(tidBuf)
	}
	return m, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
