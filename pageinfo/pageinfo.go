// Package pageinfo holds the in-memory per-page summary (spec.md §3)
// the record manager and every strategy reason from, plus the ordered
// pages map strategies rely on for next-fit-style scanning.
package pageinfo

import (
	"sort"

	"github.com/sorenkrogh/recman/pageio"
)

// unsetRecordNr is the "-1 sentinel" spec.md §3 uses for an empty
// page's observed id range.
const unsetRecordNr = -1

// reservation is one speculative, not-yet-flushed allocation. data is
// kept only for the lifetime of the process that produced it: the
// persisted form (spec.md §6) carries recordNr and length only, so a
// reservation that survives a write/read round trip loses its content
// and is replayed as a zero-filled placeholder.
type reservation struct {
	recordNr uint16
	length   int
	data     []byte
}

// PageInformation is the in-memory summary spec.md §3 describes for one
// page: counters, observed id range, and a bounded reservation queue.
type PageInformation struct {
	NumberOfRecords            int
	NumberOfLinkRecords        int
	NumberOfBytesUsedByRecords int
	MinRecordNumber            int
	MaxRecordNumber            int

	maxDirectReserves int
	reserved          []reservation
}

// New creates an empty PageInformation.
func New(maxDirectReserves int) *PageInformation {
	return &PageInformation{
		MinRecordNumber:   unsetRecordNr,
		MaxRecordNumber:   unsetRecordNr,
		maxDirectReserves: maxDirectReserves,
	}
}

// observe folds a recordNr into the page's observed min/max range.
func (pi *PageInformation) observe(recordNr uint16) {
	nr := int(recordNr)
	if pi.MinRecordNumber == unsetRecordNr || nr < pi.MinRecordNumber {
		pi.MinRecordNumber = nr
	}
	if pi.MaxRecordNumber == unsetRecordNr || nr > pi.MaxRecordNumber {
		pi.MaxRecordNumber = nr
	}
}

// Reset recomputes MinRecordNumber/MaxRecordNumber from the given live
// recordNrs, used after a removal drops the previous extremum.
func (pi *PageInformation) Reset(recordNrs []uint16) {
	pi.MinRecordNumber = unsetRecordNr
	pi.MaxRecordNumber = unsetRecordNr
	for _, nr := range recordNrs {
		pi.observe(nr)
	}
}

// ApplyDelta folds a recordNr and (ΔRecords, ΔBytes, ΔLinks) into the
// summary. Besides Reserve, this is the only method that changes the
// counters; callers must notify the strategy with the same delta in the
// same operation (spec.md §5).
func (pi *PageInformation) ApplyDelta(recordNr uint16, deltaRecords, deltaBytes, deltaLinks int) {
	pi.NumberOfRecords += deltaRecords
	pi.NumberOfBytesUsedByRecords += deltaBytes
	pi.NumberOfLinkRecords += deltaLinks
	if deltaRecords > 0 || deltaLinks > 0 {
		pi.observe(recordNr)
	}
}

// IsEmpty reports whether the page holds no records and no links.
func (pi *PageInformation) IsEmpty() bool {
	return pi.NumberOfRecords == 0 && pi.NumberOfLinkRecords == 0
}

// SlotCount is the page's total slot count (records + links), which
// must equal the page codec's SlotCount at all times (spec.md §3).
func (pi *PageInformation) SlotCount() int {
	return pi.NumberOfRecords + pi.NumberOfLinkRecords
}

// IsReservationPossible reports whether the reservation queue has room
// and the observed id range has a free slot at min−1 or max+1.
func (pi *PageInformation) IsReservationPossible() bool {
	if len(pi.reserved) >= pi.maxDirectReserves {
		return false
	}
	if pi.MinRecordNumber == unsetRecordNr {
		return true
	}
	return pi.MinRecordNumber > 0 || pi.MaxRecordNumber < 32767
}

// Reserve allocates a recordNr from the observed id range without
// touching the page body, recording data so it can be flushed later.
func (pi *PageInformation) Reserve(data []byte) (uint16, bool) {
	if !pi.IsReservationPossible() {
		return 0, false
	}
	var nr uint16
	if pi.MinRecordNumber == unsetRecordNr {
		nr = 0
	} else if pi.MinRecordNumber > 0 {
		nr = uint16(pi.MinRecordNumber - 1)
	} else {
		nr = uint16(pi.MaxRecordNumber + 1)
	}
	pi.reserved = append(pi.reserved, reservation{recordNr: nr, length: len(data), data: append([]byte(nil), data...)})
	pi.observe(nr)
	pi.NumberOfRecords++
	pi.NumberOfBytesUsedByRecords += len(data)
	return nr, true
}

// Reservation is a flushable, queued allocation: a reserved recordNr
// plus the length (and, within-process, the data) it was reserved for.
type Reservation struct {
	RecordNr uint16
	Length   int
	Data     []byte // nil after a write/read round trip
}

// PendingReservations returns the queued reservations and clears the
// queue; callers flush each into the page body.
func (pi *PageInformation) PendingReservations() []Reservation {
	out := pi.PeekReservations()
	pi.reserved = nil
	return out
}

// PeekReservations returns the queued reservations without clearing
// them, for serialization (spec.md §6's persisted form carries
// recordNr+length only).
func (pi *PageInformation) PeekReservations() []Reservation {
	if len(pi.reserved) == 0 {
		return nil
	}
	out := make([]Reservation, len(pi.reserved))
	for i, r := range pi.reserved {
		out[i] = Reservation{RecordNr: r.recordNr, Length: r.length, Data: r.data}
	}
	return out
}

// LoadReservation restores a reservation read back from persisted
// state (spec.md §6), which carries recordNr and length only — the
// original data is gone, so a later flush replays it as a zero-filled
// placeholder via pagecodec.Page.InsertEmptyRecord.
func (pi *PageInformation) LoadReservation(recordNr uint16, length int) {
	pi.reserved = append(pi.reserved, reservation{recordNr: recordNr, length: length})
}

// HasPendingReservations reports whether recordNrs remain allocated in
// memory but not yet written to the page body.
func (pi *PageInformation) HasPendingReservations() bool {
	return len(pi.reserved) > 0
}

// PagesMap is the ordered pageId → PageInformation mapping spec.md §3
// requires strategies to rely on for next-fit-style scanning.
type PagesMap struct {
	byID  map[pageio.PageID]*PageInformation
	order []pageio.PageID // kept sorted ascending
}

// NewPagesMap creates an empty pages map.
func NewPagesMap() *PagesMap {
	return &PagesMap{byID: make(map[pageio.PageID]*PageInformation)}
}

// Get returns the PageInformation for id, or nil if absent.
func (m *PagesMap) Get(id pageio.PageID) *PageInformation {
	return m.byID[id]
}

// Put inserts or replaces the PageInformation for id.
func (m *PagesMap) Put(id pageio.PageID, pi *PageInformation) {
	if _, exists := m.byID[id]; !exists {
		idx := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
		m.order = append(m.order, 0)
		copy(m.order[idx+1:], m.order[idx:])
		m.order[idx] = id
	}
	m.byID[id] = pi
}

// Delete removes id from the map.
func (m *PagesMap) Delete(id pageio.PageID) {
	if _, exists := m.byID[id]; !exists {
		return
	}
	delete(m.byID, id)
	idx := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
	if idx < len(m.order) && m.order[idx] == id {
		m.order = append(m.order[:idx], m.order[idx+1:]...)
	}
}

// Len returns the number of tracked pages.
func (m *PagesMap) Len() int { return len(m.order) }

// Keys returns the tracked pageIds in ascending order. The returned
// slice must not be mutated.
func (m *PagesMap) Keys() []pageio.PageID { return m.order }

// KeyAt returns the key at ordinal position i in ascending order, and
// whether i was in range.
func (m *PagesMap) KeyAt(i int) (pageio.PageID, bool) {
	if i < 0 || i >= len(m.order) {
		return 0, false
	}
	return m.order[i], true
}

// IndexOf returns id's ordinal position in ascending order, or -1.
func (m *PagesMap) IndexOf(id pageio.PageID) int {
	idx := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
	if idx < len(m.order) && m.order[idx] == id {
		return idx
	}
	return -1
}

// Each calls fn for every tracked page in ascending pageId order.
func (m *PagesMap) Each(fn func(id pageio.PageID, pi *PageInformation)) {
	for _, id := range m.order {
		fn(id, m.byID[id])
	}
}
