package strategy

import (
	"container/heap"

	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// emptiestEntry is one tracked page in a bounded max-heap keyed on
// used-bytes: the heap's root is always the currently "worst" (most
// full) of the n tracked pages, so a newly emptier page only has to be
// compared against the root to decide whether it displaces anything.
type emptiestEntry struct {
	id        pageio.PageID
	usedBytes int
	index     int
}

type emptiestHeap []*emptiestEntry

func (h emptiestHeap) Len() int            { return len(h) }
func (h emptiestHeap) Less(i, j int) bool  { return h[i].usedBytes > h[j].usedBytes }
func (h emptiestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *emptiestHeap) Push(x any) {
	e := x.(*emptiestEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *emptiestHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// BestFitOnNEmptiestPages tracks the n pages with the lowest
// used-bytes count and performs best-fit over just that set.
type BestFitOnNEmptiestPages struct {
	n        int
	pages    *pageinfo.PagesMap
	pageSize int
	h        emptiestHeap
	byID     map[pageio.PageID]*emptiestEntry
}

func NewBestFitOnNEmptiestPages(n int) *BestFitOnNEmptiestPages {
	return &BestFitOnNEmptiestPages{n: n}
}

func (s *BestFitOnNEmptiestPages) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.h = make(emptiestHeap, 0, s.n)
	s.byID = make(map[pageio.PageID]*emptiestEntry, s.n)
	pagesMap.Each(func(id pageio.PageID, pi *pageinfo.PageInformation) {
		s.consider(id, pi.NumberOfBytesUsedByRecords)
	})
}

// consider is the shared top-n maintenance logic used by both Init's
// bulk load and RecordUpdated's incremental update.
func (s *BestFitOnNEmptiestPages) consider(id pageio.PageID, usedBytes int) {
	if e, ok := s.byID[id]; ok {
		e.usedBytes = usedBytes
		heap.Fix(&s.h, e.index)
		return
	}
	if len(s.h) < s.n {
		e := &emptiestEntry{id: id, usedBytes: usedBytes}
		heap.Push(&s.h, e)
		s.byID[id] = e
		return
	}
	if len(s.h) == 0 {
		return
	}
	max := s.h[0]
	if usedBytes < max.usedBytes {
		heap.Pop(&s.h)
		delete(s.byID, max.id)
		e := &emptiestEntry{id: id, usedBytes: usedBytes}
		heap.Push(&s.h, e)
		s.byID[id] = e
	}
}

func (s *BestFitOnNEmptiestPages) remove(id pageio.PageID) {
	e, ok := s.byID[id]
	if !ok {
		return
	}
	heap.Remove(&s.h, e.index)
	delete(s.byID, id)
}

func (s *BestFitOnNEmptiestPages) slack(pi *pageinfo.PageInformation, bytesRequired int) int {
	if !pageFits(s.pageSize, pi, bytesRequired) {
		return -1
	}
	used := encodedSize(s.pageSize, pi.SlotCount()+1, pi.NumberOfBytesUsedByRecords+bytesRequired)
	return s.pageSize - used
}

func (s *BestFitOnNEmptiestPages) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	var bestID pageio.PageID
	bestSlack := -1
	found := false
	for _, e := range s.h {
		pi := s.pages.Get(e.id)
		if pi == nil {
			continue
		}
		sl := s.slack(pi, bytesRequired)
		if sl < 0 {
			continue
		}
		if !found || sl < bestSlack {
			bestID, bestSlack, found = e.id, sl, true
		}
	}
	return bestID, found
}

func (s *BestFitOnNEmptiestPages) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.consider(id, pi.NumberOfBytesUsedByRecords)
}

func (s *BestFitOnNEmptiestPages) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.remove(id)
}

func (s *BestFitOnNEmptiestPages) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, _ uint16, _, _, _ int) {
	s.consider(id, pi.NumberOfBytesUsedByRecords)
}

func (s *BestFitOnNEmptiestPages) Close() error { return nil }

// TrackedIDs exposes the currently tracked page set, in heap order.
func (s *BestFitOnNEmptiestPages) TrackedIDs() []pageio.PageID {
	ids := make([]pageio.PageID, 0, len(s.h))
	for _, e := range s.h {
		ids = append(ids, e.id)
	}
	return ids
}
