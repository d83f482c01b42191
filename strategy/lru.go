package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// LRU keeps a bounded most-recently-used-at-tail list, refreshed on
// every recordUpdated, and performs best-fit over that list.
type LRU struct {
	n        int
	pages    *pageinfo.PagesMap
	pageSize int
	list     []pageio.PageID // least-recently-used first
}

func NewLRU(n int) *LRU {
	return &LRU{n: n}
}

func (s *LRU) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	keys := pagesMap.Keys()
	if len(keys) > s.n {
		keys = keys[len(keys)-s.n:]
	}
	s.list = append([]pageio.PageID(nil), keys...)
}

func (s *LRU) touch(id pageio.PageID) {
	for i, k := range s.list {
		if k == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	s.list = append(s.list, id)
	if len(s.list) > s.n {
		s.list = s.list[len(s.list)-s.n:]
	}
}

func (s *LRU) slack(pi *pageinfo.PageInformation, bytesRequired int) int {
	if !pageFits(s.pageSize, pi, bytesRequired) {
		return -1
	}
	used := encodedSize(s.pageSize, pi.SlotCount()+1, pi.NumberOfBytesUsedByRecords+bytesRequired)
	return s.pageSize - used
}

func (s *LRU) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	var bestID pageio.PageID
	bestSlack := -1
	found := false
	for _, id := range s.list {
		pi := s.pages.Get(id)
		if pi == nil {
			continue
		}
		sl := s.slack(pi, bytesRequired)
		if sl < 0 {
			continue
		}
		if !found || sl < bestSlack {
			bestID, bestSlack, found = id, sl, true
		}
	}
	return bestID, found
}

func (s *LRU) PageInserted(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.touch(id)
}

func (s *LRU) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	for i, k := range s.list {
		if k == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *LRU) RecordUpdated(id pageio.PageID, _ *pageinfo.PageInformation, _ uint16, _, _, _ int) {
	s.touch(id)
}

func (s *LRU) Close() error { return nil }
