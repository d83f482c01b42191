package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// AppendOnly remembers only the most recently inserted page and
// returns it iff it still fits the request.
type AppendOnly struct {
	pages    *pageinfo.PagesMap
	pageSize int
	last     pageio.PageID
	haveLast bool
}

func (s *AppendOnly) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.haveLast = false
	for _, id := range pagesMap.Keys() {
		s.last, s.haveLast = id, true
	}
}

func (s *AppendOnly) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	if !s.haveLast {
		return 0, false
	}
	pi := s.pages.Get(s.last)
	if pi == nil || !pageFits(s.pageSize, pi, bytesRequired) {
		return 0, false
	}
	return s.last, true
}

func (s *AppendOnly) PageInserted(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.last, s.haveLast = id, true
}

func (s *AppendOnly) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	if s.haveLast && s.last == id {
		s.haveLast = false
	}
}

func (s *AppendOnly) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {}

func (s *AppendOnly) Close() error { return nil }
