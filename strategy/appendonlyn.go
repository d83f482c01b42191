package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// AppendOnlyN keeps a bounded FIFO of the last n inserted pages and
// scans it for the first page that fits.
type AppendOnlyN struct {
	n        int
	pages    *pageinfo.PagesMap
	pageSize int
	fifo     []pageio.PageID // oldest first
}

func NewAppendOnlyN(n int) *AppendOnlyN {
	return &AppendOnlyN{n: n}
}

func (s *AppendOnlyN) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	keys := pagesMap.Keys()
	if len(keys) > s.n {
		keys = keys[len(keys)-s.n:]
	}
	s.fifo = append([]pageio.PageID(nil), keys...)
}

func (s *AppendOnlyN) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	for i := len(s.fifo) - 1; i >= 0; i-- {
		id := s.fifo[i]
		pi := s.pages.Get(id)
		if pi != nil && pageFits(s.pageSize, pi, bytesRequired) {
			return id, true
		}
	}
	return 0, false
}

func (s *AppendOnlyN) PageInserted(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.fifo = append(s.fifo, id)
	if len(s.fifo) > s.n {
		s.fifo = s.fifo[len(s.fifo)-s.n:]
	}
}

func (s *AppendOnlyN) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	for i, k := range s.fifo {
		if k == id {
			s.fifo = append(s.fifo[:i], s.fifo[i+1:]...)
			return
		}
	}
}

func (s *AppendOnlyN) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {
}

func (s *AppendOnlyN) Close() error { return nil }
