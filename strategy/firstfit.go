package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// FirstFit returns the first page, in pages-map order, whose predicate
// holds.
type FirstFit struct {
	pages    *pageinfo.PagesMap
	pageSize int
}

func (s *FirstFit) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
}

func (s *FirstFit) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	var found pageio.PageID
	var ok bool
	s.pages.Each(func(id pageio.PageID, pi *pageinfo.PageInformation) {
		if ok {
			return
		}
		if pageFits(s.pageSize, pi, bytesRequired) {
			found, ok = id, true
		}
	})
	return found, ok
}

func (s *FirstFit) PageInserted(pageio.PageID, *pageinfo.PageInformation) {}

func (s *FirstFit) PageRemoved(pageio.PageID, *pageinfo.PageInformation) {}

func (s *FirstFit) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {}

func (s *FirstFit) Close() error { return nil }
