package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// LastToFirstFit scans pages in the reverse of pages-map order. The
// pages map only exposes forward iteration, so LastToFirstFit keeps its
// own reverse-ordered list of known pageIds.
type LastToFirstFit struct {
	pages    *pageinfo.PagesMap
	pageSize int
	order    []pageio.PageID // descending
}

func (s *LastToFirstFit) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	keys := pagesMap.Keys()
	s.order = make([]pageio.PageID, len(keys))
	for i, k := range keys {
		s.order[len(keys)-1-i] = k
	}
}

func (s *LastToFirstFit) insertDescending(id pageio.PageID) {
	i := 0
	for i < len(s.order) && s.order[i] > id {
		i++
	}
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = id
}

func (s *LastToFirstFit) removeFromOrder(id pageio.PageID) {
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *LastToFirstFit) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	for _, id := range s.order {
		pi := s.pages.Get(id)
		if pi != nil && pageFits(s.pageSize, pi, bytesRequired) {
			return id, true
		}
	}
	return 0, false
}

func (s *LastToFirstFit) PageInserted(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.insertDescending(id)
}

func (s *LastToFirstFit) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	s.removeFromOrder(id)
}

func (s *LastToFirstFit) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {
}

func (s *LastToFirstFit) Close() error { return nil }
