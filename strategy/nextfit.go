package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// NextFit resumes scanning from the page after the last one it
// returned, wrapping around once it reaches the end of pages-map
// order. The cursor is a pageId, not an index, so it survives
// insertions and removals elsewhere in the map.
type NextFit struct {
	pages    *pageinfo.PagesMap
	pageSize int
	cursor   pageio.PageID
	haveCur  bool
}

func (s *NextFit) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.haveCur = false
}

func (s *NextFit) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	keys := s.pages.Keys()
	n := len(keys)
	if n == 0 {
		return 0, false
	}
	start := 0
	if s.haveCur {
		idx := s.pages.IndexOf(s.cursor)
		if idx < 0 {
			// cursor page was removed; resume from the next larger key.
			idx = indexOfFirstGreaterOrEqual(keys, s.cursor) - 1
		}
		start = (idx + 1) % n
	}
	for i := 0; i < n; i++ {
		id := keys[(start+i)%n]
		pi := s.pages.Get(id)
		if pi != nil && pageFits(s.pageSize, pi, bytesRequired) {
			s.cursor = id
			s.haveCur = true
			return id, true
		}
	}
	return 0, false
}

func indexOfFirstGreaterOrEqual(keys []pageio.PageID, target pageio.PageID) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (s *NextFit) PageInserted(id pageio.PageID, _ *pageinfo.PageInformation) {}

func (s *NextFit) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	if s.haveCur && s.cursor == id {
		s.haveCur = false
	}
}

func (s *NextFit) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {}

func (s *NextFit) Close() error { return nil }
