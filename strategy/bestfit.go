package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// BestFit scans every known page and picks the one whose post-insertion
// slack is smallest, short-circuiting as soon as a page's slack is at
// or below off (off = floor(percentageFree * pageSize), computed once
// at Init).
type BestFit struct {
	pages           *pageinfo.PagesMap
	pageSize        int
	percentageFree  float64
	off             int
}

func NewBestFit(percentageFree float64) *BestFit {
	return &BestFit{percentageFree: percentageFree}
}

func (s *BestFit) Init(pagesMap *pageinfo.PagesMap, pageSize, _ int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.off = int(s.percentageFree * float64(pageSize))
}

// slack is the remaining free space a page would have after absorbing
// bytesRequired; smaller is a better fit. Pages that don't fit report
// slack -1 (never chosen).
func (s *BestFit) slack(pi *pageinfo.PageInformation, bytesRequired int) int {
	if !pageFits(s.pageSize, pi, bytesRequired) {
		return -1
	}
	used := encodedSize(s.pageSize, pi.SlotCount()+1, pi.NumberOfBytesUsedByRecords+bytesRequired)
	return s.pageSize - used
}

func (s *BestFit) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	var bestID pageio.PageID
	bestSlack := -1
	found := false
	short := false
	s.pages.Each(func(id pageio.PageID, pi *pageinfo.PageInformation) {
		if short {
			return
		}
		sl := s.slack(pi, bytesRequired)
		if sl < 0 {
			return
		}
		if !found || sl < bestSlack {
			bestID, bestSlack, found = id, sl, true
		}
		if bestSlack <= s.off {
			short = true
		}
	})
	return bestID, found
}

func (s *BestFit) PageInserted(pageio.PageID, *pageinfo.PageInformation) {}

func (s *BestFit) PageRemoved(pageio.PageID, *pageinfo.PageInformation) {}

func (s *BestFit) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {}

func (s *BestFit) Close() error { return nil }
