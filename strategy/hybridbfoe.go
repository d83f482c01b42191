package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// HybridBFOE is best-fit-on-n-emptiest-pages with a fallback strategy
// applied whenever the tracked set yields no candidate.
type HybridBFOE struct {
	primary  *BestFitOnNEmptiestPages
	fallback Strategy
}

func NewHybridBFOE(n int, fallback Strategy) *HybridBFOE {
	return &HybridBFOE{primary: NewBestFitOnNEmptiestPages(n), fallback: fallback}
}

func (s *HybridBFOE) Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int) {
	s.primary.Init(pagesMap, pageSize, maxObjectSize)
	s.fallback.Init(pagesMap, pageSize, maxObjectSize)
}

func (s *HybridBFOE) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	if id, ok := s.primary.GetPageForRecord(bytesRequired); ok {
		return id, true
	}
	return s.fallback.GetPageForRecord(bytesRequired)
}

func (s *HybridBFOE) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.primary.PageInserted(id, pi)
	s.fallback.PageInserted(id, pi)
}

func (s *HybridBFOE) PageRemoved(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.primary.PageRemoved(id, pi)
	s.fallback.PageRemoved(id, pi)
}

func (s *HybridBFOE) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, dr, db, dl int) {
	s.primary.RecordUpdated(id, pi, recordNr, dr, db, dl)
	s.fallback.RecordUpdated(id, pi, recordNr, dr, db, dl)
}

func (s *HybridBFOE) Close() error {
	if err := s.primary.Close(); err != nil {
		return err
	}
	return s.fallback.Close()
}
