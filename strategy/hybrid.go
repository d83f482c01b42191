package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// Hybrid delegates to s1 first, falling back to s2 on a miss. Both
// substrategies receive every notification, in order, regardless of
// which one answered the last GetPageForRecord call.
type Hybrid struct {
	s1, s2 Strategy
}

func NewHybrid(s1, s2 Strategy) *Hybrid {
	return &Hybrid{s1: s1, s2: s2}
}

func (s *Hybrid) Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int) {
	s.s1.Init(pagesMap, pageSize, maxObjectSize)
	s.s2.Init(pagesMap, pageSize, maxObjectSize)
}

func (s *Hybrid) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	if id, ok := s.s1.GetPageForRecord(bytesRequired); ok {
		return id, true
	}
	return s.s2.GetPageForRecord(bytesRequired)
}

func (s *Hybrid) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.s1.PageInserted(id, pi)
	s.s2.PageInserted(id, pi)
}

func (s *Hybrid) PageRemoved(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.s1.PageRemoved(id, pi)
	s.s2.PageRemoved(id, pi)
}

func (s *Hybrid) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, dr, db, dl int) {
	s.s1.RecordUpdated(id, pi, recordNr, dr, db, dl)
	s.s2.RecordUpdated(id, pi, recordNr, dr, db, dl)
}

func (s *Hybrid) Close() error {
	if err := s.s1.Close(); err != nil {
		return err
	}
	return s.s2.Close()
}
