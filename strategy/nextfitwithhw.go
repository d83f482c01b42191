package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// NextFitWithHW extends NextFitWithH with a witness pageId per bucket:
// a cheap proof of existence that getPageForRecord tries before
// falling back to a full scan.
type NextFitWithHW struct {
	inner    *NextFitWithH
	witness  []pageio.PageID
	hasWit   []bool
}

func NewNextFitWithHW(h int) *NextFitWithHW {
	return &NextFitWithHW{inner: NewNextFitWithH(h)}
}

func (s *NextFitWithHW) Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int) {
	s.inner.Init(pagesMap, pageSize, maxObjectSize)
	s.witness = make([]pageio.PageID, s.inner.buckets)
	s.hasWit = make([]bool, s.inner.buckets)
	for id, b := range s.inner.pageToIdx {
		s.witness[b] = id
		s.hasWit[b] = true
	}
}

func (s *NextFitWithHW) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	req := s.inner.requiredBucket(bytesRequired)
	for b := req; b < s.inner.buckets; b++ {
		if s.inner.counts[b] == 0 {
			continue
		}
		if s.hasWit[b] {
			pi := s.inner.pages.Get(s.witness[b])
			if pi != nil && pageFits(s.inner.pageSize, pi, bytesRequired) {
				return s.witness[b], true
			}
		}
	}
	return s.inner.GetPageForRecord(bytesRequired)
}

func (s *NextFitWithHW) witnessFor(id pageio.PageID, b int) {
	s.witness[b] = id
	s.hasWit[b] = true
}

func (s *NextFitWithHW) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.inner.PageInserted(id, pi)
	s.witnessFor(id, s.inner.pageToIdx[id])
}

func (s *NextFitWithHW) PageRemoved(id pageio.PageID, pi *pageinfo.PageInformation) {
	b, known := s.inner.pageToIdx[id]
	s.inner.PageRemoved(id, pi)
	if known && s.hasWit[b] && s.witness[b] == id {
		s.hasWit[b] = false
	}
}

func (s *NextFitWithHW) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, dr, db, dl int) {
	s.inner.RecordUpdated(id, pi, recordNr, dr, db, dl)
	s.witnessFor(id, s.inner.pageToIdx[id])
}

func (s *NextFitWithHW) Close() error { return nil }
