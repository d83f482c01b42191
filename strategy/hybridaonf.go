package strategy

import (
	"sort"

	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// HybridAONF maintains a sorted (by used-bytes, ascending), capacity-n
// list of pages whose usage ratio is below u. When the manager's
// global usage ratio v exceeds u, it tries append-only over that list
// (the emptiest tracked page wins if it fits); otherwise it defers to
// a wrapped NextFitWithH(n), whose scan opportunistically feeds pages
// back into the sorted list.
type HybridAONF struct {
	n        int
	u        float64
	pages    *pageinfo.PagesMap
	pageSize int
	wrapped  *NextFitWithH

	sorted []pageio.PageID // ascending used-bytes, len <= n
}

func NewHybridAONF(n int, u float64) *HybridAONF {
	return &HybridAONF{n: n, u: u, wrapped: NewNextFitWithH(n)}
}

func (s *HybridAONF) Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.wrapped.Init(pagesMap, pageSize, maxObjectSize)
	s.wrapped.onScanVisit = s.considerForList

	s.sorted = s.sorted[:0]
	pagesMap.Each(func(id pageio.PageID, pi *pageinfo.PageInformation) {
		if s.ratio(pi) < s.u {
			s.sorted = append(s.sorted, id)
		}
	})
	s.resort()
	s.truncate()
}

func (s *HybridAONF) ratio(pi *pageinfo.PageInformation) float64 {
	if s.pageSize == 0 {
		return 0
	}
	return float64(pi.NumberOfBytesUsedByRecords) / float64(s.pageSize)
}

func (s *HybridAONF) resort() {
	sort.Slice(s.sorted, func(i, j int) bool {
		pi, pj := s.pages.Get(s.sorted[i]), s.pages.Get(s.sorted[j])
		if pi == nil || pj == nil {
			return false
		}
		return pi.NumberOfBytesUsedByRecords < pj.NumberOfBytesUsedByRecords
	})
}

func (s *HybridAONF) truncate() {
	if len(s.sorted) > s.n {
		s.sorted = s.sorted[:s.n]
	}
}

func (s *HybridAONF) considerForList(id pageio.PageID, pi *pageinfo.PageInformation) {
	if s.ratio(pi) >= s.u {
		for i, k := range s.sorted {
			if k == id {
				s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
				break
			}
		}
		return
	}
	for _, k := range s.sorted {
		if k == id {
			s.resort()
			return
		}
	}
	s.sorted = append(s.sorted, id)
	s.resort()
	s.truncate()
}

// v is the manager-wide usage ratio: total used bytes over total
// page-capacity bytes.
func (s *HybridAONF) v() float64 {
	var used, total int
	s.pages.Each(func(_ pageio.PageID, pi *pageinfo.PageInformation) {
		used += pi.NumberOfBytesUsedByRecords
		total += s.pageSize
	})
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

func (s *HybridAONF) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	if s.v() > s.u {
		for _, id := range s.sorted {
			pi := s.pages.Get(id)
			if pi != nil && pageFits(s.pageSize, pi, bytesRequired) {
				return id, true
			}
			break // append-only semantics: only the first entry is tried
		}
		return 0, false
	}
	return s.wrapped.GetPageForRecord(bytesRequired)
}

func (s *HybridAONF) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.wrapped.PageInserted(id, pi)
	s.considerForList(id, pi)
}

func (s *HybridAONF) PageRemoved(id pageio.PageID, pi *pageinfo.PageInformation) {
	s.wrapped.PageRemoved(id, pi)
	for i, k := range s.sorted {
		if k == id {
			s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
			break
		}
	}
}

func (s *HybridAONF) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, dr, db, dl int) {
	s.wrapped.RecordUpdated(id, pi, recordNr, dr, db, dl)
	s.considerForList(id, pi)
}

func (s *HybridAONF) Close() error { return s.wrapped.Close() }
