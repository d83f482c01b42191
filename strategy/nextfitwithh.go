package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// NextFitWithH is NextFit guarded by a free-space histogram: H
// equal-width buckets over [0, maxObjectSize] of remaining free space
// per page. A bucket with zero pages proves no page in it can satisfy
// a request; the histogram is consulted before ever touching the
// pages map.
type NextFitWithH struct {
	buckets       int
	maxObjectSize int
	pageSize      int
	pages         *pageinfo.PagesMap

	cursor  pageio.PageID
	haveCur bool

	counts    []int                 // number of pages currently in each bucket
	pageToIdx map[pageio.PageID]int // pageId -> last-known bucket

	// onScanVisit, when set, is called for every page examined during
	// a GetPageForRecord scan. HybridAONF uses this to opportunistically
	// populate its own sorted list while delegating a scan.
	onScanVisit func(pageio.PageID, *pageinfo.PageInformation)
}

func NewNextFitWithH(h int) *NextFitWithH {
	return &NextFitWithH{buckets: h}
}

func (s *NextFitWithH) bucketFor(freeSpace int) int {
	if s.maxObjectSize <= 0 {
		return 0
	}
	b := freeSpace * s.buckets / (s.maxObjectSize + 1)
	if b < 0 {
		b = 0
	}
	if b >= s.buckets {
		b = s.buckets - 1
	}
	return b
}

// freeSpace is the true number of additional payload bytes pi's page
// can still accept, per the same fits predicate GetPageForRecord's scan
// uses — not the loose maxObjectSize−usedBytes difference, which
// ignores the per-slot header a new record adds and over-buckets
// fragmented pages.
func (s *NextFitWithH) freeSpace(pi *pageinfo.PageInformation) int {
	free := pageMaxFit(s.pageSize, pi)
	if free < 0 {
		free = 0
	}
	return free
}

func (s *NextFitWithH) Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int) {
	s.pages = pagesMap
	s.pageSize = pageSize
	s.maxObjectSize = maxObjectSize
	s.haveCur = false
	s.counts = make([]int, s.buckets)
	s.pageToIdx = make(map[pageio.PageID]int)
	pagesMap.Each(func(id pageio.PageID, pi *pageinfo.PageInformation) {
		b := s.bucketFor(s.freeSpace(pi))
		s.counts[b]++
		s.pageToIdx[id] = b
	})
}

// requiredBucket is the smallest bucket index b such that bucketFor's
// own minimum free value for b is >= bytesRequired — the exact inverse
// of bucketFor, so a page whose bucket was last set from its
// PageInformation and is >= requiredBucket(bytesRequired) has enough
// free space, as long as that index is below the top bucket. Since
// bucketFor(free) = floor(free·buckets/(maxObjectSize+1)), the smallest
// free value landing in bucket b is ceil(b·(maxObjectSize+1)/buckets);
// requiring that to be >= bytesRequired inverts to this ceiling
// division. A result past the top bucket is clamped to it, and pages in
// the top bucket are not all large enough for such a request.
func (s *NextFitWithH) requiredBucket(bytesRequired int) int {
	if s.maxObjectSize <= 0 {
		return 0
	}
	denom := s.maxObjectSize + 1
	need := (bytesRequired*s.buckets + denom - 1) / denom
	if need >= s.buckets {
		return s.buckets - 1
	}
	if need < 0 {
		return 0
	}
	return need
}

func (s *NextFitWithH) histogramHasCandidate(bytesRequired int) bool {
	req := s.requiredBucket(bytesRequired)
	for b := req; b < s.buckets; b++ {
		if s.counts[b] > 0 {
			return true
		}
	}
	return false
}

func (s *NextFitWithH) GetPageForRecord(bytesRequired int) (pageio.PageID, bool) {
	if !s.histogramHasCandidate(bytesRequired) {
		return 0, false
	}
	keys := s.pages.Keys()
	n := len(keys)
	if n == 0 {
		// counts disagree with the pages map; treat it as a miss rather
		// than a fatal error, since spec.md forbids panics on valid input.
		return 0, false
	}
	start := 0
	if s.haveCur {
		idx := s.pages.IndexOf(s.cursor)
		if idx < 0 {
			idx = indexOfFirstGreaterOrEqual(keys, s.cursor) - 1
		}
		start = (idx + 1) % n
	}
	for i := 0; i < n; i++ {
		id := keys[(start+i)%n]
		pi := s.pages.Get(id)
		if pi == nil {
			continue
		}
		if s.onScanVisit != nil {
			s.onScanVisit(id, pi)
		}
		if pageFits(s.pageSize, pi, bytesRequired) {
			s.cursor = id
			s.haveCur = true
			return id, true
		}
	}
	// Below the top bucket, a populated candidate bucket always yields a
	// fit here, since freeSpace/requiredBucket are each other's exact
	// inverse under the same fits predicate the scan checks. The scan can
	// still miss when the request was clamped to the top bucket, or when a
	// page still sits in the top bucket PageInserted assigned it. Either
	// way this is treated as any other miss (allocate a new page).
	return 0, false
}

func (s *NextFitWithH) moveBucket(id pageio.PageID, pi *pageinfo.PageInformation) {
	newB := s.bucketFor(s.freeSpace(pi))
	oldB, known := s.pageToIdx[id]
	if known && oldB == newB {
		return
	}
	if known {
		s.counts[oldB]--
	}
	s.counts[newB]++
	s.pageToIdx[id] = newB
}

func (s *NextFitWithH) PageInserted(id pageio.PageID, pi *pageinfo.PageInformation) {
	// Spec: new pages are placed in the largest bucket optimistically,
	// corrected on the first mutation that touches them.
	b := s.buckets - 1
	s.counts[b]++
	s.pageToIdx[id] = b
}

func (s *NextFitWithH) PageRemoved(id pageio.PageID, _ *pageinfo.PageInformation) {
	if b, ok := s.pageToIdx[id]; ok {
		s.counts[b]--
		delete(s.pageToIdx, id)
	}
	if s.haveCur && s.cursor == id {
		s.haveCur = false
	}
}

func (s *NextFitWithH) RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, _ uint16, _, _, _ int) {
	s.moveBucket(id, pi)
}

func (s *NextFitWithH) Close() error { return nil }
