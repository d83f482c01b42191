// Package strategy implements the pluggable placement policies spec.md
// §4.2 describes: given a record's byte size, pick a destination page
// (or report none) using only PageInformation and each strategy's own
// derived indexes — never by reading a page's bytes back from the
// container.
package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// Strategy is the placement-policy interface every variant implements.
// Init is idempotent and must rebuild all internal indexes purely from
// pagesMap; notifications keep a strategy's derived state in sync with
// PageInformation without ever mutating PageInformation itself.
type Strategy interface {
	// Init rebuilds the strategy's derived indexes from pagesMap.
	Init(pagesMap *pageinfo.PagesMap, pageSize, maxObjectSize int)
	// GetPageForRecord returns a page predicted to fit bytesRequired, or
	// ok=false if none is known to fit.
	GetPageForRecord(bytesRequired int) (id pageio.PageID, ok bool)
	// PageInserted notifies the strategy a new page was allocated.
	PageInserted(id pageio.PageID, pi *pageinfo.PageInformation)
	// PageRemoved notifies the strategy a page was deallocated.
	PageRemoved(id pageio.PageID, pi *pageinfo.PageInformation)
	// RecordUpdated notifies the strategy of a payload change on id's
	// page: ΔRecords/ΔBytes/ΔLinks mirror the PageInformation delta
	// applied in the same operation.
	RecordUpdated(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, deltaRecords, deltaBytes, deltaLinks int)
	// Close releases resources; strategy state must be serializable
	// after Close returns.
	Close() error
}

// fits is the free-space predicate every strategy shares (spec.md
// §4.2): a page fits bytesRequired iff pageSize −
// encodedSize(pageSize, R+L+1, usedBytes+bytesRequired) ≥ 0.
func fits(pageSize, slotCount, usedBytes, bytesRequired int) bool {
	return pageSize-encodedSize(pageSize, slotCount+1, usedBytes+bytesRequired) >= 0
}

// encodedSize mirrors pagecodec.EncodedSize without importing pagecodec,
// keeping strategy's only dependency on page shape a pure arithmetic
// function (spec.md's predicate is defined purely in terms of pageSize,
// slot count, and byte totals).
func encodedSize(pageSize, n, totalBytes int) int {
	w := 2
	if pageSize > 32767 {
		w = 4
	}
	bitmapBytes := (n + 7) / 8
	return 2 + bitmapBytes + n*(w+2) + w + totalBytes
}

// pageFits reports whether pi's page has room for bytesRequired more
// payload, per the shared predicate.
func pageFits(pageSize int, pi *pageinfo.PageInformation, bytesRequired int) bool {
	return fits(pageSize, pi.SlotCount(), pi.NumberOfBytesUsedByRecords, bytesRequired)
}

// maxFit is fits' inverse: the largest bytesRequired for which
// fits(pageSize, slotCount, usedBytes, bytesRequired) still holds, i.e.
// the true number of payload bytes a page can still accept once the new
// slot's own header overhead is charged. Bucketing a page by this value,
// rather than by the loose maxObjectSize−usedBytes difference, is what
// keeps a histogram-style strategy's bucket assignment consistent with
// pageFits/fits itself.
func maxFit(pageSize, slotCount, usedBytes int) int {
	return pageSize - encodedSize(pageSize, slotCount+1, usedBytes)
}

// pageMaxFit is maxFit applied to a PageInformation, mirroring pageFits.
func pageMaxFit(pageSize int, pi *pageinfo.PageInformation) int {
	return maxFit(pageSize, pi.SlotCount(), pi.NumberOfBytesUsedByRecords)
}
