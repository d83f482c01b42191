// Package recerr defines the sentinel error kinds the record manager and
// its collaborators surface to callers.
package recerr

import "errors"

// NotFound is returned when get/update/remove is given an id that does
// not resolve to a live record.
var NotFound = errors.New("recman: id not found")

// RecordTooLarge is returned when insert is given a payload larger than
// the manager's maxObjectSize.
var RecordTooLarge = errors.New("recman: record exceeds maximum object size")

// StructuralError marks an internal invariant violation: a double
// insert of a recordNr, a missing slot that should be present, a
// two-hop link chain, a strategy returning a page that does not fit, a
// histogram claiming no page fits when one does, or a PageInformation
// mismatch on a consistency check. The manager instance must be
// considered corrupt once this surfaces.
var StructuralError = errors.New("recman: structural invariant violated")

// OutOfSlotSpace is returned when a page already holds the maximum of
// 32767 records and another insert is attempted on it.
var OutOfSlotSpace = errors.New("recman: page has no free slot numbers left")

// PersistenceError wraps an underlying page-container I/O failure.
var PersistenceError = errors.New("recman: persistence failure")
