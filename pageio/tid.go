package pageio

import "encoding/binary"

// TID is the internal tuple identifier: a page plus the slot's
// recordNr within it. Every placement strategy and the record manager
// itself address individual records only through a TID.
type TID struct {
	PageID   PageID
	RecordNr uint16
}

// TIDSize is the fixed encoded width of a TID: 8 bytes of PageID
// followed by 2 bytes of recordNr.
const TIDSize = 10

// EncodeTID writes tid's fixed-width wire representation.
func EncodeTID(tid TID) []byte {
	b := make([]byte, TIDSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(tid.PageID))
	binary.BigEndian.PutUint16(b[8:10], tid.RecordNr)
	return b
}

// DecodeTID is the inverse of EncodeTID. b must be at least TIDSize
// bytes long.
func DecodeTID(b []byte) TID {
	return TID{
		PageID:   PageID(binary.BigEndian.Uint64(b[0:8])),
		RecordNr: binary.BigEndian.Uint16(b[8:10]),
	}
}
