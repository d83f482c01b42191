// Package pagecodec implements the slotted page format spec.md §3/§4.1
// describes: a per-page directory of (offset, recordNr) slots, a
// link-bit bitmap marking which slots hold forwarding pointers instead
// of user records, and payload bytes packed contiguously in insertion
// order.
//
// A Page is decoded in two steps — DecodeHeader, then DecodeTail — so a
// strategy or iterator that only needs slot metadata never pays the
// cost of copying record payloads.
package pagecodec

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/sorenkrogh/recman/recerr"
)

// MaxRecordNr is the largest recordNr a slot may carry ([0, 32767]).
const MaxRecordNr = 32767

// OffsetWidth returns the byte width offsets are encoded with: 16-bit
// for pageSize <= 32767, 32-bit otherwise.
func OffsetWidth(pageSize int) int {
	if pageSize <= 32767 {
		return 2
	}
	return 4
}

func bitmapBytes(n int) int {
	return (n + 7) / 8
}

// HeaderSize returns the number of header bytes a page with n slots
// occupies, given pageSize (which fixes the offset width).
func HeaderSize(pageSize, n int) int {
	w := OffsetWidth(pageSize)
	return 2 + bitmapBytes(n) + n*(w+2) + w
}

// EncodedSize returns the total encoded size of a page holding n slots
// and totalBytes of record payload.
func EncodedSize(pageSize, n, totalBytes int) int {
	return HeaderSize(pageSize, n) + totalBytes
}

// Page is a fully or partially decoded slotted page. offsets has one
// more entry than recordNrs/linkBits: offsets[i] is the start byte of
// slot i's payload (in insertion order), and offsets[len(recordNrs)] is
// the first free payload byte.
type Page struct {
	pageSize  int
	offsets   []int
	recordNrs []uint16
	linkBits  []bool
	payload   []byte
	tailKnown bool
}

// New creates an empty page ready for insertion.
func New(pageSize int) *Page {
	return &Page{
		pageSize:  pageSize,
		offsets:   []int{0},
		recordNrs: nil,
		linkBits:  nil,
		payload:   nil,
		tailKnown: true,
	}
}

// PageSize reports the fixed page size this Page was decoded/created
// against.
func (p *Page) PageSize() int { return p.pageSize }

// SlotCount returns the number of slots (link and non-link) on the
// page.
func (p *Page) SlotCount() int { return len(p.recordNrs) }

// UsedBytes returns the bytes currently occupied by record+link
// payload.
func (p *Page) UsedBytes() int { return p.offsets[len(p.offsets)-1] }

// EncodedSize returns this page's current encoded size.
func (p *Page) EncodedSize() int {
	return EncodedSize(p.pageSize, p.SlotCount(), p.UsedBytes())
}

// Fits reports whether bytesRequired more payload could be inserted
// without exceeding pageSize, per the free-space predicate every
// strategy shares (spec.md §4.2): pageSize − encodedSize(pageSize,
// slots+1, used+bytesRequired) ≥ 0.
func (p *Page) Fits(bytesRequired int) bool {
	return p.pageSize-EncodedSize(p.pageSize, p.SlotCount()+1, p.UsedBytes()+bytesRequired) >= 0
}

func (p *Page) findSlot(recordNr uint16) (int, bool) {
	for i, nr := range p.recordNrs {
		if nr == recordNr {
			return i, true
		}
	}
	return -1, false
}

// IsUsed reports whether recordNr names a live slot on this page.
func (p *Page) IsUsed(recordNr uint16) bool {
	_, ok := p.findSlot(recordNr)
	return ok
}

// GetRecordSize returns the byte length of recordNr's slot.
func (p *Page) GetRecordSize(recordNr uint16) (int, error) {
	idx, ok := p.findSlot(recordNr)
	if !ok {
		return 0, fmt.Errorf("pagecodec: recordNr %d absent: %w", recordNr, recerr.StructuralError)
	}
	return p.offsets[idx+1] - p.offsets[idx], nil
}

// GetRecord returns the bytes stored at recordNr and whether the slot
// is a link. DecodeTail must have been called first.
func (p *Page) GetRecord(recordNr uint16) ([]byte, bool, error) {
	if !p.tailKnown {
		return nil, false, fmt.Errorf("pagecodec: tail not decoded: %w", recerr.StructuralError)
	}
	idx, ok := p.findSlot(recordNr)
	if !ok {
		return nil, false, fmt.Errorf("pagecodec: recordNr %d absent: %w", recordNr, recerr.StructuralError)
	}
	return p.payload[p.offsets[idx]:p.offsets[idx+1]], p.linkBits[idx], nil
}

// GetFreeRecordNumber picks the next recordNr to assign on this page:
// minRecordNr−1 if that stays ≥ 0, else maxRecordNr+1 if ≤ MaxRecordNr,
// else the smallest absent value by linear scan.
func (p *Page) GetFreeRecordNumber() (uint16, error) {
	if len(p.recordNrs) == 0 {
		return 0, nil
	}
	min, max := p.recordNrs[0], p.recordNrs[0]
	for _, nr := range p.recordNrs[1:] {
		if nr < min {
			min = nr
		}
		if nr > max {
			max = nr
		}
	}
	if min > 0 {
		return min - 1, nil
	}
	if max < MaxRecordNr {
		return max + 1, nil
	}
	present := make(map[uint16]bool, len(p.recordNrs))
	for _, nr := range p.recordNrs {
		present[nr] = true
	}
	for nr := uint16(0); ; nr++ {
		if !present[nr] {
			return nr, nil
		}
		if nr == MaxRecordNr {
			break
		}
	}
	return 0, fmt.Errorf("pagecodec: no free recordNr on page: %w", recerr.OutOfSlotSpace)
}

// IterateNonLinkRecordNrs returns the recordNrs of every non-link slot,
// ascending.
func (p *Page) IterateNonLinkRecordNrs() []uint16 {
	out := make([]uint16, 0, len(p.recordNrs))
	for i, nr := range p.recordNrs {
		if !p.linkBits[i] {
			out = append(out, nr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllRecordNrs returns every slot's recordNr (link and non-link),
// ascending. Used to recompute a page's min/max recordNr range from
// scratch after a removal, since the removed value's neighbors can't
// be derived incrementally.
func (p *Page) AllRecordNrs() []uint16 {
	out := append([]uint16(nil), p.recordNrs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InsertRecord appends data as a new slot named recordNr.
func (p *Page) InsertRecord(data []byte, recordNr uint16, isLink bool) error {
	if !p.tailKnown {
		return fmt.Errorf("pagecodec: tail not decoded: %w", recerr.StructuralError)
	}
	if len(p.recordNrs) >= MaxRecordNr {
		return fmt.Errorf("pagecodec: page already holds %d records: %w", len(p.recordNrs), recerr.OutOfSlotSpace)
	}
	if _, ok := p.findSlot(recordNr); ok {
		return fmt.Errorf("pagecodec: recordNr %d already in use: %w", recordNr, recerr.StructuralError)
	}
	start := p.offsets[len(p.offsets)-1]
	p.payload = append(p.payload, data...)
	p.offsets = append(p.offsets, start+len(data))
	p.recordNrs = append(p.recordNrs, recordNr)
	p.linkBits = append(p.linkBits, isLink)
	return nil
}

// InsertEmptyRecord reserves size zero-filled bytes for recordNr, used
// when replaying a persisted reservation whose original content was
// never flushed to disk.
func (p *Page) InsertEmptyRecord(recordNr uint16, size int) error {
	return p.InsertRecord(make([]byte, size), recordNr, false)
}

// Remove deletes recordNr's slot, shifting subsequent payload bytes and
// slot entries left in place.
func (p *Page) Remove(recordNr uint16) error {
	if !p.tailKnown {
		return fmt.Errorf("pagecodec: tail not decoded: %w", recerr.StructuralError)
	}
	idx, ok := p.findSlot(recordNr)
	if !ok {
		return fmt.Errorf("pagecodec: recordNr %d absent: %w", recordNr, recerr.StructuralError)
	}
	removedLen := p.offsets[idx+1] - p.offsets[idx]

	p.payload = append(p.payload[:p.offsets[idx]], p.payload[p.offsets[idx+1]:]...)

	newOffsets := make([]int, 0, len(p.offsets)-1)
	newOffsets = append(newOffsets, p.offsets[:idx+1]...)
	for _, off := range p.offsets[idx+2:] {
		newOffsets = append(newOffsets, off-removedLen)
	}
	p.offsets = newOffsets

	p.recordNrs = append(p.recordNrs[:idx], p.recordNrs[idx+1:]...)
	p.linkBits = append(p.linkBits[:idx], p.linkBits[idx+1:]...)
	return nil
}

// Update replaces recordNr's slot content and link flag; it is
// spec.md's remove-then-insert composition.
func (p *Page) Update(recordNr uint16, data []byte, isLink bool) error {
	if err := p.Remove(recordNr); err != nil {
		return err
	}
	return p.InsertRecord(data, recordNr, isLink)
}

// Encode serializes the page to a byte slice of exactly EncodedSize
// bytes; padding it to pageSize is left to the page container.
func (p *Page) Encode() ([]byte, error) {
	n := len(p.recordNrs)
	size := p.EncodedSize()
	if size > p.pageSize {
		return nil, fmt.Errorf("pagecodec: encoded size %d exceeds page size %d: %w", size, p.pageSize, recerr.StructuralError)
	}
	w := OffsetWidth(p.pageSize)
	buf := make([]byte, size)

	binary.LittleEndian.PutUint16(buf[0:2], uint16(n))
	bmOff := 2
	bmLen := bitmapBytes(n)
	for i, link := range p.linkBits {
		if link {
			buf[bmOff+i/8] |= 1 << uint(i%8)
		}
	}
	slotOff := bmOff + bmLen
	for i := 0; i < n; i++ {
		putUint(buf[slotOff:], w, uint64(p.offsets[i]))
		binary.LittleEndian.PutUint16(buf[slotOff+w:], p.recordNrs[i])
		slotOff += w + 2
	}
	putUint(buf[slotOff:], w, uint64(p.offsets[n]))
	slotOff += w

	copy(buf[slotOff:], p.payload)
	return buf, nil
}

func putUint(b []byte, width int, v uint64) {
	if width == 2 {
		binary.LittleEndian.PutUint16(b, uint16(v))
	} else {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func getUint(b []byte, width int) uint64 {
	if width == 2 {
		return uint64(binary.LittleEndian.Uint16(b))
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

// DecodeHeader parses a page's slot directory (numberOfRecords, link
// bitmap, slot entries, trailing offset) without copying payload
// bytes.
func DecodeHeader(raw []byte, pageSize int) (*Page, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("pagecodec: page buffer too small: %w", recerr.PersistenceError)
	}
	n := int(binary.LittleEndian.Uint16(raw[0:2]))
	w := OffsetWidth(pageSize)
	bmLen := bitmapBytes(n)
	headerLen := HeaderSize(pageSize, n)
	if len(raw) < headerLen {
		return nil, fmt.Errorf("pagecodec: page buffer shorter than header: %w", recerr.PersistenceError)
	}

	bmOff := 2
	linkBits := make([]bool, n)
	for i := 0; i < n; i++ {
		linkBits[i] = raw[bmOff+i/8]&(1<<uint(i%8)) != 0
	}

	slotOff := bmOff + bmLen
	recordNrs := make([]uint16, n)
	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		offsets[i] = int(getUint(raw[slotOff:], w))
		recordNrs[i] = binary.LittleEndian.Uint16(raw[slotOff+w:])
		slotOff += w + 2
	}
	offsets[n] = int(getUint(raw[slotOff:], w))

	return &Page{
		pageSize:  pageSize,
		offsets:   offsets,
		recordNrs: recordNrs,
		linkBits:  linkBits,
		tailKnown: false,
	}, nil
}

// DecodeTail fills in p's payload bytes from raw, which must be the
// same buffer (or an equal copy) DecodeHeader parsed p from.
func DecodeTail(p *Page, raw []byte) error {
	headerLen := HeaderSize(p.pageSize, len(p.recordNrs))
	used := p.offsets[len(p.offsets)-1]
	if len(raw) < headerLen+used {
		return fmt.Errorf("pagecodec: page buffer shorter than declared payload: %w", recerr.PersistenceError)
	}
	p.payload = append([]byte(nil), raw[headerLen:headerLen+used]...)
	p.tailKnown = true
	return nil
}
