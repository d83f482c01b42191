// Package rtreenode provides the minimal (de)serializer spec.md §1
// asks for to demonstrate that spatial index nodes are, to the record
// manager, just opaque bytes: a fixed-dimension bounding-box entry list
// packed into a byte slice suitable for recordmgr.Manager.Insert. It is
// not an R-tree: there is no split/insert/search algorithm here, only
// the wire format a real R-tree's node type would use to ride on top
// of the record manager.
package rtreenode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recerr"
)

// Rect is an axis-aligned bounding box in Dims dimensions.
type Rect struct {
	Min []float64
	Max []float64
}

// Entry is one child of a node: its bounding box, plus either a TID
// pointing at a child node (internal entry) or an opaque payload
// (leaf entry).
type Entry struct {
	MBR     Rect
	Child   pageio.TID // zero value when Leaf
	Payload []byte     // nil for internal entries
}

// Node is a single R-tree node's content: a leaf flag and its entries.
// A full R-tree would additionally track fanout bounds and a
// split/merge policy; this package only packs and unpacks the bytes.
type Node struct {
	Leaf    bool
	Entries []Entry
}

// Encode packs n into a byte slice, recording dims so Decode can parse
// MBRs without external context.
func Encode(n Node, dims int) ([]byte, error) {
	for _, e := range n.Entries {
		if len(e.MBR.Min) != dims || len(e.MBR.Max) != dims {
			return nil, fmt.Errorf("rtreenode: entry MBR has wrong dimension: %w", recerr.StructuralError)
		}
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, boolByte(n.Leaf))
	buf = appendUint16(buf, uint16(dims))
	buf = appendUint32(buf, uint32(len(n.Entries)))
	for _, e := range n.Entries {
		for _, v := range e.MBR.Min {
			buf = appendFloat64(buf, v)
		}
		for _, v := range e.MBR.Max {
			buf = appendFloat64(buf, v)
		}
		if n.Leaf {
			buf = appendUint32(buf, uint32(len(e.Payload)))
			buf = append(buf, e.Payload...)
		} else {
			buf = append(buf, pageio.EncodeTID(e.Child)...)
		}
	}
	return buf, nil
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Node, error) {
	if len(b) < 1+2+4 {
		return Node{}, fmt.Errorf("rtreenode: buffer too small: %w", recerr.PersistenceError)
	}
	leaf := b[0] != 0
	dims := int(binary.BigEndian.Uint16(b[1:3]))
	count := int(binary.BigEndian.Uint32(b[3:7]))
	off := 7

	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		min := make([]float64, dims)
		max := make([]float64, dims)
		for d := 0; d < dims; d++ {
			if off+8 > len(b) {
				return Node{}, fmt.Errorf("rtreenode: truncated MBR: %w", recerr.PersistenceError)
			}
			min[d] = math.Float64frombits(binary.BigEndian.Uint64(b[off : off+8]))
			off += 8
		}
		for d := 0; d < dims; d++ {
			if off+8 > len(b) {
				return Node{}, fmt.Errorf("rtreenode: truncated MBR: %w", recerr.PersistenceError)
			}
			max[d] = math.Float64frombits(binary.BigEndian.Uint64(b[off : off+8]))
			off += 8
		}
		e := Entry{MBR: Rect{Min: min, Max: max}}
		if leaf {
			if off+4 > len(b) {
				return Node{}, fmt.Errorf("rtreenode: truncated payload length: %w", recerr.PersistenceError)
			}
			plen := int(binary.BigEndian.Uint32(b[off : off+4]))
			off += 4
			if off+plen > len(b) {
				return Node{}, fmt.Errorf("rtreenode: truncated payload: %w", recerr.PersistenceError)
			}
			e.Payload = append([]byte(nil), b[off:off+plen]...)
			off += plen
		} else {
			if off+pageio.TIDSize > len(b) {
				return Node{}, fmt.Errorf("rtreenode: truncated child tid: %w", recerr.PersistenceError)
			}
			e.Child = pageio.DecodeTID(b[off : off+pageio.TIDSize])
			off += pageio.TIDSize
		}
		entries = append(entries, e)
	}
	return Node{Leaf: leaf, Entries: entries}, nil
}

// Union returns the smallest Rect enclosing both a and b.
func Union(a, b Rect) Rect {
	dims := len(a.Min)
	min := make([]float64, dims)
	max := make([]float64, dims)
	for d := 0; d < dims; d++ {
		min[d] = math.Min(a.Min[d], b.Min[d])
		max[d] = math.Max(a.Max[d], b.Max[d])
	}
	return Rect{Min: min, Max: max}
}

// Intersects reports whether a and b overlap in every dimension.
func Intersects(a, b Rect) bool {
	for d := range a.Min {
		if a.Max[d] < b.Min[d] || b.Max[d] < a.Min[d] {
			return false
		}
	}
	return true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendFloat64(b []byte, v float64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(b, tmp[:]...)
}
