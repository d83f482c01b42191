package rtreenode

import (
	"reflect"
	"testing"

	"github.com/sorenkrogh/recman/pageio"
)

func TestLeafNodeRoundTrip(t *testing.T) {
	n := Node{
		Leaf: true,
		Entries: []Entry{
			{MBR: Rect{Min: []float64{0, 0}, Max: []float64{1, 1}}, Payload: []byte("a")},
			{MBR: Rect{Min: []float64{5, 5}, Max: []float64{6, 6}}, Payload: []byte("bb")},
		},
	}
	buf, err := Encode(n, 2)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, n) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, n)
	}
}

func TestInternalNodeRoundTrip(t *testing.T) {
	n := Node{
		Leaf: false,
		Entries: []Entry{
			{MBR: Rect{Min: []float64{0}, Max: []float64{10}}, Child: pageio.TID{PageID: 3, RecordNr: 1}},
		},
	}
	buf, err := Encode(n, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, n) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, n)
	}
}

func TestIntersects(t *testing.T) {
	a := Rect{Min: []float64{0, 0}, Max: []float64{2, 2}}
	b := Rect{Min: []float64{1, 1}, Max: []float64{3, 3}}
	c := Rect{Min: []float64{10, 10}, Max: []float64{11, 11}}
	if !Intersects(a, b) {
		t.Fatalf("a and b should intersect")
	}
	if Intersects(a, c) {
		t.Fatalf("a and c should not intersect")
	}
}

func TestUnion(t *testing.T) {
	a := Rect{Min: []float64{0, 0}, Max: []float64{1, 1}}
	b := Rect{Min: []float64{2, -1}, Max: []float64{3, 0.5}}
	u := Union(a, b)
	want := Rect{Min: []float64{0, -1}, Max: []float64{3, 1}}
	if !reflect.DeepEqual(u, want) {
		t.Fatalf("Union = %+v, want %+v", u, want)
	}
}
