// Command shpload loads a Shapefile's geometries into a record manager
// instance as opaque records, demonstrating spec.md §6's point that
// spatial payloads are just bytes to the record manager: each shape's
// bounding box and coordinates are packed via rtreenode.Encode as a
// single-entry leaf node, then inserted, printing the assigned id.
//
// Grounded on tinySQL/internal/importer/shapefile.go's shp.Open/r.Next/
// r.Shape usage, adapted from "import into a SQL table" to "insert into
// a record manager".
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"

	shp "github.com/jonas-p/go-shp"

	"github.com/sorenkrogh/recman/config"
	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recordmgr"
	"github.com/sorenkrogh/recman/rtreenode"
)

func main() {
	shpPath := flag.String("shp", "", "path to .shp file")
	dataDir := flag.String("datadir", "./shpload-data", "directory for the backing bbolt store")
	pageSize := flag.Int("pagesize", 4096, "page size in bytes")
	flag.Parse()

	if *shpPath == "" {
		fmt.Fprintln(os.Stderr, "shpload: -shp is required")
		os.Exit(2)
	}
	if err := run(*shpPath, *dataDir, *pageSize); err != nil {
		fmt.Fprintf(os.Stderr, "shpload: %v\n", err)
		os.Exit(1)
	}
}

func run(shpPath, dataDir string, pageSize int) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}

	r, err := shp.Open(shpPath)
	if err != nil {
		return fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	pc, err := pageio.Open(dataDir, "shpload.bolt", pageSize)
	if err != nil {
		return fmt.Errorf("open page container: %w", err)
	}
	defer pc.Close()

	cfg := config.Default(dataDir)
	cfg.PageSize = pageSize
	strat, err := cfg.BuildStrategy()
	if err != nil {
		return err
	}
	mgr := recordmgr.New(pc, strat, idtranslate.Identity{}, cfg.NumberOfDirectReserves)

	count := 0
	for r.Next() {
		_, shape := r.Shape()
		node, err := nodeForShape(shape)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shpload: skipping shape %d: %v\n", count, err)
			continue
		}
		buf, err := rtreenode.Encode(node, 2)
		if err != nil {
			return fmt.Errorf("encode shape %d: %w", count, err)
		}
		id, err := mgr.Insert(buf)
		if err != nil {
			return fmt.Errorf("insert shape %d: %w", count, err)
		}
		fmt.Printf("shape %d -> T:%d:%d\n", count, id.TID.PageID, id.TID.RecordNr)
		count++
	}

	fmt.Printf("inserted %d shapes\n", count)
	return mgr.Close()
}

// nodeForShape packs one shapefile geometry into a single-entry leaf
// rtreenode.Node: the entry's MBR is the shape's 2D bounding box, its
// payload the shape's raw point coordinates.
func nodeForShape(shape shp.Shape) (rtreenode.Node, error) {
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Point:
		points = []shp.Point{*s}
	case *shp.PolyLine:
		points = s.Points
	case *shp.Polygon:
		points = s.Points
	default:
		return rtreenode.Node{}, fmt.Errorf("unsupported shape type %T", shape)
	}
	if len(points) == 0 {
		return rtreenode.Node{}, fmt.Errorf("shape has no points")
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	entry := rtreenode.Entry{
		MBR:     rtreenode.Rect{Min: []float64{minX, minY}, Max: []float64{maxX, maxY}},
		Payload: packPoints(points),
	}
	return rtreenode.Node{Leaf: true, Entries: []rtreenode.Entry{entry}}, nil
}

// packPoints encodes a point list as a count followed by big-endian
// (x,y) float64 pairs — the raw coordinate bytes rtreenode's leaf
// payload carries opaquely.
func packPoints(points []shp.Point) []byte {
	buf := make([]byte, 4, 4+len(points)*16)
	binary.BigEndian.PutUint32(buf, uint32(len(points)))
	for _, p := range points {
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(p.X))
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(p.Y))
		buf = append(buf, tmp[:]...)
	}
	return buf
}
