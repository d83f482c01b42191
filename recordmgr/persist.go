package recordmgr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/pagecodec"
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recerr"
	"github.com/sorenkrogh/recman/strategy"
)

// Write persists the manager's core state per spec.md §6, preceded by
// the container stamp (see writeStamp): record counters, then the pages
// map as a length-prefixed sequence of
// (pageId, PageInformation) pairs. Strategy state is not written
// separately — every strategy variant this repository ships
// reconstructs its derived indexes from the pages map on Init, so only
// the pages map itself needs to survive a restart (spec.md §6:
// "histograms and witness tables are transient and reconstructed in
// init"). The translator's own durable state (relevant only to
// idtranslate.Map) is the caller's responsibility: which concrete
// translator is in play is a deployment choice recorded in config, not
// part of this wire format.
func (m *Manager) Write(w io.Writer) error {
	if err := writeStamp(w, m.container); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(m.numberOfRecords)); err != nil {
		return fmt.Errorf("recordmgr: write numberOfRecords: %w", err)
	}
	if err := writeUint32(w, uint32(m.numberOfLinkRecords)); err != nil {
		return fmt.Errorf("recordmgr: write numberOfLinkRecords: %w", err)
	}

	conv := m.container.IDConverter()
	keys := m.pages.Keys()
	if err := writeUint32(w, uint32(len(keys))); err != nil {
		return fmt.Errorf("recordmgr: write pages count: %w", err)
	}
	for _, id := range keys {
		if _, err := w.Write(conv.Encode(id)); err != nil {
			return fmt.Errorf("recordmgr: write pageId %v: %w", id, err)
		}
		if err := writePageInformation(w, m.pages.Get(id)); err != nil {
			return fmt.Errorf("recordmgr: write PageInformation for %v: %w", id, err)
		}
	}
	return nil
}

// LoadManager reconstructs a Manager from a stream previously produced
// by Write. strat and translator must already be freshly constructed
// (for idtranslate.Map, typically via idtranslate.ReadMap against its
// own persisted stream) — LoadManager rebuilds the pages map and then
// calls strat.Init against it, matching the construction order New
// uses.
func LoadManager(container pageio.Container, strat strategy.Strategy, translator idtranslate.Translator, maxDirectReserves int, r io.Reader) (*Manager, error) {
	if err := checkStamp(r, container); err != nil {
		return nil, err
	}

	pageSize := container.PageSize()
	m := &Manager{
		container:         container,
		pages:             pageinfo.NewPagesMap(),
		strategy:          strat,
		translator:        translator,
		pageSize:          pageSize,
		maxObjectSize:     pageSize - pagecodec.EncodedSize(pageSize, 1, 0),
		maxDirectReserves: maxDirectReserves,
	}

	numberOfRecords, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("recordmgr: read numberOfRecords: %w", err)
	}
	numberOfLinkRecords, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("recordmgr: read numberOfLinkRecords: %w", err)
	}
	m.numberOfRecords = int(numberOfRecords)
	m.numberOfLinkRecords = int(numberOfLinkRecords)

	pagesCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("recordmgr: read pages count: %w", err)
	}
	conv := container.IDConverter()
	idBuf := make([]byte, conv.Size())
	for i := uint32(0); i < pagesCount; i++ {
		if _, err := io.ReadFull(r, idBuf); err != nil {
			return nil, fmt.Errorf("recordmgr: read pageId: %w", err)
		}
		id, err := conv.Decode(idBuf)
		if err != nil {
			return nil, fmt.Errorf("recordmgr: decode pageId: %w", err)
		}
		pi, err := readPageInformation(r, maxDirectReserves)
		if err != nil {
			return nil, fmt.Errorf("recordmgr: read PageInformation for %v: %w", id, err)
		}
		m.pages.Put(id, pi)
	}

	m.strategy.Init(m.pages, m.pageSize, m.maxObjectSize)
	return m, nil
}

func writePageInformation(w io.Writer, pi *pageinfo.PageInformation) error {
	if err := writeUint16(w, uint16(pi.NumberOfRecords)); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(pi.NumberOfLinkRecords)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(pi.NumberOfBytesUsedByRecords)); err != nil {
		return err
	}
	if err := writeUint16(w, int16AsUint16(pi.MinRecordNumber)); err != nil {
		return err
	}
	if err := writeUint16(w, int16AsUint16(pi.MaxRecordNumber)); err != nil {
		return err
	}
	pending := pi.PeekReservations()
	if err := writeUint16(w, uint16(len(pending))); err != nil {
		return err
	}
	for _, res := range pending {
		if err := writeUint16(w, res.RecordNr); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(res.Length)); err != nil {
			return err
		}
	}
	return nil
}

func readPageInformation(r io.Reader, maxDirectReserves int) (*pageinfo.PageInformation, error) {
	numberOfRecords, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	numberOfLinkRecords, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	numberOfBytesUsedByRecords, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	minRecordNumber, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	maxRecordNumber, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	reservationCount, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	pi := pageinfo.New(maxDirectReserves)
	pi.NumberOfRecords = int(numberOfRecords)
	pi.NumberOfLinkRecords = int(numberOfLinkRecords)
	pi.NumberOfBytesUsedByRecords = int(numberOfBytesUsedByRecords)
	pi.MinRecordNumber = int(int16(minRecordNumber))
	pi.MaxRecordNumber = int(int16(maxRecordNumber))

	for i := uint16(0); i < reservationCount; i++ {
		recordNr, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		length, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		pi.LoadReservation(recordNr, int(length))
	}
	return pi, nil
}

// writeStamp records container's durable identity stamp ahead of the
// rest of Write's payload, when container carries one (spec.md §6: "a
// store stamp ... checked on every open"). A presence byte lets
// LoadManager tell a stampless container's state apart from a
// corrupted stream.
func writeStamp(w io.Writer, container pageio.Container) error {
	s, ok := container.(pageio.Stamped)
	if !ok {
		_, err := w.Write([]byte{0})
		return err
	}
	stamp, err := s.Stamp()
	if err != nil {
		return fmt.Errorf("recordmgr: read container stamp: %w", err)
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	_, err = w.Write(stamp[:])
	return err
}

// checkStamp is writeStamp's inverse: it rejects a persisted state
// written against a different container's stamp, and is a no-op when
// either side carries no stamp at all.
func checkStamp(r io.Reader, container pageio.Container) error {
	var present [1]byte
	if _, err := io.ReadFull(r, present[:]); err != nil {
		return fmt.Errorf("recordmgr: read stamp presence: %w", err)
	}
	if present[0] == 0 {
		return nil
	}
	var want [16]byte
	if _, err := io.ReadFull(r, want[:]); err != nil {
		return fmt.Errorf("recordmgr: read stamp: %w", err)
	}
	s, ok := container.(pageio.Stamped)
	if !ok {
		return nil
	}
	got, err := s.Stamp()
	if err != nil {
		return fmt.Errorf("recordmgr: read container stamp: %w", err)
	}
	if got != want {
		return fmt.Errorf("recordmgr: state was persisted for a different container: %w", recerr.PersistenceError)
	}
	return nil
}

func int16AsUint16(v int) uint16 {
	return uint16(int16(v))
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
