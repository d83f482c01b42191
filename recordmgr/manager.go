// Package recordmgr implements the top-level record manager spec.md
// §4.4–§4.5 describes: disk-resident records addressed by an opaque
// external id, placed by a pluggable strategy, and kept stable across
// moves by one-hop link-record forwarding.
package recordmgr

import (
	"fmt"

	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/pagecodec"
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recerr"
	"github.com/sorenkrogh/recman/strategy"
)

// TID is the internal tuple identifier every strategy and the page
// codec key their state on.
type TID = pageio.TID

// ID is the external id insert returns and get/update/remove consume.
type ID = idtranslate.ExternalID

// Manager wires a page container, the slotted-page codec, the pages
// map, a placement strategy, and an id translator together. A Manager
// is not safe for concurrent use.
type Manager struct {
	container     pageio.Container
	pages         *pageinfo.PagesMap
	strategy      strategy.Strategy
	translator    idtranslate.Translator
	pageSize      int
	maxObjectSize int

	numberOfRecords     int
	numberOfLinkRecords int

	maxDirectReserves int

	iterating       bool
	deferredRemoves []ID
}

// New constructs a Manager over an empty container: a fresh pages map
// with the strategy Init'd against it, and the translator used as given.
func New(container pageio.Container, strat strategy.Strategy, translator idtranslate.Translator, maxDirectReserves int) *Manager {
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
	m.strategy.Init(m.pages, m.pageSize, m.maxObjectSize)
	return m
}

// MaxObjectSize is pageSize − encodedSize(pageSize, 1, 0): the largest
// record this manager can ever place on an otherwise-empty page.
func (m *Manager) MaxObjectSize() int { return m.maxObjectSize }

// NumberOfPages is the count of pages currently tracked.
func (m *Manager) NumberOfPages() int { return m.pages.Len() }

// Size is the total live record count (non-link slots) across all
// pages.
func (m *Manager) Size() int { return m.numberOfRecords }

// SizeOfAllStoredRecords sums NumberOfBytesUsedByRecords across every
// tracked page, including link-record overhead.
func (m *Manager) SizeOfAllStoredRecords() int {
	total := 0
	m.pages.Each(func(_ pageio.PageID, pi *pageinfo.PageInformation) {
		total += pi.NumberOfBytesUsedByRecords
	})
	return total
}

// SpaceUsagePercentage is SizeOfAllStoredRecords over the raw
// page-capacity bytes currently allocated.
func (m *Manager) SpaceUsagePercentage() float64 {
	pages := m.pages.Len()
	if pages == 0 {
		return 0
	}
	return float64(m.SizeOfAllStoredRecords()) / float64(pages*m.pageSize)
}

// GetIdSize returns the translator's external-id wire width: 8 for a
// Map translator's uint64 handle, pageio.TIDSize for any other
// translator (Identity ids are TIDs).
func (m *Manager) GetIdSize() int {
	if _, ok := m.translator.(*idtranslate.Map); ok {
		return 8 // uint64 handle
	}
	return pageio.TIDSize
}

// loadPageFlushed decodes id's full page (header + tail) and flushes
// any pending reservations from its PageInformation into the decoded
// body, persisting the flush immediately so every later reader of this
// page sees the real content.
func (m *Manager) loadPageFlushed(id pageio.PageID) (*pagecodec.Page, *pageinfo.PageInformation, error) {
	pi := m.pages.Get(id)
	if pi == nil {
		return nil, nil, fmt.Errorf("recordmgr: page %v not tracked: %w", id, recerr.StructuralError)
	}
	raw, err := m.container.Get(id)
	if err != nil {
		return nil, nil, fmt.Errorf("recordmgr: read page %v: %w", id, err)
	}
	p, err := pagecodec.DecodeHeader(raw, m.pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("recordmgr: decode page %v header: %w", id, err)
	}
	if err := pagecodec.DecodeTail(p, raw); err != nil {
		return nil, nil, fmt.Errorf("recordmgr: decode page %v tail: %w", id, err)
	}
	if pending := pi.PendingReservations(); len(pending) > 0 {
		for _, r := range pending {
			if r.Data != nil {
				if err := p.InsertRecord(r.Data, r.RecordNr, false); err != nil {
					return nil, nil, fmt.Errorf("recordmgr: flush reservation on page %v: %w", id, err)
				}
			} else if err := p.InsertEmptyRecord(r.RecordNr, r.Length); err != nil {
				return nil, nil, fmt.Errorf("recordmgr: flush reservation on page %v: %w", id, err)
			}
		}
		if err := m.savePage(id, p); err != nil {
			return nil, nil, err
		}
	}
	return p, pi, nil
}

func (m *Manager) savePage(id pageio.PageID, p *pagecodec.Page) error {
	raw, err := p.Encode()
	if err != nil {
		return fmt.Errorf("recordmgr: encode page %v: %w", id, err)
	}
	if err := m.container.Update(id, raw); err != nil {
		return fmt.Errorf("recordmgr: write page %v: %w", id, err)
	}
	return nil
}

// updateReserveInformation applies a delta to pi and notifies the
// strategy with the same delta, in that order — the invariant spec.md
// §5 requires of every PageInformation mutation.
func (m *Manager) updateReserveInformation(id pageio.PageID, pi *pageinfo.PageInformation, recordNr uint16, deltaRecords, deltaBytes, deltaLinks int) {
	pi.ApplyDelta(recordNr, deltaRecords, deltaBytes, deltaLinks)
	m.strategy.RecordUpdated(id, pi, recordNr, deltaRecords, deltaBytes, deltaLinks)
	m.numberOfRecords += deltaRecords
	m.numberOfLinkRecords += deltaLinks
}

// Insert stores bytes as a new record and returns its external id.
func (m *Manager) Insert(data []byte) (ID, error) {
	tid, err := m.insertBytes(data)
	if err != nil {
		return ID{}, err
	}
	return m.translator.Insert(tid), nil
}

// insertBytes is the internal insert algorithm (spec.md §4.4), shared
// by Insert and the fallback paths of Update and Reserve. It returns
// the TID a caller then wraps via the translator (or uses directly,
// for link/map rewiring).
func (m *Manager) insertBytes(data []byte) (TID, error) {
	if len(data) > m.maxObjectSize {
		return TID{}, fmt.Errorf("recordmgr: record of %d bytes exceeds max %d: %w", len(data), m.maxObjectSize, recerr.RecordTooLarge)
	}
	pageID, ok := m.strategy.GetPageForRecord(len(data))
	var recordNr uint16
	var pi *pageinfo.PageInformation
	if !ok {
		p := pagecodec.New(m.pageSize)
		if err := p.InsertRecord(data, 0, false); err != nil {
			return TID{}, fmt.Errorf("recordmgr: insert into new page: %w", err)
		}
		raw, err := p.Encode()
		if err != nil {
			return TID{}, fmt.Errorf("recordmgr: encode new page: %w", err)
		}
		pageID, err = m.container.Insert(raw)
		if err != nil {
			return TID{}, fmt.Errorf("recordmgr: allocate new page: %w", err)
		}
		pi = pageinfo.New(m.maxDirectReserves)
		m.pages.Put(pageID, pi)
		m.strategy.PageInserted(pageID, pi)
		recordNr = 0
	} else {
		p, loadedPI, err := m.loadPageFlushed(pageID)
		if err != nil {
			return TID{}, err
		}
		pi = loadedPI
		recordNr, err = p.GetFreeRecordNumber()
		if err != nil {
			return TID{}, fmt.Errorf("recordmgr: allocate recordNr on page %v: %w", pageID, err)
		}
		if err := p.InsertRecord(data, recordNr, false); err != nil {
			return TID{}, fmt.Errorf("recordmgr: insert into page %v: %w", pageID, err)
		}
		if p.EncodedSize() > m.pageSize {
			return TID{}, fmt.Errorf("recordmgr: strategy returned page %v that does not fit: %w", pageID, recerr.StructuralError)
		}
		if err := m.savePage(pageID, p); err != nil {
			return TID{}, err
		}
	}
	tid := TID{PageID: pageID, RecordNr: recordNr}
	m.updateReserveInformation(pageID, pi, recordNr, 1, len(data), 0)
	return tid, nil
}

// Reserve speculatively allocates a recordNr without reading the
// target page, when the strategy's chosen page has reservation room;
// otherwise it falls back to the ordinary insert path.
func (m *Manager) Reserve(getBytes func() ([]byte, error)) (ID, error) {
	data, err := getBytes()
	if err != nil {
		return ID{}, fmt.Errorf("recordmgr: reserve: factory failed: %w", err)
	}
	if len(data) > m.maxObjectSize {
		return ID{}, fmt.Errorf("recordmgr: record of %d bytes exceeds max %d: %w", len(data), m.maxObjectSize, recerr.RecordTooLarge)
	}
	pageID, ok := m.strategy.GetPageForRecord(len(data))
	if !ok {
		tid, err := m.insertBytes(data)
		if err != nil {
			return ID{}, err
		}
		return m.translator.Insert(tid), nil
	}
	pi := m.pages.Get(pageID)
	if pi == nil || !pi.IsReservationPossible() {
		p, loadedPI, err := m.loadPageFlushed(pageID)
		if err != nil {
			return ID{}, err
		}
		recordNr, err := p.GetFreeRecordNumber()
		if err != nil {
			return ID{}, fmt.Errorf("recordmgr: allocate recordNr on page %v: %w", pageID, err)
		}
		if err := p.InsertRecord(data, recordNr, false); err != nil {
			return ID{}, fmt.Errorf("recordmgr: insert into page %v: %w", pageID, err)
		}
		if err := m.savePage(pageID, p); err != nil {
			return ID{}, err
		}
		m.updateReserveInformation(pageID, loadedPI, recordNr, 1, len(data), 0)
		return m.translator.Insert(TID{PageID: pageID, RecordNr: recordNr}), nil
	}
	recordNr, ok := pi.Reserve(data)
	if !ok {
		return ID{}, fmt.Errorf("recordmgr: reserve: page %v unexpectedly refused a reservation: %w", pageID, recerr.StructuralError)
	}
	m.strategy.RecordUpdated(pageID, pi, recordNr, 1, len(data), 0)
	m.numberOfRecords++
	return m.translator.Insert(TID{PageID: pageID, RecordNr: recordNr}), nil
}

// resolve follows id through the translator and at most one link hop,
// returning the record's current TID, its decoded page, and whether a
// link was followed (and if so, the original TID and page).
type resolved struct {
	tid  TID
	page *pagecodec.Page
	pi   *pageinfo.PageInformation

	viaLink     bool
	originalTID TID
	originalPg  *pagecodec.Page
	originalPI  *pageinfo.PageInformation
}

func (m *Manager) resolve(id ID) (resolved, error) {
	tid, ok := m.translator.Query(id)
	if !ok {
		return resolved{}, fmt.Errorf("recordmgr: id not found: %w", recerr.NotFound)
	}
	p, pi, err := m.loadPageFlushed(tid.PageID)
	if err != nil {
		return resolved{}, err
	}
	data, isLink, err := p.GetRecord(tid.RecordNr)
	if err != nil {
		return resolved{}, fmt.Errorf("recordmgr: resolve %v: %w", tid, err)
	}
	if !isLink {
		return resolved{tid: tid, page: p, pi: pi}, nil
	}
	linkTID := pageio.DecodeTID(data)
	targetPage, targetPI, err := m.loadPageFlushed(linkTID.PageID)
	if err != nil {
		return resolved{}, err
	}
	_, isLink2, err := targetPage.GetRecord(linkTID.RecordNr)
	if err != nil {
		return resolved{}, fmt.Errorf("recordmgr: resolve link %v: %w", linkTID, err)
	}
	if isLink2 {
		return resolved{}, fmt.Errorf("recordmgr: two-hop link chain at %v: %w", tid, recerr.StructuralError)
	}
	return resolved{
		tid:         linkTID,
		page:        targetPage,
		pi:          targetPI,
		viaLink:     true,
		originalTID: tid,
		originalPg:  p,
		originalPI:  pi,
	}, nil
}

// Get returns the raw bytes stored under id.
func (m *Manager) Get(id ID) ([]byte, error) {
	r, err := m.resolve(id)
	if err != nil {
		return nil, err
	}
	data, _, err := r.page.GetRecord(r.tid.RecordNr)
	if err != nil {
		return nil, fmt.Errorf("recordmgr: get %v: %w", r.tid, err)
	}
	return append([]byte(nil), data...), nil
}

// Clear removes every page from the container, resets all derived
// state, and re-Inits the strategy against the now-empty pages map. The
// translator is left untouched, so a Map translator still holds
// mappings for the removed records.
func (m *Manager) Clear() error {
	ids := m.pages.Keys()
	toRemove := append([]pageio.PageID(nil), ids...)
	if err := m.container.RemoveAll(toRemove); err != nil {
		return fmt.Errorf("recordmgr: clear: %w", err)
	}
	m.pages = pageinfo.NewPagesMap()
	m.numberOfRecords = 0
	m.numberOfLinkRecords = 0
	m.strategy.Init(m.pages, m.pageSize, m.maxObjectSize)
	return nil
}

// Close flushes the container, closes the strategy, then closes the
// container. The translator is not closed. Only Read/Write of state are
// legal afterward.
func (m *Manager) Close() error {
	if err := m.container.Flush(); err != nil {
		return fmt.Errorf("recordmgr: close: flush: %w", err)
	}
	if err := m.strategy.Close(); err != nil {
		return fmt.Errorf("recordmgr: close: strategy: %w", err)
	}
	return m.container.Close()
}
