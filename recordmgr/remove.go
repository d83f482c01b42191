package recordmgr

import (
	"fmt"

	"github.com/sorenkrogh/recman/pagecodec"
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// Remove deletes the record stored under id. If iteration is in
// progress, the removal is deferred to iteration's completion so the
// underlying page traversal is never invalidated mid-scan.
func (m *Manager) Remove(id ID) error {
	if m.iterating {
		m.deferredRemoves = append(m.deferredRemoves, id)
		return nil
	}
	return m.removeNow(id)
}

func (m *Manager) removeNow(id ID) error {
	r, err := m.resolve(id)
	if err != nil {
		return err
	}

	size, err := r.page.GetRecordSize(r.tid.RecordNr)
	if err != nil {
		return fmt.Errorf("recordmgr: remove %v: %w", r.tid, err)
	}
	if err := m.removeSlot(r.tid, r.page, r.pi, -1, -size, 0); err != nil {
		return err
	}

	if r.viaLink {
		if err := m.removeSlot(r.originalTID, r.originalPg, r.originalPI, 0, -pageio.TIDSize, -1); err != nil {
			return err
		}
	}

	m.translator.Remove(id)
	return nil
}

// removeSlot removes recordNr's slot from page and either frees the
// page (if it becomes empty) or rewrites it and applies the given
// PageInformation delta.
func (m *Manager) removeSlot(tid TID, page *pagecodec.Page, pi *pageinfo.PageInformation, deltaRecords, deltaBytes, deltaLinks int) error {
	if err := page.Remove(tid.RecordNr); err != nil {
		return fmt.Errorf("recordmgr: remove slot %v: %w", tid, err)
	}
	if page.SlotCount() == 0 {
		if err := m.container.Remove(tid.PageID); err != nil {
			return fmt.Errorf("recordmgr: free page %v: %w", tid.PageID, err)
		}
		m.strategy.PageRemoved(tid.PageID, pi)
		m.pages.Delete(tid.PageID)
		m.numberOfRecords += deltaRecords
		m.numberOfLinkRecords += deltaLinks
		return nil
	}
	pi.Reset(page.AllRecordNrs())
	if err := m.savePage(tid.PageID, page); err != nil {
		return err
	}
	m.updateReserveInformation(tid.PageID, pi, tid.RecordNr, deltaRecords, deltaBytes, deltaLinks)
	return nil
}

// flushDeferredRemoves applies every removal queued while an iterator
// was active. Called when the last live iterator completes.
func (m *Manager) flushDeferredRemoves() error {
	pending := m.deferredRemoves
	m.deferredRemoves = nil
	for _, id := range pending {
		if err := m.removeNow(id); err != nil {
			return err
		}
	}
	return nil
}
