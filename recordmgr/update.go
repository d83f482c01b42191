package recordmgr

import (
	"fmt"

	"github.com/sorenkrogh/recman/pagecodec"
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recerr"
)

// Update replaces the bytes stored under id (spec.md §4.4's update
// algorithm): reinsert in place if the record's page still has room
// after removal; otherwise relocate, and either rewrite the original
// slot as a link (Identity translator) or repoint the translator's
// mapping (Map translator) to keep id stable.
func (m *Manager) Update(id ID, newBytes []byte) error {
	if len(newBytes) > m.maxObjectSize {
		return fmt.Errorf("recordmgr: record of %d bytes exceeds max %d: %w", len(newBytes), m.maxObjectSize, recerr.RecordTooLarge)
	}
	r, err := m.resolve(id)
	if err != nil {
		return err
	}

	oldBytes, _, err := r.page.GetRecord(r.tid.RecordNr)
	if err != nil {
		return fmt.Errorf("recordmgr: update %v: %w", r.tid, err)
	}
	oldLen := len(oldBytes)

	if err := r.page.Remove(r.tid.RecordNr); err != nil {
		return fmt.Errorf("recordmgr: update %v: remove old slot: %w", r.tid, err)
	}

	if r.page.Fits(len(newBytes)) {
		if err := r.page.InsertRecord(newBytes, r.tid.RecordNr, false); err != nil {
			return fmt.Errorf("recordmgr: update %v: reinsert: %w", r.tid, err)
		}
		if err := m.savePage(r.tid.PageID, r.page); err != nil {
			return err
		}
		m.updateReserveInformation(r.tid.PageID, r.pi, r.tid.RecordNr, 0, len(newBytes)-oldLen, 0)
		return nil
	}

	r.pi.Reset(r.page.AllRecordNrs())
	if err := m.savePage(r.tid.PageID, r.page); err != nil {
		return err
	}
	m.updateReserveInformation(r.tid.PageID, r.pi, r.tid.RecordNr, -1, -oldLen, 0)

	if r.viaLink {
		return m.updateViaOriginalLink(id, r, newBytes)
	}
	return m.updateNoLink(id, r, newBytes)
}

// updateViaOriginalLink is reached when the record was addressed
// through a link and the new payload no longer fits at the link
// target. It first tries to fold the record directly into the
// original link page (saving tidSize bytes of indirection); failing
// that, it inserts the record elsewhere and rewrites the original slot
// to link there.
func (m *Manager) updateViaOriginalLink(id ID, r resolved, newBytes []byte) error {
	p := r.originalPg
	if err := p.Remove(r.originalTID.RecordNr); err != nil {
		return fmt.Errorf("recordmgr: update %v: remove original link slot: %w", id, err)
	}
	if p.Fits(len(newBytes)) {
		if err := p.InsertRecord(newBytes, r.originalTID.RecordNr, false); err != nil {
			return fmt.Errorf("recordmgr: update %v: fold into link page: %w", id, err)
		}
		if err := m.savePage(r.originalTID.PageID, p); err != nil {
			return err
		}
		m.updateReserveInformation(r.originalTID.PageID, r.originalPI, r.originalTID.RecordNr, 1, len(newBytes)-pageio.TIDSize, -1)
		return nil
	}

	newTid, err := m.insertBytes(newBytes)
	if err != nil {
		return fmt.Errorf("recordmgr: update %v: relocate: %w", id, err)
	}
	return m.rewriteOriginalSlot(id, r.originalTID, p, r.originalPI, newTid, true)
}

// updateNoLink is reached when the record was addressed directly (no
// link hop) and the new payload doesn't fit back on its own page.
func (m *Manager) updateNoLink(id ID, r resolved, newBytes []byte) error {
	newTid, err := m.insertBytes(newBytes)
	if err != nil {
		return fmt.Errorf("recordmgr: update %v: relocate: %w", id, err)
	}
	return m.rewriteOriginalSlot(id, r.tid, r.page, r.pi, newTid, false)
}

// rewriteOriginalSlot installs a link to newTid at the record's
// original location if the translator needs links to keep id stable;
// otherwise it repoints the translator's own mapping and leaves the
// page as already rewritten (slot removed, page saved by the caller's
// preceding step).
func (m *Manager) rewriteOriginalSlot(id ID, originalTID TID, page *pagecodec.Page, pi *pageinfo.PageInformation, newTid TID, wasAlreadyLink bool) error {
	if !m.translator.UseLinks() {
		m.translator.Update(id, newTid)
		return nil
	}
	linkBytes := pageio.EncodeTID(newTid)
	if err := page.InsertRecord(linkBytes, originalTID.RecordNr, true); err != nil {
		return fmt.Errorf("recordmgr: update %v: install link: %w", id, err)
	}
	if err := m.savePage(originalTID.PageID, page); err != nil {
		return err
	}
	if !wasAlreadyLink {
		m.updateReserveInformation(originalTID.PageID, pi, originalTID.RecordNr, 0, pageio.TIDSize, 1)
	}
	return nil
}
