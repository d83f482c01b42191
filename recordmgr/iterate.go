package recordmgr

import (
	"fmt"

	"github.com/sorenkrogh/recman/idtranslate"
)

// Entry pairs an id with the raw bytes stored under it.
type Entry struct {
	ID   ID
	Data []byte
}

// idsByPages enumerates TIDs in pageId order by reading every tracked
// page's non-link slots. Used when the translator has no id set of its
// own to enumerate (spec.md §4.4: "else iterate pages in pageId order
// and, per page, enumerate non-link slot recordNrs").
func (m *Manager) idsByPages() ([]TID, error) {
	var tids []TID
	for _, pageID := range m.pages.Keys() {
		p, _, err := m.loadPageFlushed(pageID)
		if err != nil {
			return nil, fmt.Errorf("recordmgr: iterate: %w", err)
		}
		for _, nr := range p.IterateNonLinkRecordNrs() {
			tids = append(tids, TID{PageID: pageID, RecordNr: nr})
		}
	}
	return tids, nil
}

// withIteration runs fn while marking iteration in progress, so any
// Remove issued from within fn is deferred, then flushes deferred
// removes once fn returns (successfully or not).
func (m *Manager) withIteration(fn func() error) error {
	wasIterating := m.iterating
	m.iterating = true
	err := fn()
	if !wasIterating {
		m.iterating = false
		if flushErr := m.flushDeferredRemoves(); flushErr != nil && err == nil {
			err = flushErr
		}
	}
	return err
}

// IDs enumerates every live external id. If the translator owns its
// own id set (Map), that set is returned directly; otherwise ids are
// derived from a pageId-ordered scan of non-link slots (Identity).
func (m *Manager) IDs() ([]ID, error) {
	if ids, ok := m.translator.IDs(); ok {
		return ids, nil
	}
	var out []ID
	err := m.withIteration(func() error {
		tids, err := m.idsByPages()
		if err != nil {
			return err
		}
		out = make([]ID, len(tids))
		for i, tid := range tids {
			out[i] = idtranslate.FromTID(tid)
		}
		return nil
	})
	return out, err
}

// Objects returns the raw bytes of every live record, in the order IDs
// returns their ids.
func (m *Manager) Objects() ([][]byte, error) {
	var out [][]byte
	err := m.withIteration(func() error {
		ids, err := m.IDs()
		if err != nil {
			return err
		}
		out = make([][]byte, 0, len(ids))
		for _, id := range ids {
			data, err := m.Get(id)
			if err != nil {
				return err
			}
			out = append(out, data)
		}
		return nil
	})
	return out, err
}

// Entries returns every live (id, bytes) pair.
func (m *Manager) Entries() ([]Entry, error) {
	var out []Entry
	err := m.withIteration(func() error {
		ids, err := m.IDs()
		if err != nil {
			return err
		}
		out = make([]Entry, 0, len(ids))
		for _, id := range ids {
			data, err := m.Get(id)
			if err != nil {
				return err
			}
			out = append(out, Entry{ID: id, Data: data})
		}
		return nil
	})
	return out, err
}
