package idtranslate

import "github.com/sorenkrogh/recman/pageio"

// Identity is the translator whose external id is the TID itself.
// Insert/Update/Remove are no-ops because nothing needs to be
// remembered; stability across record moves comes entirely from the
// record manager installing a link record at the old TID (spec.md
// §4.5), which is why UseLinks reports true.
type Identity struct{}

func (Identity) Insert(tid pageio.TID) ExternalID { return FromTID(tid) }

func (Identity) Query(id ExternalID) (pageio.TID, bool) {
	if !id.IsTID() {
		return pageio.TID{}, false
	}
	return id.TID, true
}

func (Identity) Update(ExternalID, pageio.TID) {}

func (Identity) Remove(ExternalID) {}

func (Identity) IDs() ([]ExternalID, bool) { return nil, false }

func (Identity) UseLinks() bool { return true }
