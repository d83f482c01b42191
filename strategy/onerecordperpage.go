package strategy

import (
	"github.com/sorenkrogh/recman/pageinfo"
	"github.com/sorenkrogh/recman/pageio"
)

// OneRecordPerPage never reuses a page: every record gets its own page.
type OneRecordPerPage struct{}

func (s *OneRecordPerPage) Init(*pageinfo.PagesMap, int, int) {}

func (s *OneRecordPerPage) GetPageForRecord(int) (pageio.PageID, bool) { return 0, false }

func (s *OneRecordPerPage) PageInserted(pageio.PageID, *pageinfo.PageInformation) {}

func (s *OneRecordPerPage) PageRemoved(pageio.PageID, *pageinfo.PageInformation) {}

func (s *OneRecordPerPage) RecordUpdated(pageio.PageID, *pageinfo.PageInformation, uint16, int, int, int) {
}

func (s *OneRecordPerPage) Close() error { return nil }
