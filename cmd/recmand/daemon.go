package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sorenkrogh/recman/config"
	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/pageio"
	"github.com/sorenkrogh/recman/recordmgr"
)

const stateFileName = "recman.state"

// daemon wires a page container, the configured strategy/translator,
// and the resulting recordmgr.Manager together, the way the teacher's
// SGBD wires disk.DiskManager+buffer.BufferManager+db.DBManager.
type daemon struct {
	cfg  *config.Config
	pc   *pageio.BoltContainer
	mgr  *recordmgr.Manager
	uses idtranslate.Translator // kept to re-persist Map state on save
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("recmand: create datadir: %w", err)
	}
	pc, err := pageio.Open(cfg.DataDir, cfg.BoltFile, cfg.PageSize)
	if err != nil {
		return nil, err
	}

	strat, err := cfg.BuildStrategy()
	if err != nil {
		pc.Close()
		return nil, err
	}

	statePath := filepath.Join(cfg.DataDir, stateFileName)
	f, err := os.Open(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			pc.Close()
			return nil, fmt.Errorf("recmand: open state file: %w", err)
		}
		translator, terr := cfg.BuildTranslator()
		if terr != nil {
			pc.Close()
			return nil, terr
		}
		mgr := recordmgr.New(pc, strat, translator, cfg.NumberOfDirectReserves)
		return &daemon{cfg: cfg, pc: pc, mgr: mgr, uses: translator}, nil
	}
	defer f.Close()

	translator, err := loadTranslator(cfg, f)
	if err != nil {
		pc.Close()
		return nil, err
	}
	mgr, err := recordmgr.LoadManager(pc, strat, translator, cfg.NumberOfDirectReserves, f)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("recmand: load manager state: %w", err)
	}
	return &daemon{cfg: cfg, pc: pc, mgr: mgr, uses: translator}, nil
}

func loadTranslator(cfg *config.Config, r io.Reader) (idtranslate.Translator, error) {
	if cfg.Translator == config.TranslatorMap {
		return idtranslate.ReadMap(r)
	}
	return idtranslate.Identity{}, nil
}

// Save writes translator state (if any) followed by manager state to
// the daemon's state file, mirroring db.DBManager's SaveState.
func (d *daemon) Save() error {
	statePath := filepath.Join(d.cfg.DataDir, stateFileName)
	f, err := os.Create(statePath)
	if err != nil {
		return fmt.Errorf("recmand: create state file: %w", err)
	}
	defer f.Close()

	if m, ok := d.uses.(*idtranslate.Map); ok {
		if err := m.Write(f); err != nil {
			return fmt.Errorf("recmand: write translator state: %w", err)
		}
	}
	if err := d.mgr.Write(f); err != nil {
		return fmt.Errorf("recmand: write manager state: %w", err)
	}
	return f.Sync()
}

// Run listens on stdin for commands until EXIT, in the teacher's
// sgbd.Run style: no prompt, blank lines ignored, one error per line
// printed to stderr without stopping the loop.
func (d *daemon) Run() error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "EXIT") {
			if err := d.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			return d.mgr.Close()
		}
		if err := d.ProcessCommand(line, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// ProcessCommand parses and executes a single command line, writing
// output to w.
func (d *daemon) ProcessCommand(text string, w io.Writer) error {
	fields := strings.SplitN(text, " ", 2)
	cmd := strings.ToUpper(fields[0])
	var rest string
	if len(fields) == 2 {
		rest = fields[1]
	}
	switch cmd {
	case "INSERT":
		return d.processInsert(rest, w)
	case "GET":
		return d.processGet(rest, w)
	case "UPDATE":
		return d.processUpdate(rest, w)
	case "REMOVE":
		return d.processRemove(rest, w)
	case "STATS":
		return d.processStats(w)
	case "CHECK":
		return d.processCheck(w)
	default:
		return fmt.Errorf("unsupported command: %s", text)
	}
}

// INSERT <payload>
func (d *daemon) processInsert(rest string, w io.Writer) error {
	if rest == "" {
		return fmt.Errorf("invalid INSERT syntax: missing payload")
	}
	id, err := d.mgr.Insert([]byte(rest))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "OK %s\n", formatID(id))
	return nil
}

// GET <id>
func (d *daemon) processGet(rest string, w io.Writer) error {
	id, err := parseID(rest, d.cfg.Translator)
	if err != nil {
		return err
	}
	data, err := d.mgr.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

// UPDATE <id> <payload>
func (d *daemon) processUpdate(rest string, w io.Writer) error {
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid UPDATE syntax: want UPDATE <id> <payload>")
	}
	id, err := parseID(parts[0], d.cfg.Translator)
	if err != nil {
		return err
	}
	if err := d.mgr.Update(id, []byte(parts[1])); err != nil {
		return err
	}
	fmt.Fprintln(w, "OK")
	return nil
}

// REMOVE <id>
func (d *daemon) processRemove(rest string, w io.Writer) error {
	id, err := parseID(rest, d.cfg.Translator)
	if err != nil {
		return err
	}
	if err := d.mgr.Remove(id); err != nil {
		return err
	}
	fmt.Fprintln(w, "OK")
	return nil
}

func (d *daemon) processStats(w io.Writer) error {
	fmt.Fprintf(w, "records=%d pages=%d maxObjectSize=%d spaceUsage=%.4f idSize=%d\n",
		d.mgr.Size(), d.mgr.NumberOfPages(), d.mgr.MaxObjectSize(),
		d.mgr.SpaceUsagePercentage(), d.mgr.GetIdSize())
	return nil
}

func (d *daemon) processCheck(w io.Writer) error {
	if err := d.mgr.CheckConsistency(); err != nil {
		return err
	}
	fmt.Fprintln(w, "OK")
	return nil
}

// formatID renders an external id as CLI text: "T:<pageId>:<recordNr>"
// for an Identity-backed TID, "H:<handle>" for a Map-backed handle.
func formatID(id recordmgr.ID) string {
	if id.IsTID() {
		return fmt.Sprintf("T:%d:%d", id.TID.PageID, id.TID.RecordNr)
	}
	return fmt.Sprintf("H:%d", id.Handle)
}

// parseID is formatID's inverse. kind disambiguates a bare numeric id
// typed without a prefix, matching the daemon's configured translator.
func parseID(s string, kind config.TranslatorKind) (recordmgr.ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return recordmgr.ID{}, fmt.Errorf("missing id")
	}
	if strings.HasPrefix(s, "T:") {
		parts := strings.SplitN(s[2:], ":", 2)
		if len(parts) != 2 {
			return recordmgr.ID{}, fmt.Errorf("invalid TID id: %s", s)
		}
		pageID, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return recordmgr.ID{}, fmt.Errorf("invalid TID pageId: %w", err)
		}
		recordNr, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return recordmgr.ID{}, fmt.Errorf("invalid TID recordNr: %w", err)
		}
		return idtranslate.FromTID(pageio.TID{PageID: pageio.PageID(pageID), RecordNr: uint16(recordNr)}), nil
	}
	if strings.HasPrefix(s, "H:") {
		h, err := strconv.ParseUint(s[2:], 10, 64)
		if err != nil {
			return recordmgr.ID{}, fmt.Errorf("invalid handle id: %w", err)
		}
		return idtranslate.FromHandle(h), nil
	}
	// bare number: interpret per the configured translator
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return recordmgr.ID{}, fmt.Errorf("invalid id: %s", s)
	}
	if kind == config.TranslatorMap {
		return idtranslate.FromHandle(n), nil
	}
	return recordmgr.ID{}, fmt.Errorf("id %s must use T:<pageId>:<recordNr> form for an identity translator", s)
}
