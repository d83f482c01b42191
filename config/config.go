// Package config loads the settings a recman instance is built from:
// page size, the backing bbolt file, and which strategy/translator pair
// to wire up.
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sorenkrogh/recman/idtranslate"
	"github.com/sorenkrogh/recman/strategy"
)

// StrategyKind names a strategy.Strategy variant by its configuration key.
type StrategyKind string

const (
	StrategyOneRecordPerPage StrategyKind = "one-record-per-page"
	StrategyFirstFit         StrategyKind = "first-fit"
	StrategyLastToFirstFit   StrategyKind = "last-to-first-fit"
	StrategyNextFit          StrategyKind = "next-fit"
	StrategyNextFitWithH     StrategyKind = "next-fit-h"
	StrategyNextFitWithHW    StrategyKind = "next-fit-hw"
	StrategyBestFit          StrategyKind = "best-fit"
	StrategyBestFitOnNEmpty  StrategyKind = "best-fit-n-emptiest"
	StrategyAppendOnly       StrategyKind = "append-only"
	StrategyAppendOnlyN      StrategyKind = "append-only-n"
	StrategyLRU              StrategyKind = "lru"
)

// TranslatorKind names an idtranslate.Translator variant.
type TranslatorKind string

const (
	TranslatorIdentity TranslatorKind = "identity"
	TranslatorMap      TranslatorKind = "map"
)

// Config holds everything needed to open a record manager instance.
type Config struct {
	// DataDir is the directory the bbolt-backed page container lives in.
	DataDir string `json:"datadir" yaml:"datadir"`
	// BoltFile is the bbolt database file name within DataDir.
	BoltFile string `json:"boltfile" yaml:"boltfile"`
	// PageSize is the fixed page size in bytes every page container
	// page is encoded/decoded against.
	PageSize int `json:"pagesize" yaml:"pagesize"`
	// NumberOfDirectReserves bounds PageInformation's in-memory
	// reservation queue (spec.md §3).
	NumberOfDirectReserves int `json:"direct_reserves" yaml:"direct_reserves"`
	// Strategy selects the placement strategy.
	Strategy StrategyKind `json:"strategy" yaml:"strategy"`
	// StrategyN is the "n" parameter for strategies that take one
	// (BestFitOnNEmptiestPages, AppendOnlyN, LRU).
	StrategyN int `json:"strategy_n" yaml:"strategy_n"`
	// BestFitPercentageFree is BestFit's short-circuit slack threshold,
	// expressed as a fraction of pageSize.
	BestFitPercentageFree float64 `json:"best_fit_percentage_free" yaml:"best_fit_percentage_free"`
	// HistogramBuckets is NextFitWithH/HW's bucket count H.
	HistogramBuckets int `json:"histogram_buckets" yaml:"histogram_buckets"`
	// Translator selects the id translation layer.
	Translator TranslatorKind `json:"translator" yaml:"translator"`
}

// Default returns a Config with the same defaults the teacher repository
// used for its DBConfig: a 4 KiB page, first-fit placement, identity ids.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:                dataDir,
		BoltFile:               "recman.db",
		PageSize:               4096,
		NumberOfDirectReserves: 4,
		Strategy:               StrategyFirstFit,
		StrategyN:              4,
		BestFitPercentageFree:  0.05,
		HistogramBuckets:       8,
		Translator:             TranslatorIdentity,
	}
}

// Load reads a Config from a file. It accepts JSON, YAML, or a simple
// key=value text format, trying each in turn — the same layered
// fallback the teacher's DBConfig loader used for its own text format.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("config: empty config file")
	}

	var c Config
	if err := json.Unmarshal(data, &c); err == nil && c.DataDir != "" {
		fillDefaults(&c)
		return &c, nil
	}

	var y Config
	if err := yaml.Unmarshal(data, &y); err == nil && y.DataDir != "" {
		fillDefaults(&y)
		return &y, nil
	}

	c = Config{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		switch key {
		case "datadir":
			c.DataDir = val
		case "boltfile":
			c.BoltFile = val
		case "pagesize":
			if v, err := strconv.Atoi(val); err == nil {
				c.PageSize = v
			}
		case "direct_reserves":
			if v, err := strconv.Atoi(val); err == nil {
				c.NumberOfDirectReserves = v
			}
		case "strategy":
			c.Strategy = StrategyKind(val)
		case "strategy_n":
			if v, err := strconv.Atoi(val); err == nil {
				c.StrategyN = v
			}
		case "best_fit_percentage_free":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				c.BestFitPercentageFree = v
			}
		case "histogram_buckets":
			if v, err := strconv.Atoi(val); err == nil {
				c.HistogramBuckets = v
			}
		case "translator":
			c.Translator = TranslatorKind(val)
		}
	}
	if c.DataDir == "" {
		return nil, errors.New("config: datadir not found in config")
	}
	fillDefaults(&c)
	return &c, nil
}

// BuildStrategy constructs the strategy.Strategy variant c.Strategy
// names. The returned value is freshly constructed and still needs
// Init called against a pages map before use, same as New does.
func (c *Config) BuildStrategy() (strategy.Strategy, error) {
	switch c.Strategy {
	case StrategyOneRecordPerPage:
		return &strategy.OneRecordPerPage{}, nil
	case StrategyFirstFit:
		return &strategy.FirstFit{}, nil
	case StrategyLastToFirstFit:
		return &strategy.LastToFirstFit{}, nil
	case StrategyNextFit:
		return &strategy.NextFit{}, nil
	case StrategyNextFitWithH:
		return strategy.NewNextFitWithH(c.HistogramBuckets), nil
	case StrategyNextFitWithHW:
		return strategy.NewNextFitWithHW(c.HistogramBuckets), nil
	case StrategyBestFit:
		return strategy.NewBestFit(c.BestFitPercentageFree), nil
	case StrategyBestFitOnNEmpty:
		return strategy.NewBestFitOnNEmptiestPages(c.StrategyN), nil
	case StrategyAppendOnly:
		return &strategy.AppendOnly{}, nil
	case StrategyAppendOnlyN:
		return strategy.NewAppendOnlyN(c.StrategyN), nil
	case StrategyLRU:
		return strategy.NewLRU(c.StrategyN), nil
	default:
		return nil, fmt.Errorf("config: unknown strategy kind %q", c.Strategy)
	}
}

// BuildTranslator constructs the idtranslate.Translator variant c.Translator
// names.
func (c *Config) BuildTranslator() (idtranslate.Translator, error) {
	switch c.Translator {
	case TranslatorIdentity:
		return idtranslate.Identity{}, nil
	case TranslatorMap:
		return idtranslate.NewMap(), nil
	default:
		return nil, fmt.Errorf("config: unknown translator kind %q", c.Translator)
	}
}

func fillDefaults(c *Config) {
	d := Default(c.DataDir)
	if c.BoltFile == "" {
		c.BoltFile = d.BoltFile
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.NumberOfDirectReserves == 0 {
		c.NumberOfDirectReserves = d.NumberOfDirectReserves
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.StrategyN == 0 {
		c.StrategyN = d.StrategyN
	}
	if c.BestFitPercentageFree == 0 {
		c.BestFitPercentageFree = d.BestFitPercentageFree
	}
	if c.HistogramBuckets == 0 {
		c.HistogramBuckets = d.HistogramBuckets
	}
	if c.Translator == "" {
		c.Translator = d.Translator
	}
}
