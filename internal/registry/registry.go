// Package registry loads the regulator's operator registry and serves
// lookups by registration id.
package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// FileName is the registry file name published by the regulator.
const FileName = "Relatorio_cadop.csv"

// ErrNoRegistrationColumn is returned when the file has no registration id column.
var ErrNoRegistrationColumn = errors.New("registry has no registration id column")

// columnNames maps published headers to entry fields.
var columnNames = map[string]string{
	"REGISTRO_OPERADORA": "registration_id",
	"REGISTRO_ANS":       "registration_id",
	"REG_ANS":            "registration_id",
	"CNPJ":               "tax_id",
	"RAZAO_SOCIAL":       "entity_name",
	"NOME_FANTASIA":      "trade_name",
	"MODALIDADE":         "category_code",
	"UF":                 "jurisdiction_code",
	"DATA_REGISTRO_ANS":  "registration_date",
}

// Registry is an in-memory lookup of operators keyed by registration id.
// When an id repeats, the first entry wins.
type Registry struct {
	mu      sync.RWMutex
	entries []core.RegistryEntry
	byReg   map[string]int
}

// New builds a registry from entries, dropping repeated registration ids.
func New(entries []core.RegistryEntry) *Registry {
	r := &Registry{byReg: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.RegistrationID == "" {
			continue
		}
		if _, dup := r.byReg[e.RegistrationID]; dup {
			continue
		}
		r.byReg[e.RegistrationID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r
}

// Lookup returns the entry for a registration id.
func (r *Registry) Lookup(registrationID string) (core.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byReg[registrationID]
	if !ok {
		return core.RegistryEntry{}, false
	}
	return r.entries[i], true
}

// Entries returns the distinct entries in file order.
func (r *Registry) Entries() []core.RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RegistryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of distinct operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Parse reads a semicolon-delimited Latin-1 registry file.
func Parse(in io.Reader) ([]core.RegistryEntry, error) {
	cr := csv.NewReader(transform.NewReader(in, charmap.ISO8859_1.NewDecoder()))
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRegistrationColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read registry header: %w", err)
	}

	fields := make([]string, len(header))
	hasReg := false
	for i, h := range header {
		h = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(h), `"`, ""))
		fields[i] = columnNames[h]
		hasReg = hasReg || fields[i] == "registration_id"
	}
	if !hasReg {
		return nil, ErrNoRegistrationColumn
	}

	var entries []core.RegistryEntry
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read registry: %w", err)
		}
		var e core.RegistryEntry
		for i, v := range row {
			if i >= len(fields) {
				break
			}
			v = strings.TrimSpace(v)
			switch fields[i] {
			case "registration_id":
				e.RegistrationID = v
			case "tax_id":
				e.TaxID = v
			case "entity_name":
				e.EntityName = v
			case "trade_name":
				e.TradeName = v
			case "category_code":
				e.CategoryCode = v
			case "jurisdiction_code":
				e.JurisdictionCode = v
			case "registration_date":
				e.RegistrationDate = v
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Fetcher downloads a URL into a directory.
type Fetcher interface {
	FetchURL(ctx context.Context, url, dir string) (string, error)
}

// Loader reads the registry from a local directory, downloading it first
// when the file is absent.
type Loader struct {
	Dir     string
	URL     string
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Load returns the registry, fetching FileName into Dir when missing.
func (l *Loader) Load(ctx context.Context) (*Registry, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path := filepath.Join(l.Dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if l.Fetcher == nil || l.URL == "" {
			return nil, fmt.Errorf("registry %s not found and no download source configured", path)
		}
		logger.Info("downloading operator registry", slog.String("url", l.URL))
		fetched, err := l.Fetcher.FetchURL(ctx, l.URL, l.Dir)
		if err != nil {
			return nil, fmt.Errorf("download registry: %w", err)
		}
		path = fetched
	} else if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	reg := New(entries)
	logger.Debug("loaded operator registry", slog.Int("rows", len(entries)), slog.Int("operators", reg.Len()))
	return reg, nil
}
