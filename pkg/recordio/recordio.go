// Package recordio reads and writes the CSV persistence formats of
// normalized, enriched and aggregated expense datasets.
package recordio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// ErrHeader is returned when a file's header does not match the expected columns.
var ErrHeader = errors.New("unexpected header")

// WriteRecords writes records as CSV with a RecordColumns header.
func WriteRecords(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.RecordColumns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(recordRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords parses CSV written by WriteRecords.
func ReadRecords(r io.Reader) ([]core.Record, error) {
	rows, err := readAll(r, core.RecordColumns)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteRecordsFile writes records to path, creating parent directories.
// The file is replaced atomically.
func WriteRecordsFile(path string, records []core.Record) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WriteRecords(w, records) })
}

// ReadRecordsFile reads a dataset written by WriteRecordsFile.
func ReadRecordsFile(path string) ([]core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadRecords(f)
}

// WriteEnriched writes enriched records with an EnrichedColumns header.
func WriteEnriched(w io.Writer, records []core.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.EnrichedColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.RegistrationID, r.TaxID, r.EntityName, r.CategoryCode, r.JurisdictionCode,
			optionalInt(r.Quarter), optionalInt(r.Year), r.Amount.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEnriched parses CSV written by WriteEnriched.
func ReadEnriched(r io.Reader) ([]core.EnrichedRecord, error) {
	rows, err := readAll(r, core.EnrichedColumns)
	if err != nil {
		return nil, err
	}
	out := make([]core.EnrichedRecord, 0, len(rows))
	for i, row := range rows {
		base, err := parseRecord([]string{row[0], row[1], row[2], row[5], row[6], row[7]})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		out = append(out, core.EnrichedRecord{Record: base, CategoryCode: row[3], JurisdictionCode: row[4]})
	}
	return out, nil
}

// WriteEnrichedFile writes enriched records to path atomically.
func WriteEnrichedFile(path string, records []core.EnrichedRecord) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WriteEnriched(w, records) })
}

// ReadEnrichedFile reads a file written by WriteEnrichedFile.
func ReadEnrichedFile(path string) ([]core.EnrichedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadEnriched(f)
}

// WriteAggregates writes aggregates with an AggregateColumns header.
func WriteAggregates(w io.Writer, aggs []core.Aggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.AggregateColumns); err != nil {
		return err
	}
	for _, a := range aggs {
		std := ""
		if a.StdDev != nil {
			std = strconv.FormatFloat(*a.StdDev, 'f', -1, 64)
		}
		row := []string{
			a.RegistrationID, a.TaxID, a.EntityName, a.CategoryCode, a.JurisdictionCode,
			optionalInt(a.Year), a.Total.String(), a.QuarterlyMean.String(), std, strconv.Itoa(a.Quarters),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAggregates parses CSV written by WriteAggregates.
func ReadAggregates(r io.Reader) ([]core.Aggregate, error) {
	rows, err := readAll(r, core.AggregateColumns)
	if err != nil {
		return nil, err
	}
	out := make([]core.Aggregate, 0, len(rows))
	for i, row := range rows {
		a, err := parseAggregate(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// WriteAggregatesFile writes aggregates to path atomically.
func WriteAggregatesFile(path string, aggs []core.Aggregate) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WriteAggregates(w, aggs) })
}

// ReadAggregatesFile reads a file written by WriteAggregatesFile.
func ReadAggregatesFile(path string) ([]core.Aggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadAggregates(f)
}

func recordRow(r core.Record) []string {
	return []string{
		r.RegistrationID, r.TaxID, r.EntityName,
		optionalInt(r.Quarter), optionalInt(r.Year), r.Amount.String(),
	}
}

func parseRecord(row []string) (core.Record, error) {
	q, err := parseOptionalInt(row[3])
	if err != nil {
		return core.Record{}, fmt.Errorf("quarter: %w", err)
	}
	y, err := parseOptionalInt(row[4])
	if err != nil {
		return core.Record{}, fmt.Errorf("year: %w", err)
	}
	amount, err := decimal.NewFromString(row[5])
	if err != nil {
		return core.Record{}, fmt.Errorf("amount: %w", err)
	}
	return core.Record{
		RegistrationID: row[0],
		TaxID:          row[1],
		EntityName:     row[2],
		Quarter:        q,
		Year:           y,
		Amount:         amount,
	}, nil
}

func parseAggregate(row []string) (core.Aggregate, error) {
	year, err := parseOptionalInt(row[5])
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("year: %w", err)
	}
	total, err := decimal.NewFromString(row[6])
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("total: %w", err)
	}
	mean, err := decimal.NewFromString(row[7])
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("quarterly_mean: %w", err)
	}
	var std *float64
	if row[8] != "" {
		v, err := strconv.ParseFloat(row[8], 64)
		if err != nil {
			return core.Aggregate{}, fmt.Errorf("std_dev: %w", err)
		}
		std = &v
	}
	quarters, err := strconv.Atoi(row[9])
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("quarters: %w", err)
	}
	return core.Aggregate{
		RegistrationID:   row[0],
		TaxID:            row[1],
		EntityName:       row[2],
		CategoryCode:     row[3],
		JurisdictionCode: row[4],
		Year:             year,
		Total:            total,
		QuarterlyMean:    mean,
		StdDev:           std,
		Quarters:         quarters,
	}, nil
}

func readAll(r io.Reader, columns []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrHeader)
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(header, columns) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrHeader,
			strings.Join(header, ","), strings.Join(columns, ","))
	}
	return cr.ReadAll()
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// WriteFileAtomic writes path through a temp file in the same directory that
// is renamed into place only when write succeeds.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
