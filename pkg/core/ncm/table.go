package ncm

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Entry is one row of the reference table: default rates and description
// for a single 8-digit NCM code.
type Entry struct {
	NCM8        string  `json:"ncm8"`
	Description string  `json:"description"`
	IIRate      float64 `json:"ii_rate"`
	IPIRate     float64 `json:"ipi_rate"`
	UTribAbbrev string  `json:"utrib_abrev,omitempty"`
	UTribDesc   string  `json:"utrib_desc,omitempty"`
}

// Table is an in-memory NCM reference lookup. It is a pure cache of static
// published data; lookups are by exact 8-digit key.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a table from a list of entries. Later duplicates of the
// same NCM8 are ignored, matching the first-seen dedupe of the published
// extraction.
func NewTable(entries []Entry) *Table {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if _, ok := m[e.NCM8]; !ok {
			m[e.NCM8] = e
		}
	}
	return &Table{entries: m}
}

// Lookup returns the entry for a dotted or bare NCM code.
func (t *Table) Lookup(code string) (Entry, bool) {
	ncm8, err := Normalize(code)
	if err != nil {
		return Entry{}, false
	}
	e, ok := t.entries[ncm8]
	return e, ok
}

// Len reports the number of distinct codes.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns all rows sorted by NCM8.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NCM8 < out[j].NCM8 })
	return out
}

var csvHeader = []string{"NCM8", "NCM", "Descricao", "II_rate", "IPI_rate", "uTrib_abrev", "uTrib_desc"}

// WriteCSV serializes the table in the reference CSV layout, sorted by NCM8.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("ncm: write header: %w", err)
	}
	for _, e := range t.Entries() {
		rec := []string{
			e.NCM8,
			Dotted(e.NCM8),
			e.Description,
			strconv.FormatFloat(e.IIRate, 'f', -1, 64),
			strconv.FormatFloat(e.IPIRate, 'f', -1, 64),
			e.UTribAbbrev,
			e.UTribDesc,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("ncm: write row %s: %w", e.NCM8, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a reference CSV produced by WriteCSV (or the refdata
// loader) back into a table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ncm: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["NCM8"]; !ok {
		return nil, fmt.Errorf("ncm: CSV missing NCM8 column")
	}

	field := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ncm: read row: %w", err)
		}

		ncm8, err := Normalize(field(rec, "NCM8"))
		if err != nil {
			continue // skip chapter headings and malformed rows
		}
		ii, err := parseFraction(field(rec, "II_rate"))
		if err != nil {
			return nil, err
		}
		ipi, err := parseFraction(field(rec, "IPI_rate"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			NCM8:        ncm8,
			Description: field(rec, "Descricao"),
			IIRate:      ii,
			IPIRate:     ipi,
			UTribAbbrev: field(rec, "uTrib_abrev"),
			UTribDesc:   field(rec, "uTrib_desc"),
		})
	}
	return NewTable(entries), nil
}

// parseFraction reads an already-normalized fraction cell ("0.065"); empty
// cells read as 0.
func parseFraction(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ncm: cannot parse fraction %q: %w", raw, err)
	}
	return v, nil
}

// ApplyDefaults fills zero-valued II/IPI rates on line-item style rate pairs
// from the table. It returns the resolved rates and whether the code was
// found.
func (t *Table) ApplyDefaults(code string, iiRate, ipiRate float64) (float64, float64, bool) {
	e, ok := t.Lookup(code)
	if !ok {
		return iiRate, ipiRate, false
	}
	if iiRate == 0 {
		iiRate = e.IIRate
	}
	if ipiRate == 0 {
		ipiRate = e.IPIRate
	}
	return iiRate, ipiRate, true
}
