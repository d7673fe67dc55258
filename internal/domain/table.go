package domain

import "fmt"

// RawRecord is one upstream data row keyed by column name.
type RawRecord map[string]string

// Table is an upstream response with named columns. Every row has exactly
// one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a Table from a header-first row array as returned by the
// Census API.
func NewTable(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("%w: missing header row", ErrMalformedResponse)
	}
	header := rows[0]
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			return Table{}, fmt.Errorf("%w: duplicate column %q", ErrMalformedResponse, col)
		}
		seen[col] = true
	}
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return Table{}, fmt.Errorf("%w: row %d has %d cells, header has %d",
				ErrMalformedResponse, i+1, len(row), len(header))
		}
	}
	return Table{Columns: header, Rows: rows[1:]}, nil
}

// Len reports the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of col.
func (t Table) Index(col string) (int, bool) {
	for i, c := range t.Columns {
		if c == col {
			return i, true
		}
	}
	return 0, false
}

// Rename returns a copy of t with columns renamed per renames (raw -> canonical).
// Columns absent from renames keep their name.
func (t Table) Rename(renames map[string]string) Table {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if to, ok := renames[c]; ok {
			cols[i] = to
			continue
		}
		cols[i] = c
	}
	return Table{Columns: cols, Rows: t.Rows}
}

// Records returns the rows keyed by column name.
func (t Table) Records() []RawRecord {
	out := make([]RawRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(RawRecord, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Require fails with ErrMalformedResponse when any of cols is missing.
func (t Table) Require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.Index(c); !ok {
			return fmt.Errorf("%w: missing column %q", ErrMalformedResponse, c)
		}
	}
	return nil
}
