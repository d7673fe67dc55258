package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize turns labeled upstream tables into county records according to
// the variable's kind. tables must be in the same order as spec.Requests and
// already renamed with each request's column map.
func Normalize(tables []Table, spec VariableSpec) ([]NormalizedRecord, error) {
	if len(tables) != len(spec.Requests) {
		return nil, fmt.Errorf("%w: variable %q expects %d tables, got %d",
			ErrMalformedResponse, spec.Key, len(spec.Requests), len(tables))
	}

	var (
		out []NormalizedRecord
		err error
	)
	switch spec.Kind {
	case KindSingle:
		out, err = normalizeSingle(tables[0])
	case KindPercentChange:
		out, err = normalizePercentChange(tables[0], tables[1])
	default:
		return nil, fmt.Errorf("variable %q: unsupported kind %q", spec.Key, spec.Kind)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FIPS < out[j].FIPS })
	return out, nil
}

func normalizeSingle(t Table) ([]NormalizedRecord, error) {
	if err := t.Require(ColumnName, ColumnState, ColumnCounty, ColumnValue); err != nil {
		return nil, err
	}

	out := make([]NormalizedRecord, 0, t.Len())
	for _, rec := range t.Records() {
		fips, err := CompositeFIPS(rec[ColumnState], rec[ColumnCounty])
		if err != nil {
			return nil, err
		}
		value, err := parseValue(rec[ColumnValue])
		if err != nil {
			return nil, fmt.Errorf("county %s: %w", fips, err)
		}
		out = append(out, NormalizedRecord{
			FIPS:   fips,
			County: CountyDisplayName(rec[ColumnName]),
			Value:  value,
		})
	}
	return out, nil
}

// naturalKey identifies a county across survey periods.
type naturalKey struct {
	name, state, county string
}

func keyOf(rec RawRecord) naturalKey {
	return naturalKey{name: rec[ColumnName], state: rec[ColumnState], county: rec[ColumnCounty]}
}

// normalizePercentChange inner-joins the two periods and computes
// (new-old)/new*100. Counties present in only one period are dropped.
func normalizePercentChange(older, newer Table) ([]NormalizedRecord, error) {
	if err := older.Require(ColumnName, ColumnState, ColumnCounty, ColumnOld); err != nil {
		return nil, fmt.Errorf("earlier period: %w", err)
	}
	if err := newer.Require(ColumnName, ColumnState, ColumnCounty, ColumnNew); err != nil {
		return nil, fmt.Errorf("recent period: %w", err)
	}

	oldByKey := make(map[naturalKey]string, older.Len())
	for _, rec := range older.Records() {
		oldByKey[keyOf(rec)] = rec[ColumnOld]
	}

	out := make([]NormalizedRecord, 0, newer.Len())
	for _, rec := range newer.Records() {
		oldRaw, ok := oldByKey[keyOf(rec)]
		if !ok {
			continue
		}
		fips, err := CompositeFIPS(rec[ColumnState], rec[ColumnCounty])
		if err != nil {
			return nil, err
		}
		oldVal, err := parseCount(oldRaw)
		if err != nil {
			return nil, fmt.Errorf("county %s earlier period: %w", fips, err)
		}
		newVal, err := parseCount(rec[ColumnNew])
		if err != nil {
			return nil, fmt.Errorf("county %s recent period: %w", fips, err)
		}
		value, err := PercentChange(oldVal, newVal)
		if err != nil {
			return nil, &DivisionByZeroError{FIPS: fips}
		}
		out = append(out, NormalizedRecord{
			FIPS:   fips,
			County: CountyDisplayName(rec[ColumnName]),
			Value:  value,
		})
	}
	return out, nil
}

// PercentChange returns the change from older to newer relative to newer.
func PercentChange(older, newer int64) (float64, error) {
	if newer == 0 {
		return 0, ErrDivisionByZero
	}
	return float64(newer-older) / float64(newer) * 100, nil
}

// CompositeFIPS joins a state and county code into the 5-digit county FIPS,
// zero-padding each part.
func CompositeFIPS(state, county string) (string, error) {
	state = strings.TrimSpace(state)
	county = strings.TrimSpace(county)
	if !isDigits(state) || len(state) > 2 {
		return "", fmt.Errorf("%w: invalid state code %q", ErrMalformedResponse, state)
	}
	if !isDigits(county) || len(county) > 3 {
		return "", fmt.Errorf("%w: invalid county code %q", ErrMalformedResponse, county)
	}
	return leftPad(state, 2) + leftPad(county, 3), nil
}

// CountyDisplayName takes the part of a Census location name before its
// first comma and title-cases it: "los angeles county, California" becomes
// "Los Angeles County".
func CountyDisplayName(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	return cases.Title(language.AmericanEnglish).String(strings.TrimSpace(name))
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-numeric value %q", ErrMalformedResponse, s)
	}
	return v, nil
}

func parseCount(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-integer value %q", ErrMalformedResponse, s)
	}
	return v, nil
}
