package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, rows [][]string) Table {
	t.Helper()
	tbl, err := NewTable(rows)
	require.NoError(t, err)
	return tbl
}

func singleSpec() VariableSpec {
	spec, err := DefaultRegistry().Lookup("totalPopulation")
	if err != nil {
		panic(err)
	}
	return spec
}

func pctSpec() VariableSpec {
	spec, err := DefaultRegistry().Lookup("popPctChange")
	if err != nil {
		panic(err)
	}
	return spec
}

func TestCompositeFIPS(t *testing.T) {
	tests := []struct {
		state, county string
		want          string
	}{
		{"06", "037", "06037"},
		{"06", "3", "06003"},
		{"6", "37", "06037"},
		{"36", "061", "36061"},
		{" 48 ", " 201 ", "48201"},
	}
	for _, tt := range tests {
		t.Run(tt.state+"+"+tt.county, func(t *testing.T) {
			got, err := CompositeFIPS(tt.state, tt.county)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 5)
		})
	}
}

func TestCompositeFIPS_Invalid(t *testing.T) {
	for _, tc := range [][2]string{{"", "001"}, {"06", ""}, {"006", "001"}, {"06", "0001"}, {"CA", "001"}, {"06", "1a"}} {
		_, err := CompositeFIPS(tc[0], tc[1])
		assert.ErrorIs(t, err, ErrMalformedResponse, "state=%q county=%q", tc[0], tc[1])
	}
}

func TestCountyDisplayName(t *testing.T) {
	assert.Equal(t, "Los Angeles County", CountyDisplayName("Los Angeles County, California"))
	assert.Equal(t, "Kings County", CountyDisplayName("KINGS COUNTY, New York"))
	assert.Equal(t, "Baltimore City", CountyDisplayName("baltimore city, Maryland"))
	assert.Equal(t, "No Comma Parish", CountyDisplayName("no comma parish"))
}

func TestPercentChange(t *testing.T) {
	v, err := PercentChange(100, 150)
	require.NoError(t, err)
	assert.InDelta(t, (150.0-100.0)/150.0*100, v, 1e-9)
	assert.InDelta(t, 33.3333, v, 1e-3)

	v, err = PercentChange(200, 100)
	require.NoError(t, err)
	assert.InDelta(t, -100.0, v, 1e-9)

	_, err = PercentChange(100, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestNormalize_Single(t *testing.T) {
	raw := mustTable(t, [][]string{
		{"NAME", "P1_001N", "state", "county"},
		{"Los Angeles County, California", "10014009", "06", "037"},
		{"Alpine County, California", "1204", "06", "3"},
	}).Rename(singleSpec().Requests[0].Columns)

	got, err := Normalize([]Table{raw}, singleSpec())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// sorted by FIPS
	assert.Equal(t, NormalizedRecord{FIPS: "06003", County: "Alpine County", Value: 1204}, got[0])
	assert.Equal(t, NormalizedRecord{FIPS: "06037", County: "Los Angeles County", Value: 10014009}, got[1])
}

func TestNormalize_SingleRejectsNonNumeric(t *testing.T) {
	raw := mustTable(t, [][]string{
		{"NAME", "P1_001N", "state", "county"},
		{"Alpine County, California", "", "06", "003"},
	}).Rename(singleSpec().Requests[0].Columns)

	_, err := Normalize([]Table{raw}, singleSpec())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNormalize_SingleMissingColumn(t *testing.T) {
	raw := mustTable(t, [][]string{
		{"NAME", "state", "county"},
		{"Alpine County, California", "06", "003"},
	})

	_, err := Normalize([]Table{raw}, singleSpec())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNormalize_PercentChange(t *testing.T) {
	spec := pctSpec()
	older := mustTable(t, [][]string{
		{"NAME", "P001001", "state", "county"},
		{"Alpine County, California", "100", "06", "003"},
		{"Gone County, California", "50", "06", "999"},
	}).Rename(spec.Requests[0].Columns)
	newer := mustTable(t, [][]string{
		{"NAME", "P1_001N", "state", "county"},
		{"Alpine County, California", "150", "06", "003"},
		{"New County, California", "75", "06", "111"},
	}).Rename(spec.Requests[1].Columns)

	got, err := Normalize([]Table{older, newer}, spec)
	require.NoError(t, err)
	require.Len(t, got, 1, "counties present in one period only are dropped")

	assert.Equal(t, "06003", got[0].FIPS)
	assert.Equal(t, "Alpine County", got[0].County)
	assert.InDelta(t, 33.333333, got[0].Value, 1e-5)
}

func TestNormalize_PercentChangeDivisionByZero(t *testing.T) {
	spec := pctSpec()
	older := mustTable(t, [][]string{
		{"NAME", "P001001", "state", "county"},
		{"Empty County, Texas", "12", "48", "301"},
	}).Rename(spec.Requests[0].Columns)
	newer := mustTable(t, [][]string{
		{"NAME", "P1_001N", "state", "county"},
		{"Empty County, Texas", "0", "48", "301"},
	}).Rename(spec.Requests[1].Columns)

	_, err := Normalize([]Table{older, newer}, spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	var dz *DivisionByZeroError
	require.True(t, errors.As(err, &dz))
	assert.Equal(t, "48301", dz.FIPS)
}

func TestNormalize_PercentChangeRejectsFractions(t *testing.T) {
	spec := pctSpec()
	older := mustTable(t, [][]string{
		{"NAME", "P001001", "state", "county"},
		{"A County, Texas", "1.5", "48", "001"},
	}).Rename(spec.Requests[0].Columns)
	newer := mustTable(t, [][]string{
		{"NAME", "P1_001N", "state", "county"},
		{"A County, Texas", "10", "48", "001"},
	}).Rename(spec.Requests[1].Columns)

	_, err := Normalize([]Table{older, newer}, spec)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNormalize_TableCountMismatch(t *testing.T) {
	_, err := Normalize(nil, pctSpec())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
