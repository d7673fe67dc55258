package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupState(t *testing.T) {
	s, err := LookupState("California")
	require.NoError(t, err)
	assert.Equal(t, "06", s.FIPS)

	s, err = LookupState("new york")
	require.NoError(t, err)
	assert.Equal(t, "New York", s.Name)
	assert.Equal(t, "36", s.FIPS)

	s, err = LookupState("DC")
	require.NoError(t, err)
	assert.Equal(t, "11", s.FIPS)

	_, err = LookupState("Atlantis")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestStates_AllHaveMapViews(t *testing.T) {
	geo := DefaultGeoLookup()
	for _, s := range States() {
		assert.Len(t, s.FIPS, 2, s.Name)
		view, err := geo.View(s.Name)
		require.NoError(t, err, s.Name)
		assert.Positive(t, view.Zoom, s.Name)
	}
}

func TestGeoLookup_View(t *testing.T) {
	geo := DefaultGeoLookup()

	view, err := geo.View("California")
	require.NoError(t, err)
	assert.InDelta(t, 37.18, view.Center[0], 0.01)
	assert.InDelta(t, -119.47, view.Center[1], 0.01)
	assert.Equal(t, 6, view.Zoom)

	byPostal, err := geo.View("CA")
	require.NoError(t, err)
	assert.Equal(t, view, byPostal)

	_, err = geo.View("Atlantis")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestParseGeoLookup(t *testing.T) {
	geo, err := ParseGeoLookup([]byte(`{"Texas":{"coord_list":[31.0,-100.0],"zoom":6}}`))
	require.NoError(t, err)
	view, err := geo.View("Texas")
	require.NoError(t, err)
	assert.Equal(t, MapView{Center: [2]float64{31.0, -100.0}, Zoom: 6}, view)

	_, err = ParseGeoLookup([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewTable(t *testing.T) {
	tbl, err := NewTable([][]string{{"NAME", "state"}, {"A", "01"}})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, []RawRecord{{"NAME": "A", "state": "01"}}, tbl.Records())

	renamed := tbl.Rename(map[string]string{"state": "st"})
	assert.Equal(t, []string{"NAME", "st"}, renamed.Columns)
	assert.Equal(t, []string{"NAME", "state"}, tbl.Columns, "rename must not mutate the source")

	_, err = NewTable(nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = NewTable([][]string{{"A", "B"}, {"1"}})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = NewTable([][]string{{"A", "A"}})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
