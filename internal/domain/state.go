package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StateIdentifier pairs a state's long-form name with its 2-digit FIPS code.
type StateIdentifier struct {
	Name   string
	FIPS   string
	Postal string
}

var states = []StateIdentifier{
	{Name: "Alabama", FIPS: "01", Postal: "AL"},
	{Name: "Alaska", FIPS: "02", Postal: "AK"},
	{Name: "Arizona", FIPS: "04", Postal: "AZ"},
	{Name: "Arkansas", FIPS: "05", Postal: "AR"},
	{Name: "California", FIPS: "06", Postal: "CA"},
	{Name: "Colorado", FIPS: "08", Postal: "CO"},
	{Name: "Connecticut", FIPS: "09", Postal: "CT"},
	{Name: "Delaware", FIPS: "10", Postal: "DE"},
	{Name: "District of Columbia", FIPS: "11", Postal: "DC"},
	{Name: "Florida", FIPS: "12", Postal: "FL"},
	{Name: "Georgia", FIPS: "13", Postal: "GA"},
	{Name: "Hawaii", FIPS: "15", Postal: "HI"},
	{Name: "Idaho", FIPS: "16", Postal: "ID"},
	{Name: "Illinois", FIPS: "17", Postal: "IL"},
	{Name: "Indiana", FIPS: "18", Postal: "IN"},
	{Name: "Iowa", FIPS: "19", Postal: "IA"},
	{Name: "Kansas", FIPS: "20", Postal: "KS"},
	{Name: "Kentucky", FIPS: "21", Postal: "KY"},
	{Name: "Louisiana", FIPS: "22", Postal: "LA"},
	{Name: "Maine", FIPS: "23", Postal: "ME"},
	{Name: "Maryland", FIPS: "24", Postal: "MD"},
	{Name: "Massachusetts", FIPS: "25", Postal: "MA"},
	{Name: "Michigan", FIPS: "26", Postal: "MI"},
	{Name: "Minnesota", FIPS: "27", Postal: "MN"},
	{Name: "Mississippi", FIPS: "28", Postal: "MS"},
	{Name: "Missouri", FIPS: "29", Postal: "MO"},
	{Name: "Montana", FIPS: "30", Postal: "MT"},
	{Name: "Nebraska", FIPS: "31", Postal: "NE"},
	{Name: "Nevada", FIPS: "32", Postal: "NV"},
	{Name: "New Hampshire", FIPS: "33", Postal: "NH"},
	{Name: "New Jersey", FIPS: "34", Postal: "NJ"},
	{Name: "New Mexico", FIPS: "35", Postal: "NM"},
	{Name: "New York", FIPS: "36", Postal: "NY"},
	{Name: "North Carolina", FIPS: "37", Postal: "NC"},
	{Name: "North Dakota", FIPS: "38", Postal: "ND"},
	{Name: "Ohio", FIPS: "39", Postal: "OH"},
	{Name: "Oklahoma", FIPS: "40", Postal: "OK"},
	{Name: "Oregon", FIPS: "41", Postal: "OR"},
	{Name: "Pennsylvania", FIPS: "42", Postal: "PA"},
	{Name: "Rhode Island", FIPS: "44", Postal: "RI"},
	{Name: "South Carolina", FIPS: "45", Postal: "SC"},
	{Name: "South Dakota", FIPS: "46", Postal: "SD"},
	{Name: "Tennessee", FIPS: "47", Postal: "TN"},
	{Name: "Texas", FIPS: "48", Postal: "TX"},
	{Name: "Utah", FIPS: "49", Postal: "UT"},
	{Name: "Vermont", FIPS: "50", Postal: "VT"},
	{Name: "Virginia", FIPS: "51", Postal: "VA"},
	{Name: "Washington", FIPS: "53", Postal: "WA"},
	{Name: "West Virginia", FIPS: "54", Postal: "WV"},
	{Name: "Wisconsin", FIPS: "55", Postal: "WI"},
	{Name: "Wyoming", FIPS: "56", Postal: "WY"},
	{Name: "Puerto Rico", FIPS: "72", Postal: "PR"},
}

var statesByKey = func() map[string]StateIdentifier {
	m := make(map[string]StateIdentifier, 2*len(states))
	for _, s := range states {
		m[strings.ToLower(s.Name)] = s
		m[strings.ToLower(s.Postal)] = s
	}
	return m
}()

// LookupState resolves a state name (case-insensitive) or postal code.
func LookupState(name string) (StateIdentifier, error) {
	s, ok := statesByKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return StateIdentifier{}, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return s, nil
}

// States returns every known state in FIPS order.
func States() []StateIdentifier {
	out := make([]StateIdentifier, len(states))
	copy(out, states)
	return out
}

//go:embed data/state_coords.json
var defaultStateCoords []byte

// MapView is the initial center and zoom used when rendering a state.
type MapView struct {
	Center [2]float64 `json:"coord_list"` // [lat, lon]
	Zoom   int        `json:"zoom"`
}

// GeoLookup maps state names to their initial map view.
type GeoLookup struct {
	views map[string]MapView
}

// ParseGeoLookup decodes a state coordinate table.
func ParseGeoLookup(data []byte) (*GeoLookup, error) {
	var views map[string]MapView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("parse state coordinates: %w", err)
	}
	return &GeoLookup{views: views}, nil
}

// LoadGeoLookup reads the table at path, or the embedded table when path is empty.
func LoadGeoLookup(path string) (*GeoLookup, error) {
	if path == "" {
		return ParseGeoLookup(defaultStateCoords)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state coordinates: %w", err)
	}
	return ParseGeoLookup(data)
}

// DefaultGeoLookup returns the embedded coordinate table.
func DefaultGeoLookup() *GeoLookup {
	g, err := ParseGeoLookup(defaultStateCoords)
	if err != nil {
		panic(err)
	}
	return g
}

// View returns the map view for a state. Postal codes and case variants of
// the name are accepted.
func (g *GeoLookup) View(state string) (MapView, error) {
	if v, ok := g.views[state]; ok {
		return v, nil
	}
	if s, err := LookupState(state); err == nil {
		if v, ok := g.views[s.Name]; ok {
			return v, nil
		}
	}
	return MapView{}, fmt.Errorf("%w: no map view for %q", ErrUnknownState, state)
}
