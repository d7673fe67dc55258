package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const artifactExt = ".html"

// DecodedArtifact is the identity recovered from an artifact file name.
type DecodedArtifact struct {
	State           string
	VariableKey     string
	VariableDisplay string
	Date            string // MM/DD/YYYY
}

// EncodeArtifactName builds the artifact file name for a (state, variable, day)
// triple. The day is taken in US/Eastern, so two requests on the same Eastern
// calendar day share a name and the later write replaces the earlier one.
func EncodeArtifactName(state, variable string, at time.Time) string {
	return fmt.Sprintf("state-%s_var-%s_timestamp-%s%s",
		state, variable, at.In(Eastern).Format(ArtifactDateLayout), artifactExt)
}

// DecodeArtifactName parses a name produced by EncodeArtifactName. Directory
// components and the .html extension are ignored.
//
//	state-<State>_var-<VariableKey>_timestamp-<MM-DD-YYYY>.html
func DecodeArtifactName(name string, reg *Registry) (DecodedArtifact, error) {
	base := path.Base(filepath.ToSlash(name))
	base = strings.TrimSuffix(base, artifactExt)

	segments := strings.Split(base, "_")
	if len(segments) != 3 {
		return DecodedArtifact{}, fmt.Errorf("%w: %q has %d segments, want 3",
			ErrMalformedArtifactName, name, len(segments))
	}

	state, err := segmentValue(name, segments[0], "state")
	if err != nil {
		return DecodedArtifact{}, err
	}
	key, err := segmentValue(name, segments[1], "var")
	if err != nil {
		return DecodedArtifact{}, err
	}
	rawDate, err := segmentValue(name, segments[2], "timestamp")
	if err != nil {
		return DecodedArtifact{}, err
	}

	date := strings.ReplaceAll(rawDate, "-", "/")
	if _, err := time.Parse(ResultDateLayout, date); err != nil {
		return DecodedArtifact{}, fmt.Errorf("%w: %q has invalid date %q",
			ErrMalformedArtifactName, name, rawDate)
	}

	spec, err := reg.Lookup(key)
	if err != nil {
		return DecodedArtifact{}, fmt.Errorf("artifact %q: %w", name, err)
	}

	return DecodedArtifact{
		State:           state,
		VariableKey:     key,
		VariableDisplay: spec.DisplayName,
		Date:            date,
	}, nil
}

func segmentValue(name, segment, label string) (string, error) {
	got, value, ok := strings.Cut(segment, "-")
	if !ok || got != label || value == "" {
		return "", fmt.Errorf("%w: %q segment %q, want %s-<value>",
			ErrMalformedArtifactName, name, segment, label)
	}
	return value, nil
}
