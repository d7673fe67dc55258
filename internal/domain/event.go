package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// NormalizedRecord is one county value after cleaning.
type NormalizedRecord struct {
	FIPS   string  `json:"fips"` // 2-digit state + 3-digit county
	County string  `json:"county"`
	Value  float64 `json:"value"`
}

// ShapeRecord is one county boundary from the geometry dataset.
type ShapeRecord struct {
	FIPS     string
	Name     string
	Geometry orb.Geometry
}

// StateFIPS returns the 2-digit state prefix of the composite code.
func (s ShapeRecord) StateFIPS() string {
	if len(s.FIPS) < 2 {
		return ""
	}
	return s.FIPS[:2]
}

// JoinedRecord is a normalized value matched to its county geometry.
type JoinedRecord struct {
	NormalizedRecord
	Geometry orb.Geometry
	HasValue bool
}

// RenderJob is one queued fetch-normalize-render request.
type RenderJob struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Variable    string    `json:"variable"`
	RequestedAt time.Time `json:"requested_at"`
}

// ArtifactName returns the file name this job writes to.
func (j RenderJob) ArtifactName() string {
	return EncodeArtifactName(j.State, j.Variable, j.RequestedAt)
}

// JobDescriptor is returned to callers of Enqueue.
type JobDescriptor struct {
	ID           string `json:"Id"`
	State        string `json:"State"`
	VariableName string `json:"VariableName"`
	RequestedAt  string `json:"RequestedAt"`
}

// Job lifecycle states recorded in the status store.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobStatus is the latest known state of a job.
type JobStatus struct {
	JobID        string    `json:"job_id"`
	State        string    `json:"state"`
	Variable     string    `json:"variable"`
	Status       string    `json:"status"`
	ArtifactName string    `json:"artifact_name,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ArtifactEvent announces a freshly written artifact.
type ArtifactEvent struct {
	JobID        string    `json:"job_id"`
	State        string    `json:"state"`
	Variable     string    `json:"variable"`
	ArtifactName string    `json:"artifact_name"`
	Counties     int       `json:"counties"`
	RenderedAt   time.Time `json:"rendered_at"`
}

// ResultEntry is one row of the result listing.
type ResultEntry struct {
	StateName           string `json:"state_name"`
	VariableDisplayName string `json:"variable_display_name"`
	RequestedAt         string `json:"requested_at"`
	ArtifactLink        string `json:"artifact_link"`
}

// RenderResult describes a written artifact.
type RenderResult struct {
	Path     string
	Counties int
}
