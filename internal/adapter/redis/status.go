package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

// StatusStore keeps one hash per job and lets Redis expire it after ttl.
// It implements pipeline.StatusStore.
type StatusStore struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStatusStore creates a store whose records expire ttl after their last update.
func NewStatusStore(client *goredis.Client, ttl time.Duration, logger *slog.Logger) *StatusStore {
	return &StatusStore{client: client, ttl: ttl, logger: logger}
}

func statusKey(id string) string {
	return keyPrefix + "job:" + id
}

func (s *StatusStore) Upsert(ctx context.Context, st domain.JobStatus) error {
	key := statusKey(st.JobID)
	fields := map[string]any{
		"job_id":     st.JobID,
		"state":      st.State,
		"variable":   st.Variable,
		"status":     st.Status,
		"updated_at": st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if st.ArtifactName != "" {
		fields["artifact_name"] = st.ArtifactName
	}
	if st.ErrorCode != "" {
		fields["error_code"] = st.ErrorCode
		fields["error_message"] = st.ErrorMessage
	}

	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("write job status %s: %w", st.JobID, err)
	}
	if st.ErrorCode == "" {
		if err := s.client.HDel(ctx, key, "error_code", "error_message").Err(); err != nil {
			s.logger.Warn("clear job error fields failed", "key", key, "error", err)
		}
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("expire job status %s: %w", st.JobID, err)
		}
	}
	return nil
}

func (s *StatusStore) Get(ctx context.Context, id string) (domain.JobStatus, error) {
	fields, err := s.client.HGetAll(ctx, statusKey(id)).Result()
	if err != nil {
		return domain.JobStatus{}, fmt.Errorf("read job status %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.JobStatus{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}

	st := domain.JobStatus{
		JobID:        fields["job_id"],
		State:        fields["state"],
		Variable:     fields["variable"],
		Status:       fields["status"],
		ArtifactName: fields["artifact_name"],
		ErrorCode:    fields["error_code"],
		ErrorMessage: fields["error_message"],
	}
	if ts := fields["updated_at"]; ts != "" {
		st.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return domain.JobStatus{}, fmt.Errorf("parse job status %s updated_at: %w", id, err)
		}
	}
	return st, nil
}
