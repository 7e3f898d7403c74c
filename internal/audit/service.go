package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/workstream/access-management/internal/core/events"
)

// Repository defines the data access methods for audit records.
type Repository interface {
	Create(ctx context.Context, entry *LogEntry) error
	Query(ctx context.Context, filter QueryFilter) ([]*LogEntry, error)
}

// Service writes and queries the append-only assignment log. Write failures
// are swallowed so they never abort the business operation they describe;
// they surface on the operational event bus instead.
type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Record persists one audit entry. The returned entry is nil when
// persistence failed; callers must not treat that as an error.
func (s *Service) Record(ctx context.Context, entry Entry) *LogEntry {
	logEntry := &LogEntry{
		ID:            uuid.NewString(),
		ActorID:       entry.ActorID,
		TargetUsers:   entry.TargetUsers,
		OperationType: entry.OperationType,
		BeforeState:   entry.BeforeState,
		AfterState:    entry.AfterState,
		Details:       entry.Details,
		Status:        entry.Status,
		ErrorMessage:  entry.ErrorMessage,
		Metadata:      entry.Metadata,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.Create(ctx, logEntry); err != nil {
		s.logger.Error("failed to write audit entry",
			"error", err,
			"operation_type", entry.OperationType,
			"actor_id", entry.ActorID)

		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.BaseEvent{
				ID:        logEntry.ID,
				Type:      events.EventTypeAuditWriteFailed,
				Timestamp: time.Now(),
				Data: map[string]interface{}{
					"operation_type": entry.OperationType,
					"actor_id":       entry.ActorID,
					"error":          err.Error(),
				},
			})
		}
		return nil
	}

	return logEntry
}

func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]*LogEntry, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.Query(ctx, filter)
}
