package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meridian/internal/engine/checkpoint"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/eventlog"
	"meridian/internal/engine/orchestrator"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/deadletter"
	"meridian/internal/shared/events"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func rowToEvent(row eventRow) events.Event {
	return events.Event{
		EventID:        row.EventID,
		StreamID:       row.StreamID,
		StreamType:     row.StreamType,
		EventType:      row.EventType,
		Payload:        row.Payload,
		GlobalPosition: row.GlobalPosition,
		StreamVersion:  row.StreamVersion,
		CorrelationID:  row.CorrelationID,
		CausationID:    row.CausationID,
		SchemaVersion:  row.SchemaVersion,
		Category:       events.Category(row.Category),
		BoundedContext: row.BoundedContext,
		OccurredAt:     row.OccurredAt,
	}
}

func eventToRow(event events.Event) eventRow {
	return eventRow{
		EventID:        event.EventID,
		StreamID:       event.StreamID,
		StreamVersion:  event.StreamVersion,
		StreamType:     event.StreamType,
		EventType:      event.EventType,
		Payload:        event.Payload,
		CorrelationID:  event.CorrelationID,
		CausationID:    event.CausationID,
		SchemaVersion:  event.SchemaVersion,
		Category:       string(event.Category),
		BoundedContext: event.BoundedContext,
		OccurredAt:     event.OccurredAt,
	}
}

// EventStore implements the append-only log over the events table.
type EventStore struct {
	DB *gorm.DB
}

// Append implements eventlog.Log.
func (s *EventStore) Append(ctx context.Context, streamID string, expectedVersion int64, event events.Event) (events.Event, error) {
	event.StreamID = streamID
	event.StreamVersion = expectedVersion + 1
	row := eventToRow(event)

	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			actual, verr := s.CurrentVersion(ctx, streamID)
			if verr != nil {
				return events.Event{}, verr
			}
			return events.Event{}, &eventlog.ConflictError{
				StreamID:        streamID,
				ExpectedVersion: expectedVersion,
				ActualVersion:   actual,
			}
		}
		return events.Event{}, fmt.Errorf("append event: %w", err)
	}
	event.GlobalPosition = row.GlobalPosition
	return event, nil
}

// ReadStream implements eventlog.Log.
func (s *EventStore) ReadStream(ctx context.Context, streamID string) (eventlog.Stream, error) {
	var rows []eventRow
	err := s.DB.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("stream_version ASC").
		Find(&rows).Error
	if err != nil {
		return eventlog.Stream{}, fmt.Errorf("read stream %s: %w", streamID, err)
	}
	if len(rows) == 0 {
		return eventlog.Stream{}, eventlog.ErrStreamNotFound
	}

	stream := eventlog.Stream{StreamID: streamID, Version: rows[len(rows)-1].StreamVersion}
	for _, row := range rows {
		stream.Events = append(stream.Events, rowToEvent(row))
	}
	return stream, nil
}

// CurrentVersion implements eventlog.Log.
func (s *EventStore) CurrentVersion(ctx context.Context, streamID string) (int64, error) {
	var version int64
	err := s.DB.WithContext(ctx).
		Model(&eventRow{}).
		Where("stream_id = ?", streamID).
		Select("COALESCE(MAX(stream_version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("current version %s: %w", streamID, err)
	}
	return version, nil
}

// ReadAfter returns up to limit events with GlobalPosition > after, in order.
// Used by catch-up consumers and replay tooling.
func (s *EventStore) ReadAfter(ctx context.Context, after int64, limit int) ([]events.Event, error) {
	var rows []eventRow
	err := s.DB.WithContext(ctx).
		Where("global_position > ?", after).
		Order("global_position ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read after %d: %w", after, err)
	}
	out := make([]events.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToEvent(row))
	}
	return out, nil
}

// StreamStore is the durable StateRepository, Committer and CommandLog for
// one stream type. Aggregate state is kept as a JSON snapshot keyed by
// (stream type, stream id); the commit transaction locks the snapshot row,
// verifies the expected version, appends the event, folds it into the
// snapshot and records the command result.
type StreamStore struct {
	DB         *gorm.DB
	StreamType string
	// NewState returns a pointer to a zero aggregate state for unmarshalling.
	NewState func() any
	Apply    orchestrator.Applier
	Clock    func() time.Time
}

// Load implements orchestrator.StateRepository.
func (s *StreamStore) Load(ctx context.Context, streamID string) (any, int64, error) {
	var row stateRow
	err := s.DB.WithContext(ctx).
		Where("stream_type = ? AND stream_id = ?", s.StreamType, streamID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load state %s/%s: %w", s.StreamType, streamID, err)
	}

	state := s.NewState()
	if err := json.Unmarshal(row.Snapshot, state); err != nil {
		return nil, 0, fmt.Errorf("decode state snapshot %s/%s: %w", s.StreamType, streamID, err)
	}
	return state, row.Version, nil
}

// Commit implements orchestrator.Committer.
func (s *StreamStore) Commit(ctx context.Context, req orchestrator.CommitRequest) (events.Event, error) {
	stored := req.Event
	stored.StreamID = req.StreamID
	stored.StreamVersion = req.ExpectedVersion + 1

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current stateRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("stream_type = ? AND stream_id = ?", s.StreamType, req.StreamID).
			First(&current).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lock state row: %w", err)
		}

		var version int64
		var prior any
		if exists {
			version = current.Version
			prior = s.NewState()
			if err := json.Unmarshal(current.Snapshot, prior); err != nil {
				return fmt.Errorf("decode state snapshot: %w", err)
			}
		}
		if version != req.ExpectedVersion {
			return &eventlog.ConflictError{
				StreamID:        req.StreamID,
				ExpectedVersion: req.ExpectedVersion,
				ActualVersion:   version,
			}
		}

		row := eventToRow(stored)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				// Two first writers raced the same absent snapshot row.
				return &eventlog.ConflictError{
					StreamID:        req.StreamID,
					ExpectedVersion: req.ExpectedVersion,
					ActualVersion:   req.ExpectedVersion + 1,
				}
			}
			return fmt.Errorf("append event: %w", err)
		}
		stored.GlobalPosition = row.GlobalPosition

		next, err := s.Apply(prior, stored)
		if err != nil {
			return fmt.Errorf("apply event to state: %w", err)
		}
		snapshot, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode state snapshot: %w", err)
		}
		nextRow := stateRow{
			StreamType: s.StreamType,
			StreamID:   req.StreamID,
			Version:    stored.StreamVersion,
			Snapshot:   snapshot,
			UpdatedAt:  s.now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stream_type"}, {Name: "stream_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "snapshot", "updated_at"}),
		}).Create(&nextRow).Error; err != nil {
			return fmt.Errorf("write state snapshot: %w", err)
		}

		record := req.Result
		record.Event = &stored
		record.Version = stored.StreamVersion
		encoded, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode command record: %w", err)
		}
		if err := tx.Create(&commandRow{
			StreamType:  req.StreamType,
			StreamID:    req.StreamID,
			CommandType: req.CommandType,
			CommandID:   req.CommandID,
			Result:      encoded,
			CreatedAt:   s.now(),
		}).Error; err != nil {
			return fmt.Errorf("write command record: %w", err)
		}
		return nil
	})
	if err != nil {
		return events.Event{}, err
	}
	return stored, nil
}

// Get implements orchestrator.CommandLog.
func (s *StreamStore) Get(ctx context.Context, streamType, streamID, commandType, commandID string) (decider.Result, bool, error) {
	var row commandRow
	err := s.DB.WithContext(ctx).
		Where("stream_type = ? AND stream_id = ? AND command_type = ? AND command_id = ?",
			streamType, streamID, commandType, commandID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decider.Result{}, false, nil
	}
	if err != nil {
		return decider.Result{}, false, fmt.Errorf("load command record: %w", err)
	}

	var result decider.Result
	if err := json.Unmarshal(row.Result, &result); err != nil {
		return decider.Result{}, false, fmt.Errorf("decode command record: %w", err)
	}
	return result, true, nil
}

func (s *StreamStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// CheckpointStore implements checkpoint.Store over projection_checkpoints.
type CheckpointStore struct {
	DB *gorm.DB
}

// Get implements checkpoint.Store.
func (s *CheckpointStore) Get(ctx context.Context, projectionName, partitionKey string) (checkpoint.Checkpoint, bool, error) {
	var row checkpointRow
	err := s.DB.WithContext(ctx).
		Where("projection_name = ? AND partition_key = ?", projectionName, partitionKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return checkpoint.Checkpoint{}, false, nil
	}
	if err != nil {
		return checkpoint.Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return checkpoint.Checkpoint{
		ProjectionName:     row.ProjectionName,
		PartitionKey:       row.PartitionKey,
		LastGlobalPosition: row.LastGlobalPosition,
		LastEventID:        row.LastEventID,
		UpdatedAt:          row.UpdatedAt,
	}, true, nil
}

// Advance implements checkpoint.Store. The projection write and the cursor
// update share one transaction; a failing process leaves the cursor in place.
func (s *CheckpointStore) Advance(ctx context.Context, next checkpoint.Checkpoint, process func(ctx context.Context) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := process(ctx); err != nil {
			return err
		}
		row := checkpointRow{
			ProjectionName:     next.ProjectionName,
			PartitionKey:       next.PartitionKey,
			LastGlobalPosition: next.LastGlobalPosition,
			LastEventID:        next.LastEventID,
			UpdatedAt:          next.UpdatedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "projection_name"}, {Name: "partition_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_global_position", "last_event_id", "updated_at"}),
		}).Create(&row).Error
	})
}

// SagaStore implements saga.Store over sagas and saga_steps.
type SagaStore struct {
	DB *gorm.DB
}

// Begin implements saga.Store. The primary key on (saga_type, saga_id) makes
// duplicate triggering a detectable no-op.
func (s *SagaStore) Begin(ctx context.Context, instance saga.Saga) (bool, error) {
	row := sagaToRow(instance)
	err := s.DB.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("begin saga %s/%s: %w", instance.SagaType, instance.SagaID, err)
	}
	return true, nil
}

// Get implements saga.Store.
func (s *SagaStore) Get(ctx context.Context, sagaType, sagaID string) (saga.Saga, bool, error) {
	var row sagaRow
	err := s.DB.WithContext(ctx).
		Where("saga_type = ? AND saga_id = ?", sagaType, sagaID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return saga.Saga{}, false, nil
	}
	if err != nil {
		return saga.Saga{}, false, fmt.Errorf("load saga %s/%s: %w", sagaType, sagaID, err)
	}
	return rowToSaga(row), true, nil
}

// Update implements saga.Store.
func (s *SagaStore) Update(ctx context.Context, instance saga.Saga) error {
	row := sagaToRow(instance)
	result := s.DB.WithContext(ctx).
		Model(&sagaRow{}).
		Where("saga_type = ? AND saga_id = ?", instance.SagaType, instance.SagaID).
		Updates(map[string]any{
			"execution_status": row.ExecutionStatus,
			"business_outcome": row.BusinessOutcome,
			"completed_at":     row.CompletedAt,
			"updated_at":       row.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update saga %s/%s: %w", instance.SagaType, instance.SagaID, result.Error)
	}
	return nil
}

// AppendSteps implements saga.Store.
func (s *SagaStore) AppendSteps(ctx context.Context, steps []saga.Step) error {
	if len(steps) == 0 {
		return nil
	}
	rows := make([]sagaStepRow, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, sagaStepRow{
			SagaID:      step.SagaID,
			StepName:    step.StepName,
			CommandID:   step.CommandID,
			Kind:        string(step.Kind),
			Status:      string(step.Status),
			StartedAt:   step.StartedAt,
			CompletedAt: step.CompletedAt,
			Detail:      step.Detail,
		})
	}
	if err := s.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("append saga steps: %w", err)
	}
	return nil
}

// Steps implements saga.Store.
func (s *SagaStore) Steps(ctx context.Context, sagaID string) ([]saga.Step, error) {
	var rows []sagaStepRow
	err := s.DB.WithContext(ctx).
		Where("saga_id = ?", sagaID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load saga steps %s: %w", sagaID, err)
	}
	steps := make([]saga.Step, 0, len(rows))
	for _, row := range rows {
		steps = append(steps, saga.Step{
			SagaID:      row.SagaID,
			StepName:    row.StepName,
			CommandID:   row.CommandID,
			Kind:        saga.StepKind(row.Kind),
			Status:      saga.StepStatus(row.Status),
			StartedAt:   row.StartedAt,
			CompletedAt: row.CompletedAt,
			Detail:      row.Detail,
		})
	}
	return steps, nil
}

// Delete implements saga.Store.
func (s *SagaStore) Delete(ctx context.Context, sagaType, sagaID string) (bool, error) {
	var existed bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("saga_type = ? AND saga_id = ?", sagaType, sagaID).Delete(&sagaRow{})
		if result.Error != nil {
			return result.Error
		}
		existed = result.RowsAffected > 0
		if !existed {
			return nil
		}
		return tx.Where("saga_id = ?", sagaID).Delete(&sagaStepRow{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete saga %s/%s: %w", sagaType, sagaID, err)
	}
	return existed, nil
}

// DeleteTerminalBefore implements saga.Store.
func (s *SagaStore) DeleteTerminalBefore(ctx context.Context, sagaType string, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []sagaRow
		if err := tx.
			Where("saga_type = ? AND execution_status IN ? AND completed_at < ?",
				sagaType,
				[]string{string(saga.ExecutionCompleted), string(saga.ExecutionFailed)},
				cutoff,
			).
			Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			if err := tx.Where("saga_id = ?", row.SagaID).Delete(&sagaStepRow{}).Error; err != nil {
				return err
			}
			if err := tx.
				Where("saga_type = ? AND saga_id = ?", row.SagaType, row.SagaID).
				Delete(&sagaRow{}).Error; err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup sagas %s: %w", sagaType, err)
	}
	return removed, nil
}

func sagaToRow(instance saga.Saga) sagaRow {
	return sagaRow{
		SagaType:        instance.SagaType,
		SagaID:          instance.SagaID,
		ExecutionStatus: string(instance.ExecutionStatus),
		BusinessOutcome: string(instance.BusinessOutcome),
		WorkflowID:      instance.WorkflowID,
		SubmittedAt:     instance.SubmittedAt,
		CompletedAt:     instance.CompletedAt,
		UpdatedAt:       instance.UpdatedAt,
	}
}

func rowToSaga(row sagaRow) saga.Saga {
	return saga.Saga{
		SagaID:          row.SagaID,
		SagaType:        row.SagaType,
		ExecutionStatus: saga.ExecutionStatus(row.ExecutionStatus),
		BusinessOutcome: saga.BusinessOutcome(row.BusinessOutcome),
		WorkflowID:      row.WorkflowID,
		SubmittedAt:     row.SubmittedAt,
		CompletedAt:     row.CompletedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

// DeadLetterStore implements deadletter.Store over dead_letters.
type DeadLetterStore struct {
	DB *gorm.DB
}

// Append implements deadletter.Store.
func (s *DeadLetterStore) Append(ctx context.Context, record deadletter.Record) error {
	row := deadLetterRow{
		RecordID:   record.RecordID,
		Source:     record.Source,
		Subject:    record.Subject,
		Reason:     record.Reason,
		Payload:    record.Payload,
		OccurredAt: record.OccurredAt,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append dead letter: %w", err)
	}
	return nil
}
