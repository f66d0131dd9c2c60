package db

import "time"

// eventRow is the append-only log. GlobalPosition is the table's identity
// column; the unique (stream_id, stream_version) index is the optimistic
// concurrency guard.
type eventRow struct {
	GlobalPosition int64  `gorm:"primaryKey;autoIncrement"`
	EventID        string `gorm:"type:uuid;uniqueIndex"`
	StreamID       string `gorm:"size:128;uniqueIndex:uq_events_stream_version;index:idx_events_stream"`
	StreamVersion  int64  `gorm:"uniqueIndex:uq_events_stream_version"`
	StreamType     string `gorm:"size:64;index"`
	EventType      string `gorm:"size:128;index"`
	Payload        []byte `gorm:"type:jsonb"`
	CorrelationID  string `gorm:"size:128;index"`
	CausationID    string `gorm:"size:128"`
	SchemaVersion  int
	Category       string `gorm:"size:32"`
	BoundedContext string `gorm:"size:64"`
	OccurredAt     time.Time
}

func (eventRow) TableName() string { return "events" }

// stateRow is the materialized aggregate snapshot the orchestrator loads
// before deciding. It is derived state, rebuildable from the events table.
type stateRow struct {
	StreamType string `gorm:"primaryKey;size:64"`
	StreamID   string `gorm:"primaryKey;size:128"`
	Version    int64
	Snapshot   []byte `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

func (stateRow) TableName() string { return "aggregate_states" }

// commandRow is the idempotency record written inside the commit transaction,
// keyed per stream and command type.
type commandRow struct {
	StreamType  string `gorm:"primaryKey;size:64"`
	StreamID    string `gorm:"primaryKey;size:128"`
	CommandType string `gorm:"primaryKey;size:128"`
	CommandID   string `gorm:"primaryKey;size:128"`
	Result      []byte `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

func (commandRow) TableName() string { return "command_records" }

// checkpointRow is the per (projection, partition) cursor.
type checkpointRow struct {
	ProjectionName     string `gorm:"primaryKey;size:128"`
	PartitionKey       string `gorm:"primaryKey;size:128"`
	LastGlobalPosition int64
	LastEventID        string `gorm:"size:128"`
	UpdatedAt          time.Time
}

func (checkpointRow) TableName() string { return "projection_checkpoints" }

type sagaRow struct {
	SagaType        string `gorm:"primaryKey;size:64"`
	SagaID          string `gorm:"primaryKey;size:128"`
	ExecutionStatus string `gorm:"size:32;index"`
	BusinessOutcome string `gorm:"size:32"`
	WorkflowID      string `gorm:"size:128;index"`
	SubmittedAt     time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

func (sagaRow) TableName() string { return "sagas" }

type sagaStepRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	SagaID      string `gorm:"size:128;index"`
	StepName    string `gorm:"size:128"`
	CommandID   string `gorm:"size:128"`
	Kind        string `gorm:"size:32"`
	Status      string `gorm:"size:32"`
	StartedAt   time.Time
	CompletedAt *time.Time
	Detail      string `gorm:"type:text"`
}

func (sagaStepRow) TableName() string { return "saga_steps" }

type deadLetterRow struct {
	RecordID   string `gorm:"primaryKey;size:128"`
	Source     string `gorm:"size:128;index"`
	Subject    string `gorm:"size:128;index"`
	Reason     string `gorm:"type:text"`
	Payload    []byte `gorm:"type:jsonb"`
	OccurredAt time.Time
}

func (deadLetterRow) TableName() string { return "dead_letters" }
