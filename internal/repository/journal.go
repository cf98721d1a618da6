package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	pkgch "TickBrain/pkg/clickhouse"
)

const (
	decisionsTable   = "gate_decisions"
	transitionsTable = "gate_transitions"
)

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS ` + decisionsTable + ` (
		ts DateTime64(3),
		instrument String,
		kind LowCardinality(String),
		accepted UInt8,
		reason LowCardinality(String),
		price Float64,
		regime LowCardinality(String)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (instrument, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,

	`CREATE TABLE IF NOT EXISTS ` + transitionsTable + ` (
		ts DateTime64(3),
		instrument String,
		action LowCardinality(String),
		price Float64,
		reason LowCardinality(String),
		sink_accepted UInt8,
		sink_skipped UInt8,
		sink_status Int32,
		sink_detail String
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (instrument, ts)`,
}

// ClickHouseJournal implements the decision journal on ClickHouse.
// Appends are fire-and-forget from the caller's perspective; the gate
// never blocks a decision on journal availability.
type ClickHouseJournal struct {
	client *pkgch.Client
	db     *sql.DB
}

// NewClickHouseJournal creates the journal over a shared ClickHouse client.
func NewClickHouseJournal(client *pkgch.Client) drepo.Journal {
	return &ClickHouseJournal{client: client, db: client.DB()}
}

// Init ensures journal tables exist (idempotent).
func (j *ClickHouseJournal) Init(ctx context.Context) error {
	return j.client.InitSchema(ctx, schemaStmts)
}

func (j *ClickHouseJournal) AppendDecision(ctx context.Context, rec *models.DecisionRecord) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, instrument, kind, accepted, reason, price, regime) VALUES (?, ?, ?, ?, ?, ?, ?)",
		decisionsTable)
	_, err := j.db.ExecContext(ctx, q,
		time.UnixMilli(rec.TimestampMs),
		rec.Instrument,
		rec.Kind,
		boolToUInt8(rec.Accepted),
		rec.Reason,
		rec.Price,
		rec.Regime,
	)
	return err
}

func (j *ClickHouseJournal) AppendTransition(ctx context.Context, tr *models.Transition, sink models.SinkResult) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, instrument, action, price, reason, sink_accepted, sink_skipped, sink_status, sink_detail) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		transitionsTable)
	_, err := j.db.ExecContext(ctx, q,
		time.UnixMilli(tr.TimestampMs),
		tr.Instrument,
		tr.Action,
		tr.Price,
		tr.Reason,
		boolToUInt8(sink.Accepted),
		boolToUInt8(sink.Skipped),
		int32(sink.Status),
		sink.Detail,
	)
	return err
}

func (j *ClickHouseJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *ClickHouseJournal) Close() error {
	return nil // client lifecycle managed by pkg
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
