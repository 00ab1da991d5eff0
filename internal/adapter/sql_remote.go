// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sethvargo/go-retry"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/models"
)

const (
	syncRecordsTable  = "sync_records"
	syncSequenceTable = "sync_sequence"
)

var syncRecordColumns = []string{
	"id",
	"collection",
	"data",
	"version",
	"previous_version",
	"deleted",
	"stamped_at",
	"modified_at",
	"device_id",
	"hash",
	"change_seq",
}

// upsertSuffix lets the mirror number versions itself: a new id starts at 1,
// every further push of it adds one.
const upsertSuffix = `ON CONFLICT (collection, id) DO UPDATE SET
		data = excluded.data,
		previous_version = sync_records.version,
		version = sync_records.version + 1,
		deleted = excluded.deleted,
		stamped_at = excluded.stamped_at,
		modified_at = excluded.modified_at,
		device_id = excluded.device_id,
		hash = excluded.hash,
		change_seq = excluded.change_seq
	RETURNING version, previous_version`

// Dialect is the database/sql driver name of a mirror. It doubles as the
// goose dialect.
type Dialect string

const (
	DialectPostgres Dialect = "pgx"
	DialectSQLite   Dialect = "sqlite3"
)

// ParseDialect maps a configured driver name to a [Dialect].
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("%q: %w", driver, ErrUnsupportedDriver)
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

func (d Dialect) classifier() ErrorClassifier {
	if d == DialectPostgres {
		return NewPostgresErrorClassifier()
	}
	return NewSQLiteErrorClassifier()
}

// sqlRemote is a [RemoteSource] backed by a single sync_records table that
// every device reads and writes.
type sqlRemote struct {
	db         *sql.DB
	builder    sq.StatementBuilderType
	classifier ErrorClassifier
	attempts   int
	backoff    time.Duration
	logger     *logger.Logger
}

// SQLRemoteOption configures [NewSQLRemote].
type SQLRemoteOption func(*sqlRemote)

// WithRetryPolicy sets how many times a retryable failure is attempted and
// the base delay of the exponential backoff between attempts. A backoff
// below one millisecond is raised to one millisecond.
func WithRetryPolicy(attempts int, backoff time.Duration) SQLRemoteOption {
	return func(r *sqlRemote) {
		if attempts > 0 {
			r.attempts = attempts
		}
		r.backoff = max(backoff, time.Millisecond)
	}
}

func WithRemoteLogger(l *logger.Logger) SQLRemoteOption {
	return func(r *sqlRemote) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewSQLRemote returns a [RemoteSource] over db. The schema must already be
// migrated; see migrations.Migrate.
func NewSQLRemote(db *sql.DB, dialect Dialect, opts ...SQLRemoteOption) RemoteSource {
	r := &sqlRemote{
		db:         db,
		builder:    sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
		classifier: dialect.classifier(),
		attempts:   3,
		backoff:    100 * time.Millisecond,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("remote.sql")

	return r
}

func (r *sqlRemote) GetChangesAfter(ctx context.Context, collection string, cursor int64) ([]models.SyncRecord, error) {
	query, args, err := buildGetChangesAfterQuery(r.builder, collection, cursor)
	if err != nil {
		r.logger.Err(err).
			Str("func", "sqlRemote.GetChangesAfter").
			Str("collection", collection).
			Msg("failed to create query")
		return nil, err
	}

	var records []models.SyncRecord
	err = r.withRetry(ctx, "sqlRemote.GetChangesAfter", func(ctx context.Context) error {
		var err error
		records, err = r.queryRecords(ctx, query, args)
		return err
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "sqlRemote.GetChangesAfter").
			Str("collection", collection).
			Int64("cursor", cursor).
			Msg("failed to read remote changes")
		return nil, err
	}

	return records, nil
}

func (r *sqlRemote) Push(ctx context.Context, collection string, records ...models.SyncRecord) ([]models.SyncRecord, error) {
	if len(records) == 0 {
		return []models.SyncRecord{}, nil
	}

	var accepted []models.SyncRecord
	err := r.withRetry(ctx, "sqlRemote.Push", func(ctx context.Context) error {
		var err error
		accepted, err = r.pushTx(ctx, collection, records)
		return err
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "sqlRemote.Push").
			Str("collection", collection).
			Int("records", len(records)).
			Msg("failed to push records")
		return nil, err
	}

	r.logger.Debug().
		Str("func", "sqlRemote.Push").
		Str("collection", collection).
		Int("records", len(accepted)).
		Msg("records pushed")

	return accepted, nil
}

// pushTx writes all records in one transaction so that a retry never
// leaves a partial push behind. Every record of the push shares one change
// sequence, drawn from the counter row before the first upsert.
func (r *sqlRemote) pushTx(ctx context.Context, collection string, records []models.SyncRecord) (_ []models.SyncRecord, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeginTx, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seq, err := r.nextSeq(ctx, tx)
	if err != nil {
		return nil, err
	}

	accepted := make([]models.SyncRecord, 0, len(records))
	for _, rec := range records {
		query, args, buildErr := buildUpsertQuery(r.builder, collection, rec, seq)
		if buildErr != nil {
			return nil, buildErr
		}

		var version, previous int64
		if scanErr := tx.QueryRowContext(ctx, query, args...).Scan(&version, &previous); scanErr != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrExecutingQuery, collection, rec.ID, scanErr)
		}

		accepted = append(accepted, acceptedRecord(collection, rec, version, previous, seq))
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitTx, err)
	}

	return accepted, nil
}

// nextSeq bumps the sequence counter. The row stays locked until tx ends, so
// a concurrent push waits here and always receives a later sequence than any
// push that committed before it.
func (r *sqlRemote) nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	query, args, err := r.builder.Update(syncSequenceTable).
		Set("value", sq.Expr("value + 1")).
		Where(sq.Eq{"name": syncRecordsTable}).
		Suffix("RETURNING value").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("%w: next change sequence: %w", ErrExecutingQuery, err)
	}
	return seq, nil
}

func (r *sqlRemote) queryRecords(ctx context.Context, query string, args []any) ([]models.SyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	results := make([]models.SyncRecord, 0, 50)
	for rows.Next() {
		rec, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return results, nil
}

// withRetry runs op until it succeeds, fails with a non-retryable error or
// runs out of attempts. Delays grow exponentially from the base backoff.
func (r *sqlRemote) withRetry(ctx context.Context, fn string, op func(ctx context.Context) error) error {
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(r.backoff))
	backoff = retry.WithMaxRetries(uint64(r.attempts-1), backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil || r.classifier.Classify(err) != Retryable {
			return err
		}

		r.logger.Warn().Err(err).
			Str("func", fn).
			Int("attempt", attempt).
			Msg("retryable database error")

		return retry.RetryableError(err)
	})
}

func buildGetChangesAfterQuery(b sq.StatementBuilderType, collection string, cursor int64) (string, []any, error) {
	q := b.Select(syncRecordColumns...).
		From(syncRecordsTable).
		Where(sq.Eq{"collection": collection})
	if cursor > 0 {
		q = q.Where(sq.Gt{"change_seq": cursor})
	}

	query, args, err := q.OrderBy("change_seq", "id").ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}
	return query, args, nil
}

func buildUpsertQuery(b sq.StatementBuilderType, collection string, rec models.SyncRecord, seq int64) (string, []any, error) {
	deleted := rec.IsDelete()

	var data sql.NullString
	hash := ""
	if !deleted {
		raw, err := json.Marshal(rec.Data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %w", ErrEncodingRecord, rec.ID, err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
		hash = rec.Hash
	}

	query, args, err := b.Insert(syncRecordsTable).
		Columns("collection", "id", "data", "version", "previous_version", "deleted",
			"stamped_at", "modified_at", "device_id", "hash", "change_seq").
		Values(collection, rec.ID, data, 1, 0, deleted,
			unixNano(rec.Timestamp), unixNano(rec.ModifiedAt), rec.DeviceID, hash, seq).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}
	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRecord(row rowScanner) (models.SyncRecord, error) {
	var (
		rec        models.SyncRecord
		data       sql.NullString
		deleted    bool
		stampedAt  int64
		modifiedAt int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.Collection,
		&data,
		&rec.Version,
		&rec.PreviousVersion,
		&deleted,
		&stampedAt,
		&modifiedAt,
		&rec.DeviceID,
		&rec.Hash,
		&rec.Seq,
	)
	if err != nil {
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	rec.Timestamp = time.Unix(0, stampedAt).UTC()
	if modifiedAt != 0 {
		rec.ModifiedAt = time.Unix(0, modifiedAt).UTC()
	}
	switch {
	case deleted:
		rec.Action = models.SyncActionDelete
		rec.IsTombstone = true
		rec.Hash = ""
	case rec.PreviousVersion == 0:
		rec.Action = models.SyncActionCreate
	default:
		rec.Action = models.SyncActionUpdate
	}

	if !deleted && data.Valid {
		if err := json.Unmarshal([]byte(data.String), &rec.Data); err != nil {
			return models.SyncRecord{}, fmt.Errorf("%w: %s: %w", ErrDecodingRecord, rec.ID, err)
		}
	}

	return rec, nil
}

func acceptedRecord(collection string, rec models.SyncRecord, version, previous, seq int64) models.SyncRecord {
	out := rec
	out.Collection = collection
	out.Version = version
	out.PreviousVersion = previous
	out.Seq = seq

	switch {
	case rec.IsDelete():
		out.Action = models.SyncActionDelete
		out.IsTombstone = true
		out.Data = nil
		out.Hash = ""
	case previous == 0:
		out.Action = models.SyncActionCreate
	default:
		out.Action = models.SyncActionUpdate
	}
	return out
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}
