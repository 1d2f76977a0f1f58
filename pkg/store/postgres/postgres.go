// Package postgres provides a Postgres-backed fact store using pgx.
//
// Behavior matches the SQLite driver: embeddings live in a BYTEA column as
// little-endian float32 bytes, filters are pushed into SQL, and cosine
// ranking happens in-process so ordering is identical across backends.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/engram/pkg/fact"
	"github.com/papercomputeco/engram/pkg/store"
)

// Config holds configuration for the Postgres fact store.
type Config struct {
	// URL is the Postgres connection string.
	URL string

	// Dimensions is the embedding dimension enforced on every record.
	Dimensions int
}

// Driver implements store.Driver on Postgres.
type Driver struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id               TEXT PRIMARY KEY,
	time_stamp       TEXT NOT NULL,
	float_time_stamp DOUBLE PRECISION NOT NULL,
	weekday          TEXT,
	category         TEXT,
	subcategory      TEXT,
	memory_class     TEXT,
	memory           TEXT NOT NULL,
	original_memory  TEXT,
	compressed_memory TEXT,
	topic_id         BIGINT,
	topic_summary    TEXT,
	speaker_id       TEXT,
	speaker_name     TEXT,
	hit_time         INTEGER DEFAULT 0,
	update_queue     JSONB,
	embedding        BYTEA,
	created_at       TEXT
)`

// NewDriver connects to Postgres and migrates the memories table.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured: %w", store.ErrDimensionMismatch)
	}

	pool, err := pgxpool.New(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating memories table: %w", err)
	}

	logger.Info("postgres fact store initialized", "dimensions", c.Dimensions)

	return &Driver{
		pool:       pool,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// Dimensions reports the configured embedding dimension.
func (d *Driver) Dimensions() int {
	return d.dimensions
}

// Insert upserts a record by id.
func (d *Driver) Insert(ctx context.Context, rec *fact.Record) error {
	if len(rec.Embedding) != d.dimensions {
		return fmt.Errorf("record %s has %d dimensions, store expects %d: %w",
			rec.ID, len(rec.Embedding), d.dimensions, store.ErrDimensionMismatch)
	}

	queue := rec.UpdateQueue
	if queue == nil {
		queue = []fact.QueueEntry{}
	}

	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = fact.FormatTimeStamp(time.Now())
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO memories (
			id, time_stamp, float_time_stamp, weekday,
			category, subcategory, memory_class,
			memory, original_memory, compressed_memory,
			topic_id, topic_summary, speaker_id, speaker_name,
			hit_time, update_queue, embedding, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			time_stamp = EXCLUDED.time_stamp,
			float_time_stamp = EXCLUDED.float_time_stamp,
			weekday = EXCLUDED.weekday,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			memory_class = EXCLUDED.memory_class,
			memory = EXCLUDED.memory,
			compressed_memory = EXCLUDED.compressed_memory,
			topic_id = EXCLUDED.topic_id,
			topic_summary = EXCLUDED.topic_summary,
			speaker_id = EXCLUDED.speaker_id,
			speaker_name = EXCLUDED.speaker_name,
			hit_time = EXCLUDED.hit_time,
			update_queue = EXCLUDED.update_queue,
			embedding = EXCLUDED.embedding
	`,
		rec.ID, rec.TimeStamp, rec.FloatTimeStamp, rec.Weekday,
		rec.Category, rec.Subcategory, rec.MemoryClass,
		rec.Memory, rec.OriginalMemory, rec.CompressedMemory,
		rec.TopicID, rec.TopicSummary, rec.SpeakerID, rec.SpeakerName,
		rec.HitTime, queue, store.SerializeFloat32(rec.Embedding), createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}

	d.logger.Debug("inserted fact record", "id", rec.ID)

	return nil
}

// Get reads a single record including its embedding.
func (d *Driver) Get(ctx context.Context, id string) (*fact.Record, error) {
	rows, err := d.pool.Query(ctx, selectColumns+` FROM memories WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reading record %s: %w", id, err)
		}
		return nil, store.ErrNotFound
	}

	rec, err := scanRecord(rows, true)
	if err != nil {
		return nil, fmt.Errorf("scanning record %s: %w", id, err)
	}

	return rec, nil
}

// All returns every record. Order is unspecified.
func (d *Driver) All(ctx context.Context, includeEmbedding bool) ([]*fact.Record, error) {
	rows, err := d.pool.Query(ctx, selectColumns+` FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("scanning memories: %w", err)
	}
	defer rows.Close()

	var records []*fact.Record
	for rows.Next() {
		rec, err := scanRecord(rows, includeEmbedding)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memories: %w", err)
	}

	return records, nil
}

// Update applies a field-level patch to an existing record.
func (d *Driver) Update(ctx context.Context, id string, patch store.Patch) error {
	if patch.Embedding != nil && len(patch.Embedding) != d.dimensions {
		return fmt.Errorf("patch embedding has %d dimensions, store expects %d: %w",
			len(patch.Embedding), d.dimensions, store.ErrDimensionMismatch)
	}

	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Memory != nil {
		sets = append(sets, "memory = "+arg(*patch.Memory))
	}
	if patch.Category != nil {
		sets = append(sets, "category = "+arg(*patch.Category))
	}
	if patch.Subcategory != nil {
		sets = append(sets, "subcategory = "+arg(*patch.Subcategory))
	}
	if patch.HitTime != nil {
		sets = append(sets, "hit_time = "+arg(*patch.HitTime))
	}
	if patch.UpdateQueue != nil {
		queue := *patch.UpdateQueue
		if queue == nil {
			queue = []fact.QueueEntry{}
		}
		sets = append(sets, "update_queue = "+arg(queue))
	}
	if patch.Embedding != nil {
		sets = append(sets, "embedding = "+arg(store.SerializeFloat32(patch.Embedding)))
	}

	if len(sets) == 0 {
		var one int
		err := d.pool.QueryRow(ctx, `SELECT 1 FROM memories WHERE id = $1`, id).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE memories SET `+strings.Join(sets, ", ")+` WHERE id = `+arg(id), args...)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	d.logger.Debug("updated fact record", "id", id, "fields", len(sets))

	return nil
}

// Delete hard-removes a record. Missing ids are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	if _, err := d.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}

	d.logger.Debug("deleted fact record", "id", id)

	return nil
}

// Count returns the total number of records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting memories: %w", err)
	}
	return n, nil
}

// Search scans records matching the filters and ranks them by cosine
// similarity to the query vector.
func (d *Driver) Search(ctx context.Context, query []float32, k int, filters store.Filters) ([]store.Hit, error) {
	if len(query) != d.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, store expects %d: %w",
			len(query), d.dimensions, store.ErrDimensionMismatch)
	}

	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f := filters.FloatTimeStamp; f != nil {
		if f.GTE != nil {
			where = append(where, "float_time_stamp >= "+arg(*f.GTE))
		}
		if f.LTE != nil {
			where = append(where, "float_time_stamp <= "+arg(*f.LTE))
		}
	}
	if filters.SpeakerID != nil {
		where = append(where, "speaker_id = "+arg(*filters.SpeakerID))
	}
	if filters.Category != nil {
		where = append(where, "category = "+arg(*filters.Category))
	}

	rows, err := d.pool.Query(ctx,
		selectColumns+` FROM memories WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var hits []store.Hit
	for rows.Next() {
		rec, err := scanRecord(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		hits = append(hits, store.Hit{
			ID:     rec.ID,
			Score:  store.CosineSimilarity(query, rec.Embedding),
			Record: rec,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memories: %w", err)
	}

	hits = store.RankHits(hits, k)

	d.logger.Debug("searched fact store", "k", k, "results", len(hits))

	return hits, nil
}

// Close releases the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

const selectColumns = `SELECT
	id, time_stamp, float_time_stamp, weekday,
	category, subcategory, memory_class,
	memory, original_memory, compressed_memory,
	topic_id, topic_summary, speaker_id, speaker_name,
	hit_time, update_queue, embedding, created_at`

func scanRecord(rows pgx.Rows, includeEmbedding bool) (*fact.Record, error) {
	var (
		rec       fact.Record
		weekday   *string
		category  *string
		subcat    *string
		class     *string
		original  *string
		comp      *string
		summary   *string
		speakerID *string
		speaker   *string
		queue     []fact.QueueEntry
		embBlob   []byte
		createdAt *string
	)

	err := rows.Scan(
		&rec.ID, &rec.TimeStamp, &rec.FloatTimeStamp, &weekday,
		&category, &subcat, &class,
		&rec.Memory, &original, &comp,
		&rec.TopicID, &summary, &speakerID, &speaker,
		&rec.HitTime, &queue, &embBlob, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	rec.Weekday = deref(weekday)
	rec.Category = deref(category)
	rec.Subcategory = deref(subcat)
	rec.MemoryClass = deref(class)
	rec.OriginalMemory = deref(original)
	rec.CompressedMemory = deref(comp)
	rec.TopicSummary = deref(summary)
	rec.SpeakerID = deref(speakerID)
	rec.SpeakerName = deref(speaker)
	rec.CreatedAt = deref(createdAt)
	rec.UpdateQueue = queue

	if includeEmbedding && len(embBlob) > 0 {
		rec.Embedding, err = store.DeserializeFloat32(embBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
	}

	return &rec, nil
}
