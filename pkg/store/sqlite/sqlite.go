// Package sqlite provides a SQLite-backed fact store using mattn/go-sqlite3.
//
// Embeddings are stored as little-endian float32 BLOBs. Similarity search is
// a brute-force scan: metadata filters are pushed into SQL, cosine scores are
// computed in-process, and results are ranked with the shared store ordering
// (score descending, id ascending on ties).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/engram/pkg/fact"
	"github.com/papercomputeco/engram/pkg/store"
)

// Config holds configuration for the SQLite fact store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding dimension enforced on every record.
	Dimensions int
}

// Driver implements store.Driver on SQLite.
type Driver struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id              TEXT PRIMARY KEY,
	timeStamp       TEXT NOT NULL,
	floatTimeStamp  REAL NOT NULL,
	weekday         TEXT,
	category        TEXT,
	subcategory     TEXT,
	memoryClass     TEXT,
	memory          TEXT NOT NULL,
	originalMemory  TEXT,
	compressedMemory TEXT,
	topicId         INTEGER,
	topicSummary    TEXT,
	speakerId       TEXT,
	speakerName     TEXT,
	hitTime         INTEGER DEFAULT 0,
	updateQueue     TEXT,
	embedding       BLOB,
	createdAt       TEXT
)`

// NewDriver opens (and migrates) a SQLite fact store.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured: %w", store.ErrDimensionMismatch)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating memories table: %w", err)
	}

	logger.Info("sqlite fact store initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		db:         db,
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

	queueJSON, err := marshalQueue(rec.UpdateQueue)
	if err != nil {
		return fmt.Errorf("encoding update queue for %s: %w", rec.ID, err)
	}

	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = fact.FormatTimeStamp(time.Now())
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO memories (
			id, timeStamp, floatTimeStamp, weekday,
			category, subcategory, memoryClass,
			memory, originalMemory, compressedMemory,
			topicId, topicSummary, speakerId, speakerName,
			hitTime, updateQueue, embedding, createdAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timeStamp = excluded.timeStamp,
			floatTimeStamp = excluded.floatTimeStamp,
			weekday = excluded.weekday,
			category = excluded.category,
			subcategory = excluded.subcategory,
			memoryClass = excluded.memoryClass,
			memory = excluded.memory,
			compressedMemory = excluded.compressedMemory,
			topicId = excluded.topicId,
			topicSummary = excluded.topicSummary,
			speakerId = excluded.speakerId,
			speakerName = excluded.speakerName,
			hitTime = excluded.hitTime,
			updateQueue = excluded.updateQueue,
			embedding = excluded.embedding
	`,
		rec.ID, rec.TimeStamp, rec.FloatTimeStamp, rec.Weekday,
		rec.Category, rec.Subcategory, rec.MemoryClass,
		rec.Memory, rec.OriginalMemory, rec.CompressedMemory,
		rec.TopicID, rec.TopicSummary, rec.SpeakerID, rec.SpeakerName,
		rec.HitTime, queueJSON, store.SerializeFloat32(rec.Embedding), createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}

	d.logger.Debug("inserted fact record", "id", rec.ID)

	return nil
}

// Get reads a single record including its embedding.
func (d *Driver) Get(ctx context.Context, id string) (*fact.Record, error) {
	row := d.db.QueryRowContext(ctx, selectColumns+` FROM memories WHERE id = ?`, id)

	rec, err := scanRecord(row, true)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}

	return rec, nil
}

// All returns every record. Order is unspecified.
func (d *Driver) All(ctx context.Context, includeEmbedding bool) ([]*fact.Record, error) {
	rows, err := d.db.QueryContext(ctx, selectColumns+` FROM memories`)
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

	if patch.Memory != nil {
		sets = append(sets, "memory = ?")
		args = append(args, *patch.Memory)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Subcategory != nil {
		sets = append(sets, "subcategory = ?")
		args = append(args, *patch.Subcategory)
	}
	if patch.HitTime != nil {
		sets = append(sets, "hitTime = ?")
		args = append(args, *patch.HitTime)
	}
	if patch.UpdateQueue != nil {
		queueJSON, err := marshalQueue(*patch.UpdateQueue)
		if err != nil {
			return fmt.Errorf("encoding update queue for %s: %w", id, err)
		}
		sets = append(sets, "updateQueue = ?")
		args = append(args, queueJSON)
	}
	if patch.Embedding != nil {
		sets = append(sets, "embedding = ?")
		args = append(args, store.SerializeFloat32(patch.Embedding))
	}

	if len(sets) == 0 {
		var exists int
		err := d.db.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return err
	}

	args = append(args, id)
	res, err := d.db.ExecContext(ctx,
		`UPDATE memories SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of %s: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	d.logger.Debug("updated fact record", "id", id, "fields", len(sets))

	return nil
}

// Delete hard-removes a record. Missing ids are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}

	d.logger.Debug("deleted fact record", "id", id)

	return nil
}

// Count returns the total number of records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
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

	where := []string{"1=1"}
	args := []any{}

	if f := filters.FloatTimeStamp; f != nil {
		if f.GTE != nil {
			where = append(where, "floatTimeStamp >= ?")
			args = append(args, *f.GTE)
		}
		if f.LTE != nil {
			where = append(where, "floatTimeStamp <= ?")
			args = append(args, *f.LTE)
		}
	}
	if filters.SpeakerID != nil {
		where = append(where, "speakerId = ?")
		args = append(args, *filters.SpeakerID)
	}
	if filters.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *filters.Category)
	}

	rows, err := d.db.QueryContext(ctx,
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

// Close releases the database handle.
func (d *Driver) Close() error {
	return d.db.Close()
}

const selectColumns = `SELECT
	id, timeStamp, floatTimeStamp, weekday,
	category, subcategory, memoryClass,
	memory, originalMemory, compressedMemory,
	topicId, topicSummary, speakerId, speakerName,
	hitTime, updateQueue, embedding, createdAt`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, includeEmbedding bool) (*fact.Record, error) {
	var (
		rec       fact.Record
		weekday   sql.NullString
		category  sql.NullString
		subcat    sql.NullString
		class     sql.NullString
		original  sql.NullString
		comp      sql.NullString
		topicID   sql.NullInt64
		summary   sql.NullString
		speakerID sql.NullString
		speaker   sql.NullString
		queueJSON sql.NullString
		embBlob   []byte
		createdAt sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.TimeStamp, &rec.FloatTimeStamp, &weekday,
		&category, &subcat, &class,
		&rec.Memory, &original, &comp,
		&topicID, &summary, &speakerID, &speaker,
		&rec.HitTime, &queueJSON, &embBlob, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Weekday = weekday.String
	rec.Category = category.String
	rec.Subcategory = subcat.String
	rec.MemoryClass = class.String
	rec.OriginalMemory = original.String
	rec.CompressedMemory = comp.String
	rec.TopicSummary = summary.String
	rec.SpeakerID = speakerID.String
	rec.SpeakerName = speaker.String
	rec.CreatedAt = createdAt.String

	if topicID.Valid {
		id := topicID.Int64
		rec.TopicID = &id
	}

	if queueJSON.Valid && queueJSON.String != "" {
		if err := json.Unmarshal([]byte(queueJSON.String), &rec.UpdateQueue); err != nil {
			return nil, fmt.Errorf("decoding update queue: %w", err)
		}
	}

	if includeEmbedding && len(embBlob) > 0 {
		rec.Embedding, err = store.DeserializeFloat32(embBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
	}

	return &rec, nil
}

func marshalQueue(queue []fact.QueueEntry) (string, error) {
	if queue == nil {
		queue = []fact.QueueEntry{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
