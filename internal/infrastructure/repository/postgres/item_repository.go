package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/findit/internal/core/domain"
)

const uniqueViolation = "23505"

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func OpenDB(dsn string, maxConns int) (*sql.DB, error) {
	if maxConns <= 0 {
		maxConns = 10
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ItemRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025040101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	reporter_id TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	location TEXT NOT NULL,
	date_lost_found TIMESTAMPTZ,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	ai_metadata JSONB,
	status TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	last_matched_at TIMESTAMPTZ
);

ALTER TABLE items ADD COLUMN IF NOT EXISTS last_matched_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS idx_items_pool ON items(type, category, status);
CREATE INDEX IF NOT EXISTS idx_items_expires_at ON items(expires_at) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_items_rematch ON items(status, last_matched_at);

CREATE TABLE IF NOT EXISTS item_matches (
	item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	matched_item_id TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	detailed_analysis JSONB NOT NULL DEFAULT '{}'::jsonb,
	notified BOOLEAN NOT NULL DEFAULT FALSE,
	linked_back BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (item_id, matched_item_id)
);

ALTER TABLE item_matches ADD COLUMN IF NOT EXISTS linked_back BOOLEAN NOT NULL DEFAULT FALSE;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const itemColumns = `id, reporter_id, type, category, title, description, location, date_lost_found, tags, ai_metadata, status, expires_at, created_at, updated_at`

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	tagsJSON, err := json.Marshal(nonNilTags(item.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	metaJSON, err := marshalMetadata(item.AIMetadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO items (`+itemColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		item.ID, item.ReporterID, string(item.Type), string(item.Category), item.Title, item.Description, item.Location,
		item.DateLostFound, tagsJSON, metaJSON, string(item.Status), item.ExpiresAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.WrapError(domain.ErrConflict, "insert item", err)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+itemColumns+`
FROM items
WHERE id = $1
`, id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrItemNotFound, "get item", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return &item, nil
}

// ListCandidates returns the pool in creation order so ranking ties are stable.
func (r *ItemRepository) ListCandidates(ctx context.Context, filter domain.CandidateFilter) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+itemColumns+`
FROM items
WHERE type = $1 AND category = $2 AND status = $3 AND id <> $4
ORDER BY created_at ASC, id ASC
LIMIT $5
`, string(filter.Type), string(filter.Category), string(filter.Status), filter.ExcludeID, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// ListActiveIDs returns active items least recently matched first; items
// never matched come before all others.
func (r *ItemRepository) ListActiveIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id
FROM items
WHERE status = $1
ORDER BY last_matched_at ASC NULLS FIRST, created_at ASC, id ASC
LIMIT $2
`, string(domain.StatusActive), limit)
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active item id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active items: %w", err)
	}
	return out, nil
}

func (r *ItemRepository) SaveAIMetadata(ctx context.Context, id string, meta domain.AIMetadata) error {
	metaJSON, err := marshalMetadata(&meta)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE items
SET ai_metadata = $2, updated_at = $3
WHERE id = $1
`, id, metaJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ai metadata: %w", err)
	}
	return requireRow(result, "save ai metadata", id)
}

func (r *ItemRepository) MarkMatched(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE items
SET last_matched_at = $2
WHERE id = $1
`, id, at)
	if err != nil {
		return fmt.Errorf("mark item matched: %w", err)
	}
	return requireRow(result, "mark item matched", id)
}

func (r *ItemRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE items
SET status = $1, updated_at = $3
WHERE status = $2 AND expires_at IS NOT NULL AND expires_at <= $3
`, string(domain.StatusExpired), string(domain.StatusActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire items rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	var typ, category, status string
	var tagsRaw, metaRaw []byte

	err := row.Scan(
		&item.ID, &item.ReporterID, &typ, &category, &item.Title, &item.Description, &item.Location,
		&item.DateLostFound, &tagsRaw, &metaRaw, &status, &item.ExpiresAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}

	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &item.Tags); err != nil {
			return domain.Item{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(metaRaw) > 0 {
		var meta domain.AIMetadata
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return domain.Item{}, fmt.Errorf("unmarshal ai metadata: %w", err)
		}
		item.AIMetadata = &meta
	}
	item.Type = domain.ItemType(typ)
	item.Category = domain.Category(category)
	item.Status = domain.ItemStatus(status)
	return item, nil
}

func marshalMetadata(meta *domain.AIMetadata) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal ai metadata: %w", err)
	}
	return raw, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrItemNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
