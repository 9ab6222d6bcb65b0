package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
)

type MatchRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SaveMatches upserts the ranked list and drops links that fell out of it.
// Rows written by AppendMatch survive the pruning. Writers for the same item
// are serialized by a transaction-scoped advisory lock keyed on the item id.
// Existing notified flags are preserved.
func (r *MatchRepository) SaveMatches(ctx context.Context, itemID string, matches []domain.MatchResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save matches tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, itemID); err != nil {
		return fmt.Errorf("acquire item match lock: %w", err)
	}

	now := r.now()
	keep := make([]string, 0, len(matches))
	for _, m := range matches {
		reasons, err := json.Marshal(nonNilTags(m.Reasons))
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		detailed, err := json.Marshal(m.DetailedAnalysis)
		if err != nil {
			return fmt.Errorf("marshal detailed analysis: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO item_matches (item_id, matched_item_id, confidence, reasons, detailed_analysis, notified, created_at)
VALUES ($1,$2,$3,$4,$5,FALSE,$6)
ON CONFLICT (item_id, matched_item_id) DO UPDATE
SET confidence = EXCLUDED.confidence, reasons = EXCLUDED.reasons, detailed_analysis = EXCLUDED.detailed_analysis
`, itemID, m.ItemID, m.Confidence, reasons, detailed, now); err != nil {
			return fmt.Errorf("upsert match %s: %w", m.ItemID, err)
		}
		keep = append(keep, m.ItemID)
	}

	keepJSON, err := json.Marshal(keep)
	if err != nil {
		return fmt.Errorf("marshal kept ids: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM item_matches
WHERE item_id = $1 AND NOT linked_back
  AND matched_item_id NOT IN (SELECT jsonb_array_elements_text($2::jsonb))
`, itemID, keepJSON); err != nil {
		return fmt.Errorf("delete stale matches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save matches tx: %w", err)
	}
	return nil
}

// AppendMatch records a reverse link and reports whether the row is new. An
// existing forward row is flagged as linked back so later pruning keeps it.
func (r *MatchRepository) AppendMatch(ctx context.Context, match domain.StoredMatch) (bool, error) {
	reasons, err := json.Marshal(nonNilTags(match.Reasons))
	if err != nil {
		return false, fmt.Errorf("marshal reasons: %w", err)
	}
	createdAt := match.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	var inserted bool
	err = r.db.QueryRowContext(ctx, `
INSERT INTO item_matches (item_id, matched_item_id, confidence, reasons, notified, linked_back, created_at)
VALUES ($1,$2,$3,$4,$5,TRUE,$6)
ON CONFLICT (item_id, matched_item_id) DO UPDATE
SET linked_back = TRUE
RETURNING (xmax = 0)
`, match.ItemID, match.MatchedID, match.Confidence, reasons, match.Notified, createdAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("append match: %w", err)
	}
	return inserted, nil
}

func (r *MatchRepository) ListMatches(ctx context.Context, itemID string) ([]domain.StoredMatch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT item_id, matched_item_id, confidence, reasons, notified, created_at
FROM item_matches
WHERE item_id = $1
ORDER BY confidence DESC, created_at ASC
`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StoredMatch, 0)
	for rows.Next() {
		var m domain.StoredMatch
		var reasonsRaw []byte
		if err := rows.Scan(&m.ItemID, &m.MatchedID, &m.Confidence, &reasonsRaw, &m.Notified, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(reasonsRaw) > 0 {
			if err := json.Unmarshal(reasonsRaw, &m.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshal reasons: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

func (r *MatchRepository) MarkNotified(ctx context.Context, itemID, matchedID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE item_matches
SET notified = TRUE
WHERE item_id = $1 AND matched_item_id = $2
`, itemID, matchedID)
	if err != nil {
		return fmt.Errorf("mark match notified: %w", err)
	}
	return requireRow(result, "mark match notified", itemID+"/"+matchedID)
}
