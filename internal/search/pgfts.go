package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks published drafts with plainto_tsquery over the name, title
// and author list.
func (p *PgFTS) Search(q Query) ([]DraftRecord, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `to_tsvector('english', name || ' ' || title || ' ' || authors::text) @@ plainto_tsquery('english', $1)`
	args := []any{q.Text}
	if q.Group != "" {
		where += " AND group_acronym = $2"
		args = append(args, q.Group)
	}

	countQuery := "SELECT COUNT(*) FROM published_drafts WHERE " + where
	var total int
	if err := p.db.QueryRowContext(context.Background(), countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count drafts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT name, title, authors, group_acronym, status
		FROM published_drafts
		WHERE %s
		ORDER BY ts_rank(to_tsvector('english', name || ' ' || title || ' ' || authors::text), plainto_tsquery('english', $1)) DESC, name ASC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := p.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search drafts: %w", err)
	}
	defer rows.Close()

	var results []DraftRecord
	for rows.Next() {
		var record DraftRecord
		var authors []byte
		if err := rows.Scan(&record.Name, &record.Title, &authors, &record.Group, &record.Status); err != nil {
			return nil, 0, fmt.Errorf("scan draft: %w", err)
		}
		if len(authors) > 0 {
			_ = json.Unmarshal(authors, &record.Authors)
		}
		results = append(results, record)
	}
	return results, total, rows.Err()
}
