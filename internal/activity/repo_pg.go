package activity

import (
	"context"
	"database/sql"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Insert(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO user_activity (id, user_id, action, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Action, entry.CreatedAt)
	return err
}

func (r *PGRepo) CountByAction(ctx context.Context, actions ...string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_activity WHERE action = ANY($1)`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, actions).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, user_id, action, created_at
FROM user_activity
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
