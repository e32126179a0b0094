package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

const selectUser = `
SELECT id, username, password_hash, email, is_premium, premium_expiry, registration_date, api_key, created_at, updated_at
FROM users
`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, username, password_hash, email, is_premium, premium_expiry, registration_date, api_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`
	registration := user.RegistrationDate
	if registration.IsZero() {
		registration = Today(time.Now())
	}
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		nullableString(normalizeEmail(user.Email)),
		user.IsPremium,
		nullableDate(user.PremiumExpiry),
		registration,
		user.APIKey,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, selectUser+"WHERE id = $1 LIMIT 1", userID)
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, selectUser+"WHERE username = $1 LIMIT 1", username)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, selectUser+"WHERE email = $1 LIMIT 1", normalizeEmail(email))
}

func (r *PGRepo) ResolvePremium(ctx context.Context, userID string, today time.Time) (bool, error) {
	const query = `
UPDATE users SET
  is_premium = is_premium AND (premium_expiry IS NULL OR premium_expiry >= $2),
  updated_at = CASE WHEN is_premium AND premium_expiry < $2 THEN now() ELSE updated_at END
WHERE id = $1
RETURNING is_premium`
	var isPremium bool
	err := r.DB.QueryRowContext(ctx, query, userID, Today(today)).Scan(&isPremium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return isPremium, nil
}

func (r *PGRepo) SetPremium(ctx context.Context, userID string, expiry time.Time) error {
	const query = `
UPDATE users SET is_premium = TRUE, premium_expiry = $2, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, userID, Today(expiry))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Counts(ctx context.Context) (Counts, error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_premium) FROM users`
	var out Counts
	if err := r.DB.QueryRowContext(ctx, query).Scan(&out.Users, &out.Premium); err != nil {
		return Counts{}, err
	}
	return out, nil
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (User, error) {
	var user User
	var email sql.NullString
	var expiry sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&user.IsPremium,
		&expiry,
		&user.RegistrationDate,
		&user.APIKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if email.Valid {
		user.Email = email.String
	}
	if expiry.Valid {
		day := Today(expiry.Time)
		user.PremiumExpiry = &day
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return Today(*value)
}
