package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu         sync.RWMutex
	users      map[string]User
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:      make(map[string]User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return ErrConflict
	}
	email := normalizeEmail(user.Email)
	if email != "" {
		if _, ok := r.byEmail[email]; ok {
			return ErrConflict
		}
	}
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.RegistrationDate.IsZero() {
		user.RegistrationDate = Today(now)
	}
	r.users[user.ID] = user
	r.byUsername[user.Username] = user.ID
	if email != "" {
		r.byEmail[email] = user.ID
	}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepo) ResolvePremium(ctx context.Context, userID string, today time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if premiumExpired(user, today) {
		user.IsPremium = false
		user.UpdatedAt = r.now().UTC()
		r.users[userID] = user
	}
	return user.IsPremium, nil
}

func (r *MemoryRepo) SetPremium(ctx context.Context, userID string, expiry time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	day := Today(expiry)
	user.IsPremium = true
	user.PremiumExpiry = &day
	user.UpdatedAt = r.now().UTC()
	r.users[userID] = user
	return nil
}

func (r *MemoryRepo) Counts(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := Counts{Users: len(r.users)}
	for _, u := range r.users {
		if u.IsPremium {
			out.Premium++
		}
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
