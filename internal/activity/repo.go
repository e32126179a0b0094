package activity

import "context"

type Repo interface {
	Insert(ctx context.Context, entry Entry) error
	CountByAction(ctx context.Context, actions ...string) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}
