package activity

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// passthrough lets array arguments reach the mock the way pgx receives them.
type passthrough struct{}

func (passthrough) ConvertValue(v any) (driver.Value, error) { return v, nil }

func TestPGInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO user_activity").
		WithArgs("e1", "u1", ActionLogin, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Insert(context.Background(), Entry{ID: "e1", UserID: "u1", Action: ActionLogin, CreatedAt: created}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCountByAction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM user_activity").
		WithArgs([]string{ActionPremiumFileUpload, ActionFreeFileUpload}).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	repo := &PGRepo{DB: db}
	n, err := repo.CountByAction(context.Background(), UploadActions...)
	if err != nil {
		t.Fatalf("CountByAction: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGListByUserDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, user_id, action, created_at").
		WithArgs("u1", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "created_at"}).
			AddRow("e2", "u1", ActionLogout, created.Add(time.Minute)).
			AddRow("e1", "u1", ActionLogin, created))

	entries, err := (&PGRepo{DB: db}).ListByUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != ActionLogout {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
