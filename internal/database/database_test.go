package database

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bigredeye/notmanyjudges/internal/store"
	"github.com/bigredeye/notmanyjudges/internal/store/storetest"
)

func TestWrapError(t *testing.T) {
	if err := wrapError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if err := wrapError(gorm.ErrRecordNotFound); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	err := wrapError(unique)
	if !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate key must match store.ErrDuplicate")
	}

	other := &pgconn.PgError{Code: "40001"}
	if err := wrapError(other); IsDuplicateKey(err) {
		t.Fatalf("serialization failure is not a duplicate key")
	}
}

// TestContract needs a scratch database, e.g.
// NMJ_TEST_DSN="host=localhost user=postgres password=postgres dbname=nmj_test sslmode=disable".
func TestContract(t *testing.T) {
	dsn := os.Getenv("NMJ_TEST_DSN")
	if dsn == "" {
		t.Skip("NMJ_TEST_DSN is not set")
	}

	var (
		once sync.Once
		db   *DataBase
		err  error
	)
	storetest.Run(t, func(t *testing.T) store.Repository {
		once.Do(func() { db, err = OpenDataBase(zap.NewNop(), dsn) })
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		return db
	})
}
