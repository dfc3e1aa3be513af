package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&row{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()

	err := base.InTx(ctx, func(tx Base) error {
		if err := tx.DB(ctx).Create(&row{ID: "a", Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected InTx to surface the error")
	}

	var got row
	if err := base.DB(ctx).First(&got, "id = ?", "a").Error; !IsNotFound(err) {
		t.Fatalf("expected row to be rolled back, got %v", err)
	}

	if err := base.InTx(ctx, func(tx Base) error {
		return tx.DB(ctx).Create(&row{ID: "b", Name: "kept"}).Error
	}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := base.DB(ctx).First(&got, "id = ?", "b").Error; err != nil {
		t.Fatalf("expected committed row: %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped not found to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("unexpected match")
	}
}
