package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsApplyOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	if err := Run(ctx, sqlDB, Dialect("sqlite"), "migrations", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	for _, table := range []string{"customers", "regions", "carts", "payment_sessions", "orders", "payments"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s after migrating", table)
		}
	}

	if err := Run(ctx, sqlDB, Dialect("sqlite"), "migrations", "reset"); err != nil {
		t.Fatalf("goose reset: %v", err)
	}
	if conn.Migrator().HasTable("orders") {
		t.Fatal("expected orders table to be dropped after reset")
	}
}

func TestOrdersMigrationGuardsPaymentStatus(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders_payments.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, sub := range []string{
		"cart_id        TEXT NOT NULL UNIQUE",
		"'captured'",
		"amount_refunded <= amount",
		"DROP TABLE IF EXISTS orders",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateAndValidateDir(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Refund Ledger!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refund_ledger.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate generated dir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestShippedMigrationsValidate(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestDialect(t *testing.T) {
	if Dialect("sqlite") != "sqlite3" || Dialect("postgres") != "postgres" || Dialect("") != "postgres" {
		t.Fatal("unexpected dialect mapping")
	}
}
