package database

import (
	"path/filepath"
	"testing"
)

// The sqlite branch names the driver "sqlite"; a Connect against a plain
// file DSN must find it registered and come up usable.
func TestConnectSQLiteFileDSN(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("query on fresh connection failed: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}
