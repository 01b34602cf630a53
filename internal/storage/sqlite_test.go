package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/lifematrix/internal/apperr"
	"github.com/starford/lifematrix/internal/checksum"
)

func testDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "lifematrix-test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_PutGet(t *testing.T) {
	db := testDB(t)
	if err := db.Put("profile", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put("profile", []byte("v2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := db.Get("profile")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("got %q, want v2", got)
	}
	var cs string
	if err := db.conn.QueryRow(`SELECT checksum FROM kv WHERE key = ?`, "profile").Scan(&cs); err != nil {
		t.Fatalf("select checksum: %v", err)
	}
	if cs != checksum.Sum([]byte("v2")) {
		t.Errorf("checksum = %q", cs)
	}
}

func TestSQLite_Missing(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
