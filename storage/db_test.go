package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestBackendsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		backend string
		path    string
	}{
		{BackendMemory, ""},
		{BackendBolt, filepath.Join(dir, "cache.db")},
		{BackendLevelDB, filepath.Join(dir, "leveldb")},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			db, err := Open(tc.backend, tc.path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer db.Close()

			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := db.Put([]byte("k"), []byte("v1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := db.Put([]byte("k"), []byte("v2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := db.Get([]byte("k"))
			if err != nil || string(got) != "v2" {
				t.Fatalf("get: %q %v", got, err)
			}
			if err := db.Delete([]byte("k")); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("cassandra", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
