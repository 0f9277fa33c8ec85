package store

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// === Digest Tests ===

func TestDigestLengthPrefixing(t *testing.T) {
	// Distinct splits of the same bytes must key differently.
	if Digest([]byte("ab")) == Digest([]byte("a"), []byte("b")) {
		t.Error("split inputs should not collide")
	}
	if Digest([]byte("x")) != Digest([]byte("x")) {
		t.Error("digest must be deterministic")
	}
	if len(Digest()) != 64 {
		t.Errorf("digest length = %d, want 64 hex characters", len(Digest()))
	}
}

// === Cache Tests ===

func TestPutGetRoundtrip(t *testing.T) {
	s := openStore(t)
	digest := Digest([]byte("input"))
	if err := s.Put(digest, "demo", []byte(`{"jani-version":1}`)); err != nil {
		t.Fatal(err)
	}

	model, ok, err := s.Get(digest)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("stored entry should hit")
	}
	if string(model) != `{"jani-version":1}` {
		t.Errorf("model = %s", model)
	}

	if _, ok, err := s.Get(Digest([]byte("other"))); err != nil || ok {
		t.Errorf("miss = %v, %v; want clean miss", ok, err)
	}
}

func TestPutReplacesEntry(t *testing.T) {
	s := openStore(t)
	digest := Digest([]byte("input"))
	if err := s.Put(digest, "demo", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(digest, "demo", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	model, ok, err := s.Get(digest)
	if err != nil || !ok {
		t.Fatal(err)
	}
	if string(model) != "v2" {
		t.Errorf("model = %s, want the replacement", model)
	}
	entries, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestListReportsMetadata(t *testing.T) {
	s := openStore(t)
	if err := s.Put(Digest([]byte("a")), "alpha", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	entries, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "alpha" || e.Size != 5 {
		t.Errorf("entry = %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry should carry its creation time")
	}
}

func TestDeleteAndPrune(t *testing.T) {
	s := openStore(t)
	digests := []string{Digest([]byte("a")), Digest([]byte("b")), Digest([]byte("c"))}
	for i, d := range digests {
		if err := s.Put(d, "m", []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Delete(digests[0]); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(digests[0]); ok {
		t.Error("deleted entry should miss")
	}
	if err := s.Delete("no-such-digest"); err != nil {
		t.Errorf("deleting a missing digest should be quiet: %v", err)
	}

	removed, err := s.Prune(1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("pruned = %d, want 1", removed)
	}
	entries, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries after prune = %d, want 1", len(entries))
	}
}
