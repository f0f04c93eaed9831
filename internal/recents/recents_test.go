package recents

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTouch_CreatesAndIncrementsVisitCount(t *testing.T) {
	s := openTestStore(t)

	if err := s.Touch("prod-db-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.Touch("prod-db-1"); err != nil {
		t.Fatalf("touch again: %v", err)
	}

	var visits int
	if err := s.db.QueryRow("SELECT visit_count FROM recents WHERE host_name = ?", "prod-db-1").Scan(&visits); err != nil {
		t.Fatalf("query: %v", err)
	}
	if visits != 2 {
		t.Fatalf("visit_count = %d, want 2", visits)
	}
}

func TestBoosts_MostRecentScoresHighest(t *testing.T) {
	s := openTestStore(t)

	s.Touch("older-host")
	s.Touch("newer-host")

	boosts := s.Boosts()
	if len(boosts) != 2 {
		t.Fatalf("got %d boosts, want 2", len(boosts))
	}
	if boosts["newer-host"] <= boosts["older-host"] {
		t.Fatalf("expected newer-host to outscore older-host, got %v", boosts)
	}
}

func TestBoosts_NilStoreIsNoop(t *testing.T) {
	var s *Store
	if got := s.Boosts(); got != nil {
		t.Fatalf("expected nil boosts from nil store, got %v", got)
	}
	if err := s.Touch("anything"); err != nil {
		t.Fatalf("expected nil-store touch to be a no-op, got %v", err)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAllTablesExist(t *testing.T) {
	s := openTestStore(t)
	tables := []string{"recents", "schema_migrations"}
	for _, name := range tables {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count); err != nil {
			t.Fatalf("check table %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", name)
		}
	}
}
