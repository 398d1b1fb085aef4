// internal/store/store_test.go
package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/netauto/hivectl/internal/facts"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndQuery(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	records := []Record{
		{Host: "hive-01", CollectedAt: base, Subsets: []string{"default"},
			Facts: facts.FactSet{"version": "6.5r3", "model": "AP330"}},
		{Host: "hive-01", CollectedAt: base.Add(time.Hour), Subsets: []string{"default"},
			Facts: facts.FactSet{"version": "8.2r1", "model": "AP330"}},
		{Host: "hive-02", CollectedAt: base, Subsets: []string{"default", "hardware"},
			Facts: facts.FactSet{"version": "6.5r3", "memtotal_kb": 249344}},
	}
	for i := range records {
		if err := s.Insert(&records[i]); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := s.ByHost("hive-01", 10)
	if err != nil {
		t.Fatalf("ByHost error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ByHost returned %d records, want 2", len(got))
	}
	// newest first
	if got[0].Facts["version"] != "8.2r1" {
		t.Errorf("newest version = %v, want 8.2r1", got[0].Facts["version"])
	}
	if !got[0].CollectedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CollectedAt = %v", got[0].CollectedAt)
	}
}

func TestByHostLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := Record{
			Host:        "hive-01",
			CollectedAt: base.Add(time.Duration(i) * time.Minute),
			Facts:       facts.FactSet{"version": "6.5r3"},
		}
		if err := s.Insert(&rec); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := s.ByHost("hive-01", 3)
	if err != nil {
		t.Fatalf("ByHost error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ByHost returned %d records, want 3", len(got))
	}
}

func TestLatestPerHost(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	inserts := []Record{
		{Host: "hive-01", CollectedAt: base, Facts: facts.FactSet{"version": "old"}},
		{Host: "hive-01", CollectedAt: base.Add(time.Hour), Facts: facts.FactSet{"version": "new"}},
		{Host: "hive-02", CollectedAt: base, Facts: facts.FactSet{"version": "only"}},
	}
	for i := range inserts {
		if err := s.Insert(&inserts[i]); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Latest returned %d records, want 2", len(got))
	}
	if got[0].Host != "hive-01" || got[0].Facts["version"] != "new" {
		t.Errorf("Latest[0] = %s/%v, want hive-01/new", got[0].Host, got[0].Facts["version"])
	}
	if got[1].Host != "hive-02" {
		t.Errorf("Latest[1].Host = %s, want hive-02", got[1].Host)
	}
}

func TestFactsSurviveRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := Record{
		Host:        "hive-01",
		CollectedAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		Subsets:     []string{"default", "hardware"},
		Facts: facts.FactSet{
			"version":     "6.5r3",
			"memtotal_kb": 249344,
			"filesystems": []string{"/dev/mtdblock5", "tmpfs"},
		},
	}
	if err := s.Insert(&rec); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	got, err := s.ByHost("hive-01", 1)
	if err != nil {
		t.Fatalf("ByHost error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ByHost returned %d records, want 1", len(got))
	}

	if got[0].Facts["version"] != "6.5r3" {
		t.Errorf("version = %v", got[0].Facts["version"])
	}
	// numbers come back as float64 through the JSON column
	if got[0].Facts["memtotal_kb"] != float64(249344) {
		t.Errorf("memtotal_kb = %v (%T)", got[0].Facts["memtotal_kb"], got[0].Facts["memtotal_kb"])
	}
	if len(got[0].Subsets) != 2 || got[0].Subsets[0] != "default" {
		t.Errorf("Subsets = %v", got[0].Subsets)
	}
}
