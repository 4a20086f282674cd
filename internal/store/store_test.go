package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := New(dbPath)
	if err != nil {
		t.Fatalf("first New failed: %v", err)
	}
	if _, err := s1.WriteEntry(context.Background(), "timer.start", "h", "success", "", ""); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	s1.Close()

	s2, err := New(dbPath)
	if err != nil {
		t.Fatalf("second New failed: %v", err)
	}
	defer s2.Close()

	entries, err := s2.ListEntries(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected entry to survive reopen, got %d", len(entries))
	}
}

func TestWriteAndListEntries(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	entry, err := s.WriteEntry(ctx, "timer.start", "abc123", "success", "task-1", "")
	if err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	if entry.ID == "" {
		t.Error("Entry ID should not be empty")
	}
	if _, err := s.WriteEntry(ctx, "timer.stop", "def456", "failure", "task-1", "network down"); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	if _, err := s.WriteEntry(ctx, "team.switch", "789", "success", "", "team-b"); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}

	all, err := s.ListEntries(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	if all[0].Action != "team.switch" {
		t.Errorf("Expected newest first, got %s", all[0].Action)
	}

	stops, err := s.ListEntries(ctx, Filter{Action: "timer.stop"})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(stops) != 1 || stops[0].Details != "network down" || stops[0].Outcome != "failure" {
		t.Errorf("unexpected filtered entries %+v", stops)
	}

	byTask, err := s.ListEntries(ctx, Filter{TaskID: "task-1", Limit: 1})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(byTask) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(byTask))
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.WriteEntry(ctx, "timer.toggle", fmt.Sprint(i), "success", "", ""); err != nil {
			t.Fatalf("WriteEntry failed: %v", err)
		}
	}

	n, err := s.Prune(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 pruned entries, got %d", n)
	}

	entries, _ := s.ListEntries(ctx, Filter{})
	if len(entries) != 0 {
		t.Errorf("Expected empty journal, got %d", len(entries))
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.WriteEntry(ctx, "timer.start", fmt.Sprint(i), "success", "", ""); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write failed: %v", err)
	}

	entries, err := s.ListEntries(ctx, Filter{Limit: 100})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("Expected 20 entries, got %d", len(entries))
	}
}
