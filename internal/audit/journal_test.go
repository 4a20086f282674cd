package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fentz26/teamtimer/internal/models"
	"github.com/fentz26/teamtimer/internal/store"
)

func TestRecordHashesInputs(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	defer s.Close()

	j := NewJournal(s)
	ctx := context.Background()
	params := models.TimerParams{TaskID: "task-1", Source: models.SourceTeams}

	first, err := j.Record(ctx, "timer.start", params, OutcomeSuccess, "task-1", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	second, err := j.Record(ctx, "timer.start", params, OutcomeSuccess, "task-1", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if first.InputsHash != second.InputsHash {
		t.Error("Expected identical inputs to hash identically")
	}
	if len(first.InputsHash) != 64 {
		t.Errorf("Expected hex sha256, got %q", first.InputsHash)
	}

	params.TaskID = "task-2"
	third, _ := j.Record(ctx, "timer.start", params, OutcomeSuccess, "task-2", "")
	if third.InputsHash == first.InputsHash {
		t.Error("Expected different inputs to hash differently")
	}

	entries, err := s.ListEntries(ctx, store.Filter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}
}

func TestUnhashableInputs(t *testing.T) {
	if got := hashInputs(make(chan int)); got != "hash_error" {
		t.Errorf("Expected hash_error, got %q", got)
	}
}

func TestOutcome(t *testing.T) {
	if outcome, details := Outcome(nil); outcome != OutcomeSuccess || details != "" {
		t.Errorf("Outcome(nil) = %q, %q", outcome, details)
	}
	if outcome, details := Outcome(errors.New("boom")); outcome != OutcomeFailure || details != "boom" {
		t.Errorf("Outcome(err) = %q, %q", outcome, details)
	}
}
