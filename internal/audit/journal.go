// Package audit records state-mutating timer actions in the journal.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/teamtimer/internal/models"
	"github.com/fentz26/teamtimer/internal/store"
)

// Outcomes written to the journal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Writer is the journal storage.
type Writer interface {
	WriteEntry(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.JournalEntry, error)
}

// Journal writes audit entries for timer actions.
type Journal struct {
	w Writer
}

// NewJournal creates a journal over the given store.
func NewJournal(w Writer) *Journal {
	return &Journal{w: w}
}

// Record writes an entry for action. The inputs are stored as a hash.
func (j *Journal) Record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) (*models.JournalEntry, error) {
	return j.w.WriteEntry(ctx, action, hashInputs(inputs), outcome, taskID, details)
}

// Outcome maps an action error to an outcome and details pair.
func Outcome(err error) (string, string) {
	if err != nil {
		return OutcomeFailure, err.Error()
	}
	return OutcomeSuccess, ""
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

var _ Writer = (*store.Store)(nil)
