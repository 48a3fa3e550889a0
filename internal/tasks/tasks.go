package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/rootword-dev/rootword/internal/seed"
)

// Task type constants
const (
	TypeImportRootWords = "root_word:import"
)

// ImportPayload carries a parsed seed document and the approving admin
type ImportPayload struct {
	Words        []seed.Word `json:"words"`
	ImportedBy   string      `json:"imported_by"`
	ImportedByID string      `json:"imported_by_id,omitempty"`
}

// NewImportRootWordsTask creates a task that imports seed words
func NewImportRootWordsTask(words []seed.Word, importedBy, importedByID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportPayload{
		Words:        words,
		ImportedBy:   importedBy,
		ImportedByID: importedByID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeImportRootWords, payload, asynq.MaxRetry(3)), nil
}

// ParseImportPayload parses an import task payload
func ParseImportPayload(task *asynq.Task) (ImportPayload, error) {
	var payload ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
