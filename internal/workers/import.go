package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/rootword-dev/rootword/internal/rootwords"
	"github.com/rootword-dev/rootword/internal/tasks"
)

// HandleImportRootWords imports a seed document as effective root words
func HandleImportRootWords(ctx context.Context, t *asynq.Task, svc *rootwords.Service, logger zerolog.Logger) error {
	payload, err := tasks.ParseImportPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}
	if payload.ImportedBy == "" {
		return fmt.Errorf("import task without importing user: %w", asynq.SkipRetry)
	}

	logger.Info().
		Int("words", len(payload.Words)).
		Str("imported_by", payload.ImportedBy).
		Msg("Importing root words")

	words := make([]rootwords.ImportWord, len(payload.Words))
	for i, w := range payload.Words {
		words[i] = rootwords.ImportWord{
			WordName:       w.WordName,
			MySQLType:      w.MySQLType,
			DorisType:      w.DorisType,
			ClickHouseType: w.ClickHouseType,
			Remark:         w.Remark,
		}
	}

	result, err := svc.Import(ctx, words, payload.ImportedBy)
	if err != nil {
		logger.Error().Err(err).Msg("Root word import failed")
		return fmt.Errorf("failed to import root words: %w", err)
	}

	if w := t.ResultWriter(); w != nil {
		if _, err := fmt.Fprintf(w, `{"created":%d,"skipped":%d}`, result.Created, result.Skipped); err != nil {
			logger.Warn().Err(err).Msg("Failed to write import result")
		}
	}

	logger.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("Root word import complete")

	return nil
}
