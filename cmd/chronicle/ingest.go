package chronicle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronicle-kb/chronicle/pkg/batch"
	"github.com/chronicle-kb/chronicle/pkg/config"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Extract facts from text and store them",
	Long: `Read one or more text files (or stdin when no file is given), extract
entities and facts from each, and store the results. Each file is one
document; its facts share the document's validity date and source id.`,
	RunE: runIngest,
}

var (
	ingestValidAt    string
	ingestSource     string
	ingestCheckpoint string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestValidAt, "valid-at", "", "Validity start for extracted facts (RFC 3339, default now)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source id recorded on extracted facts")
	ingestCmd.Flags().StringVar(&ingestCheckpoint, "checkpoint-dir", "", "Checkpoint directory; reruns skip documents already ingested")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	validAt := time.Now().UTC()
	if ingestValidAt != "" {
		validAt, err = time.Parse(time.RFC3339, ingestValidAt)
		if err != nil {
			return fmt.Errorf("invalid --valid-at: %w", err)
		}
	}

	kb, err := buildClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chronicle: %w", err)
	}
	defer kb.Close()

	var items []batch.Item
	if len(args) == 0 {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		items = append(items, batch.Item{
			ID:       "stdin",
			Text:     string(text),
			ValidAt:  validAt,
			SourceID: ingestSource,
		})
	} else {
		for i, path := range args {
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			sourceID := ingestSource
			if sourceID == "" {
				sourceID = filepath.Base(path)
			}
			items = append(items, batch.Item{
				// Item ids become checkpoint filenames, so they carry no
				// path separators.
				ID:       fmt.Sprintf("%03d-%s", i+1, filepath.Base(path)),
				Text:     string(text),
				ValidAt:  validAt,
				SourceID: sourceID,
			})
		}
	}

	var results []types.BatchItemResult
	if ingestCheckpoint != "" {
		checkpoints, err := batch.NewCheckpointManager(ingestCheckpoint)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint directory: %w", err)
		}
		results = kb.IngestBatchResumable(cmd.Context(), items, checkpoints)
	} else {
		results = kb.IngestBatch(cmd.Context(), items)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}
