package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// ErrInvalidItemID is returned when an item id cannot be used as a
// checkpoint filename.
var ErrInvalidItemID = errors.New("invalid item ID: contains path traversal or invalid characters")

// ItemCheckpoint records the outcome of one batch item so an interrupted
// run can resume without re-ingesting completed documents.
type ItemCheckpoint struct {
	ItemID    string `json:"item_id"`
	Completed bool   `json:"completed"`

	FactIDs   []string `json:"fact_ids,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`

	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// CheckpointManager persists per-item checkpoints as JSON files in one
// directory.
type CheckpointManager struct {
	checkpointDir string
}

// NewCheckpointManager creates a manager over checkpointDir, creating the
// directory if needed. An empty dir falls back to a path under os.TempDir.
func NewCheckpointManager(checkpointDir string) (*CheckpointManager, error) {
	if checkpointDir == "" {
		checkpointDir = filepath.Join(os.TempDir(), "chronicle-checkpoints")
	}
	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointManager{checkpointDir: checkpointDir}, nil
}

// validateItemID checks that the item id is safe for use in file paths. It
// rejects ids containing path separators, traversal sequences, or null
// bytes.
func validateItemID(itemID string) error {
	if itemID == "" {
		return ErrInvalidItemID
	}
	if strings.Contains(itemID, "..") {
		return ErrInvalidItemID
	}
	if strings.ContainsAny(itemID, `/\`) {
		return ErrInvalidItemID
	}
	if strings.ContainsRune(itemID, '\x00') {
		return ErrInvalidItemID
	}
	return nil
}

func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir) || cleanPath == filepath.Clean(directory)
}

// checkpointPath returns the file path for an item's checkpoint. The
// resolved path must stay inside the checkpoint directory.
func (m *CheckpointManager) checkpointPath(itemID string) (string, error) {
	if err := validateItemID(itemID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(m.checkpointDir, fmt.Sprintf("checkpoint_%s.json", itemID))
	if !isPathWithinDirectory(fullPath, m.checkpointDir) {
		return "", ErrInvalidItemID
	}
	return fullPath, nil
}

// Save persists the checkpoint to disk, writing through a temp file so a
// crash mid-write never leaves a truncated checkpoint.
func (m *CheckpointManager) Save(checkpoint *ItemCheckpoint) error {
	checkpoint.LastUpdatedAt = time.Now().UTC()
	if checkpoint.CreatedAt.IsZero() {
		checkpoint.CreatedAt = checkpoint.LastUpdatedAt
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path, err := m.checkpointPath(checkpoint.ItemID)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint; it returns nil, nil when none exists.
func (m *CheckpointManager) Load(itemID string) (*ItemCheckpoint, error) {
	path, err := m.checkpointPath(itemID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint ItemCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes an item's checkpoint. Deleting a missing checkpoint is not
// an error.
func (m *CheckpointManager) Delete(itemID string) error {
	path, err := m.checkpointPath(itemID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns every checkpoint in the directory.
func (m *CheckpointManager) List() ([]*ItemCheckpoint, error) {
	entries, err := os.ReadDir(m.checkpointDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*ItemCheckpoint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "checkpoint_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.checkpointDir, name))
		if err != nil {
			continue
		}
		var checkpoint ItemCheckpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			continue
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	return checkpoints, nil
}

// RunResumable is Run with checkpointing: items whose checkpoint is marked
// completed are answered from the checkpoint without re-running, and every
// item's outcome is checkpointed as it finishes.
func (r *Runner) RunResumable(ctx context.Context, items []Item, fn ItemFunc, mgr *CheckpointManager) []types.BatchItemResult {
	if mgr == nil {
		return r.Run(ctx, items, fn)
	}

	results := make([]types.BatchItemResult, len(items))
	pending := make([]Item, 0, len(items))
	pendingIndex := make(map[string]int, len(items))

	for i, item := range items {
		checkpoint, err := mgr.Load(item.ID)
		if err == nil && checkpoint != nil && checkpoint.Completed {
			results[i] = types.BatchItemResult{
				ItemID:    item.ID,
				FactIDs:   checkpoint.FactIDs,
				EntityIDs: checkpoint.EntityIDs,
			}
			continue
		}
		pending = append(pending, item)
		pendingIndex[item.ID] = i
	}

	checkpointed := func(ctx context.Context, item Item) ([]string, []string, error) {
		factIDs, entityIDs, err := fn(ctx, item)

		checkpoint, loadErr := mgr.Load(item.ID)
		if loadErr != nil || checkpoint == nil {
			checkpoint = &ItemCheckpoint{ItemID: item.ID}
		}
		checkpoint.AttemptCount++
		if err != nil {
			checkpoint.LastError = err.Error()
		} else {
			checkpoint.Completed = true
			checkpoint.LastError = ""
			checkpoint.FactIDs = factIDs
			checkpoint.EntityIDs = entityIDs
		}
		// A checkpoint write failure must not fail the item itself.
		_ = mgr.Save(checkpoint)

		return factIDs, entityIDs, err
	}

	for _, result := range r.Run(ctx, pending, checkpointed) {
		results[pendingIndex[result.ItemID]] = result
	}
	return results
}
