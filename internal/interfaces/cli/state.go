package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
)

// assessmentState is the on-disk shape of a scoring session: the exported
// score records plus the applied-control ids, the same pairing a snapshot
// stores.
type assessmentState struct {
	Scores  []assessment.ScoreRecord `json:"scores"`
	Applied []string                 `json:"applied"`
}

// loadState reads the state file.  A missing file is an empty session, not
// an error.
func loadState(path string) (*assessmentState, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &assessmentState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	state := &assessmentState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("state file %s is corrupt: %w", path, err)
	}
	return state, nil
}

// saveState writes the state file atomically via a sibling temp file.
func saveState(path string, state *assessmentState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
