package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func stateArg(t *testing.T) (string, string) {
	t.Helper()
	return "--state", filepath.Join(t.TempDir(), "spacerisk.json")
}

func writeControlsCSV(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controls.csv")
	content := "Control;Cluster;Control title;Criteria;Threats addressed;Segment;Control description;Reference frameworks;Lifecycle phase\n" +
		"SR-001;Comms;Uplink signal authentication;Detection, Mitigation;Jamming;Space;Authenticate uplink commands;NIST 800-53;Operations\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SPACERISK_CATALOG_CONTROLS_CSV_PATH", path)
}

func TestRootCommand_Version(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "spacerisk")
}

func TestAssessSetAndStatus_PersistAcrossInvocations(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "assess", "set",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", "--score", "4",
		flag, path)
	require.NoError(t, err)

	out, err := runCLI(t, "assess", "status", "-o", "json", flag, path)
	require.NoError(t, err)

	var status struct {
		Scores  int      `json:"scores"`
		Threats []string `json:"threats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.Scores)
	assert.Equal(t, []string{"Jamming"}, status.Threats)
}

func TestAssessSet_RejectsInvalidScore(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "assess", "set",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", "--score", "9",
		flag, path)
	require.Error(t, err)

	// the rejected write left no state behind
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAssessRemove(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "assess", "set",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", "--score", "4",
		flag, path)
	require.NoError(t, err)

	out, err := runCLI(t, "assess", "remove",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "score removed")

	out, err = runCLI(t, "assess", "remove",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "no score recorded")
}

func TestAssessAggregate(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "assess", "set",
		"--threat", "Jamming", "--asset", "7", "--criterion", "5", "--score", "5",
		flag, path)
	require.NoError(t, err)

	out, err := runCLI(t, "assess", "aggregate",
		"--threat", "Jamming", "--asset", "7", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "likelihood: (no scores)")
	assert.Contains(t, out, "Very High")
}

func TestControlApplyListRemove(t *testing.T) {
	writeControlsCSV(t)
	flag, path := stateArg(t)

	_, err := runCLI(t, "assess", "set",
		"--threat", "Jamming", "--asset", "7", "--criterion", "2", "--score", "4",
		flag, path)
	require.NoError(t, err)

	out, err := runCLI(t, "control", "apply", "SR-001", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "applied SR-001")
	assert.Contains(t, out, "1 scores shifted")

	out, err = runCLI(t, "control", "list", "--applied", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "SR-001")
	assert.Contains(t, out, "yes")

	// the shifted score survived the round trip through the state file
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var state assessmentState
	require.NoError(t, json.Unmarshal(raw, &state))
	require.Len(t, state.Scores, 1)
	assert.Equal(t, 3, state.Scores[0].Score)
	assert.Equal(t, []string{"SR-001"}, state.Applied)

	out, err = runCLI(t, "control", "remove", "SR-001", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "removed SR-001")
}

func TestControlApply_DuplicateFails(t *testing.T) {
	writeControlsCSV(t)
	flag, path := stateArg(t)

	_, err := runCLI(t, "control", "apply", "SR-001", flag, path)
	require.NoError(t, err)

	_, err = runCLI(t, "control", "apply", "SR-001", flag, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already applied")
}

func TestControlApply_UnknownControl(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "control", "apply", "GHOST", flag, path)
	require.Error(t, err)
}

func TestRollupSummary_Table(t *testing.T) {
	flag, path := stateArg(t)

	for _, args := range [][]string{
		{"assess", "set", "--threat", "Jamming", "--asset", "2", "--criterion", "0", "--score", "3", flag, path},
		{"assess", "set", "--threat", "Jamming", "--asset", "2", "--criterion", "5", "--score", "3", flag, path},
		{"assess", "set", "--asset", "2", "--criterion", "0", "--score", "3", flag, path},
		{"assess", "set", "--asset", "2", "--criterion", "4", "--score", "3", flag, path},
	} {
		_, err := runCLI(t, args...)
		require.NoError(t, err)
	}

	out, err := runCLI(t, "rollup", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, "THREAT")
	assert.Contains(t, out, "Jamming")
	assert.Contains(t, out, "Telemetry processing")

	out, err = runCLI(t, "rollup", "Jamming", "-o", "json", flag, path)
	require.NoError(t, err)
	assert.Contains(t, out, `"threat": "Jamming"`)
}

func TestRollup_UnknownThreat(t *testing.T) {
	flag, path := stateArg(t)

	_, err := runCLI(t, "rollup", "Solar Flare", flag, path)
	require.Error(t, err)
}

func TestState_CorruptFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacerisk.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := runCLI(t, "assess", "status", "--state", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestState_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	want := &assessmentState{
		Scores: []assessment.ScoreRecord{
			{Threat: "Jamming", Asset: 7, Criterion: 2, Score: 4},
		},
		Applied: []string{"SR-001"},
	}
	require.NoError(t, saveState(path, want))

	got, err := loadState(path)
	require.NoError(t, err)
	assert.Equal(t, want.Scores, got.Scores)
	assert.Equal(t, want.Applied, got.Applied)
}

func TestState_MissingFileIsEmptySession(t *testing.T) {
	state, err := loadState(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, state.Scores)
	assert.Empty(t, state.Applied)
}
