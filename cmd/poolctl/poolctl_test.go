package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheck_ValidPartition(t *testing.T) {
	path := writeFile(t, "pool.yaml", `
date_ranges:
  - start_date: "2025-02-01"
    end_date: "2025-06-30"
    capacity: 10
  - start_date: "2025-07-01"
    capacity: 8
`)

	out, err := execute(t, "check", path)

	require.NoError(t, err)
	assert.Contains(t, out, "OK: 2 range(s)")
}

func TestCheck_ReportsOverlapsAndGaps(t *testing.T) {
	// GIVEN: a JSON list with one overlap and one gap
	path := writeFile(t, "pool.json", `[
		{"start_date": "2025-01-01", "end_date": "2025-01-31", "capacity": 1},
		{"start_date": "2025-01-15", "end_date": "2025-02-28", "capacity": 1},
		{"start_date": "2025-04-01", "capacity": 1}
	]`)

	// WHEN: checking it
	out, err := execute(t, "check", path)

	// THEN: both findings are printed and the command fails
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 problem(s)")
	assert.Contains(t, out, "overlaps with")
	assert.Contains(t, out, "Date gap found")
}

func TestCheck_InvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "no ranges", content: "date_ranges: []\n"},
		{name: "bad date", content: "- start_date: \"2025/01/01\"\n  capacity: 1\n"},
		{name: "missing capacity", content: "- start_date: \"2025-01-01\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "check", writeFile(t, "pool.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestClip(t *testing.T) {
	out, err := execute(t, "clip", "--rule-start", "2024-01-05", "--rule-end", "2024-01-10",
		"--start", "2024-01-01", "--end", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05 to 2024-01-10\n", out)

	out, err = execute(t, "clip", "--rule-start", "2024-03-01", "--start", "2024-01-01", "--end", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "empty\n", out)

	_, err = execute(t, "clip", "--rule-start", "2024-01-01", "--start", "2024-01-31", "--end", "2024-01-01")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "poolctl dev")
}
