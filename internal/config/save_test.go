package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestSetValue_UpdatesExistingKeyAndKeepsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SetValue(path, "diff.context_lines", "5"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# splice configuration")
	require.Contains(t, string(data), "# Highlight changed words")

	parsed := readYAML(t, path)
	diff := parsed["diff"].(map[string]any)
	require.Equal(t, 5, diff["context_lines"])
	require.Equal(t, true, diff["word_diff"])
}

func TestSetValue_CreatesMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SetValue(path, "author.name", "Jane Doe"))
	require.NoError(t, SetValue(path, "author.email", "jane@example.com"))

	parsed := readYAML(t, path)
	author := parsed["author"].(map[string]any)
	require.Equal(t, "Jane Doe", author["name"])
	require.Equal(t, "jane@example.com", author["email"])
}

func TestSetValue_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.ErrorContains(t, SetValue(path, "diff", "3"), "is a section")
	require.ErrorContains(t, SetValue(path, "git.binary.path", "x"), "is not a section")
	require.ErrorContains(t, SetValue(path, "diff..x", "1"), "invalid key")
}
