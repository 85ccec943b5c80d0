package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/payload"
)

const manifestYAML = `
tasks:
  - name: seed
    op: const
    values: {a: 1, b: 2}
  - name: add
    op: sum
    inputs: [a, b]
    output: c
  - name: shout
    op: uppercase
    inputs: [label]
    output: shouted
    cache: false
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndBuild(t *testing.T) {
	path := writeManifest(t, manifestYAML)

	m, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, m.Tasks, 3)

	tasks, err := config.Build(m)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	seed := tasks[0]
	frag, err := seed.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, payload.Fragment{"a": 1, "b": 2}, frag)

	shout := tasks[2]
	assert.False(t, shout.CacheEnabled())
}

func TestBuildUnknownOp(t *testing.T) {
	m := &config.Manifest{Tasks: []config.ManifestTask{{Name: "x", Op: "does-not-exist"}}}
	_, err := config.Build(m)
	assert.Error(t, err)
}

func TestSumRequiresOutput(t *testing.T) {
	m := &config.Manifest{Tasks: []config.ManifestTask{{Name: "x", Op: "sum", Inputs: []string{"a"}}}}
	_, err := config.Build(m)
	assert.Error(t, err)
}

func TestNamesIsSorted(t *testing.T) {
	names := config.Names()
	assert.Equal(t, []string{"concat", "const", "sleep", "sum", "uppercase"}, names)
}
