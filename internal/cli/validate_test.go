package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/floorplan/internal/catalog"
)

func writeCatalog(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.cue"), []byte(src), 0o644))
	return dir
}

const validCatalog = `package plan

class: Wall: {
	kind: "wall"
	fields: {length: 1000, thickness: 100}
	tracked: ["length", "thickness"]
	depends_on: ["opening"]
	selectable: true
}

class: Door: {
	kind: "opening"
	fields: {width: 900}
	selectable: true
	constraints: [{name: "positive_width", rule: "positive", field: "width"}]
}

relationship: Corner: {
	model: "joint"
	defaults: {gap: 5}
}
`

func runValidateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidCatalog(t *testing.T) {
	out, err := runValidateCmd(t, "text", writeCatalog(t, validCatalog))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid (2 classes, 1 relationships)")
	assert.NotContains(t, out, "warning")
}

func TestValidateValidCatalogJSON(t *testing.T) {
	out, err := runValidateCmd(t, "json", writeCatalog(t, validCatalog))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Classes)
	assert.Equal(t, 1, resp.Data.Relationships)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := runValidateCmd(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := runValidateCmd(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoFiles)
}

func TestValidateRuleViolations(t *testing.T) {
	dir := writeCatalog(t, `package plan

class: Wall: {
	kind: "wall"
	fields: {length: 1000}
	tracked: ["length", "height"]
	depends_on: ["chimney"]
}
`)
	out, err := runValidateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, catalog.ErrUnknownDependency)
	assert.Contains(t, out, catalog.ErrUndeclaredTracked)
}

func TestValidateRuleViolationsJSON(t *testing.T) {
	dir := writeCatalog(t, `package plan

class: Wall: {
	kind: "tower"
	fields: {length: 1000}
}
`)
	out, err := runValidateCmd(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, catalog.ErrUnknownKind, resp.Error.Code)
}

func TestValidateFloatRejection(t *testing.T) {
	dir := writeCatalog(t, `package plan

class: Wall: {
	kind: "wall"
	fields: {thickness: 10.5}
}
`)
	out, err := runValidateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeCompile)
	assert.Contains(t, out, "floats are not allowed")
	assert.Contains(t, out, "plan.cue:")
}

func TestValidateCycleWarning(t *testing.T) {
	dir := writeCatalog(t, `package plan

class: Face: {
	kind: "face"
	depends_on: ["vertex"]
}

class: Vertex: {
	kind: "vertex"
	depends_on: ["face"]
}
`)
	out, err := runValidateCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid")
	assert.Contains(t, out, "warning: kind dependency cycle: face -> vertex -> face")
}

func TestValidateVerboseOutput(t *testing.T) {
	dir := writeCatalog(t, validCatalog)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json", Verbose: true})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Found 1 CUE file(s)")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp), "stdout must stay valid JSON")
}
