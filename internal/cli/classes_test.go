package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassesBuiltin(t *testing.T) {
	out, _, err := executeRoot(t, "classes")
	require.NoError(t, err)
	assert.Contains(t, out, "CLASS")
	assert.Contains(t, out, "Wall")
	assert.Contains(t, out, "min_thickness,max_thickness,positive_height")
	assert.Contains(t, out, "WallJoint")
	assert.Contains(t, out, `{"gap":10}`)
}

func TestClassesCustomJSON(t *testing.T) {
	out, _, err := executeRoot(t, "--format", "json", "classes", writeCatalog(t, validCatalog))
	require.NoError(t, err)

	var resp struct {
		Data ClassesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Classes, 2)
	assert.Equal(t, "Wall", resp.Data.Classes[0].Name)
	assert.Equal(t, "Door", resp.Data.Classes[1].Name)
	require.Len(t, resp.Data.Relationships, 1)
	assert.Equal(t, "joint", resp.Data.Relationships[0].Model)
}

func TestClassesMissingDir(t *testing.T) {
	_, _, err := executeRoot(t, "classes", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
