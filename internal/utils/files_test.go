package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	require.NoError(t, SafeWriteFile(path, []byte("{}")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestPrettyJSONAndYAML(t *testing.T) {
	v := map[string]any{"risk": "LOW", "steps": []int{1, 2}}

	j, err := PrettyJSON(v)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"risk\": \"LOW\",\n  \"steps\": [\n    1,\n    2\n  ]\n}", string(j))

	y, err := YAML(v)
	require.NoError(t, err)
	assert.Contains(t, string(y), "risk: LOW\n")
	assert.Contains(t, string(y), "- 2\n")

	_, err = PrettyJSON(func() {})
	assert.Error(t, err)
}
