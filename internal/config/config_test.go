package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, 36, c.ExpectedStates)
	assert.Equal(t, 2*time.Minute, c.LoadTimeout)
	assert.Equal(t, "markdown", c.OutputFormat)
	assert.Equal(t, []string{"02-01-2006", "2006-01-02", "02/01/2006"}, c.DateLayouts)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.DataDir = "/srv/uidai"
	c.Folders = map[string]string{"biometric": "bio"}
	c.LoadTimeout = 45 * time.Second
	c.Thresholds = map[string]analysis.Band{"outlier_rate": {High: 8, Medium: 3}}
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	opts, err := got.RepositoryOptions()
	require.NoError(t, err)
	assert.Equal(t, "/srv/uidai", opts.Dir)
	assert.Equal(t, "bio", opts.Folders[dataset.Biometric])
	assert.Equal(t, 45*time.Second, opts.LoadTimeout)

	cal, err := got.Calibration()
	require.NoError(t, err)
	assert.Equal(t, analysis.Band{High: 8, Medium: 3}, cal.OutlierRate)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad format":     "output_format: pdf\n",
		"unknown folder": "folders:\n  passports: p\n",
		"bad band":       "thresholds:\n  outlier_rate:\n    high: 1\n    medium: 5\n",
		"unknown band":   "thresholds:\n  vibes:\n    high: 1\n    medium: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, analysis.ErrInvalidParameter), "%v", err)
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\n"), 0o644))
	t.Setenv("ENROLYTICS_DATA_DIR", "/from/env")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", c.DataDir)
}

func TestSet(t *testing.T) {
	c := Default()
	require.NoError(t, c.Set("data_dir", "/tmp/x"))
	require.NoError(t, c.Set("expected_states", "28"))
	require.NoError(t, c.Set("load_timeout", "30s"))
	require.NoError(t, c.Set("log_json", "true"))
	require.NoError(t, c.Set("output_format", "JSON"))
	require.NoError(t, c.Set("date_layouts", "2006-01-02, 02-01-2006"))
	require.NoError(t, c.Set("folders.enrolment", "enrol"))
	require.NoError(t, c.Set("thresholds.outlier_rate.high", "9"))

	assert.Equal(t, "/tmp/x", c.DataDir)
	assert.Equal(t, 28, c.ExpectedStates)
	assert.Equal(t, 30*time.Second, c.LoadTimeout)
	assert.True(t, c.LogJSON)
	assert.Equal(t, "json", c.OutputFormat)
	assert.Equal(t, []string{"2006-01-02", "02-01-2006"}, c.DateLayouts)
	assert.Equal(t, "enrol", c.Folders["enrolment"])
	assert.Equal(t, analysis.Band{High: 9, Medium: 2}, c.Thresholds["outlier_rate"])
}

func TestSetRejectsAndLeavesConfigUnchanged(t *testing.T) {
	c := Default()
	before := *c
	for _, kv := range [][2]string{
		{"nope", "1"},
		{"expected_states", "zero"},
		{"expected_states", "0"},
		{"load_timeout", "soon"},
		{"output_format", "pdf"},
		{"folders.passports", "p"},
		{"thresholds.outlier_rate.low", "1"},
		{"thresholds.outlier_rate.high", "1"},
		{"thresholds.vibes.high", "1"},
	} {
		err := c.Set(kv[0], kv[1])
		require.Error(t, err, "%s=%s", kv[0], kv[1])
		assert.True(t, errors.Is(err, analysis.ErrInvalidParameter), "%s: %v", kv[0], err)
	}
	assert.Equal(t, before, *c)
}
