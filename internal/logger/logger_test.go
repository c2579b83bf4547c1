package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		Logger.Infow("before initialize", FieldTechnique, "benford")
	})
}

func TestInitializeModes(t *testing.T) {
	orig := Logger
	t.Cleanup(func() { Logger = orig; JSONOutput = false })

	require.NoError(t, Initialize(true, false))
	assert.True(t, JSONOutput)

	require.NoError(t, Initialize(false, true))
	assert.False(t, JSONOutput)
	assert.True(t, Logger.Desugar().Core().Enabled(-1), "verbose enables debug level")

	named := Named("dataset")
	assert.NotNil(t, named)
}
