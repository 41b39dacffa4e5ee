package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInstall_Success(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger()
	inst := NewInstaller(config.DepsConfig{Command: "echo installed > marker", WorkDir: dir}, logger.Logger)

	require.NoError(t, inst.Install(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "installed\n", string(data))
	logger.AssertLogged(t, zapcore.DebugLevel, "dependency install finished")
}

func TestInstall_NonZeroExit(t *testing.T) {
	inst := NewInstaller(config.DepsConfig{Command: "echo ImportError >&2; exit 3", WorkDir: t.TempDir()}, nil)

	err := inst.Install(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestInstall_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inst := NewInstaller(config.DepsConfig{Command: "sleep 5", WorkDir: t.TempDir()}, nil)

	assert.Error(t, inst.Install(ctx))
}

func TestInstall_BlankCommand(t *testing.T) {
	inst := NewInstaller(config.DepsConfig{Command: "   "}, nil)
	assert.ErrorIs(t, inst.Install(context.Background()), ErrNoCommand)
}

func TestNewInstaller_Default(t *testing.T) {
	inst := NewInstaller(config.DepsConfig{}, nil)
	assert.Equal(t, DefaultCommand, inst.command)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	long := strings.Repeat("x", 10)
	assert.Equal(t, "xxxxx...(truncated)", truncate(long, 5))
}
