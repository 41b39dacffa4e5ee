// Package deps installs project dependencies with a configured shell command.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"go.uber.org/zap"
)

// DefaultCommand installs Python requirements.
const DefaultCommand = "pip install -r requirements.txt"

// maxLoggedOutput caps the command output kept in logs.
const maxLoggedOutput = 4096

// ErrNoCommand indicates an empty install command.
var ErrNoCommand = errors.New("no install command configured")

// Installer runs the install command through sh -c.
type Installer struct {
	command string
	workDir string
	logger  *logging.Logger
}

// NewInstaller creates an Installer. An empty command selects DefaultCommand.
func NewInstaller(cfg config.DepsConfig, logger *logging.Logger) *Installer {
	if logger == nil {
		logger = logging.NewNop()
	}
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}
	return &Installer{command: command, workDir: cfg.WorkDir, logger: logger}
}

// Install runs the command and fails on a non-zero exit.
func (i *Installer) Install(ctx context.Context) error {
	if strings.TrimSpace(i.command) == "" {
		return ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", i.command)
	cmd.Dir = i.workDir
	out, err := cmd.CombinedOutput()

	i.logger.Debug(ctx, "dependency install finished",
		zap.String("command", i.command),
		zap.String("output", truncate(string(out), maxLoggedOutput)),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("running %q: %w", i.command, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
