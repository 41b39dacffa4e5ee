package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/memory"
	"github.com/fyrsmithlabs/sovereign/internal/orchestrator"
	"github.com/fyrsmithlabs/sovereign/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["serve"])
}

func TestRunCmd_Flags(t *testing.T) {
	nl := runCmd.Flags().Lookup("nl")
	require.NotNil(t, nl)
	assert.Equal(t, "false", nl.DefValue)

	ctxID := runCmd.Flags().Lookup("context-id")
	require.NotNil(t, ctxID)
	assert.Equal(t, "default", ctxID.DefValue)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "build feature x", commandLine([]string{"build", "feature", "x"}, false))
	assert.Equal(t, "--nl create repo", commandLine([]string{"create", "repo"}, true))
	assert.Equal(t, "--nl create repo", commandLine([]string{"--nl", "create", "repo"}, true))
	assert.Equal(t, "--nl create repo", commandLine([]string{"--nl create repo"}, false))
}

type stubLLM struct{}

func (stubLLM) Generate(_ context.Context, prompt string) (string, error) {
	return "ok " + prompt, nil
}

func TestExecute_PrintsJSONArray(t *testing.T) {
	orch := orchestrator.New(orchestrator.Providers{LLM: stubLLM{}})
	var out bytes.Buffer

	err := execute(context.Background(), orch, &out, "query llm hi", "default")

	require.NoError(t, err)
	assert.Equal(t, "[\"ok hi\"]\n", out.String())
}

func TestExecute_CanceledPrintsPartialOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	orch := orchestrator.New(orchestrator.Providers{})
	var out bytes.Buffer

	err := execute(ctx, orch, &out, "query llm hi", "default")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "[]\n", out.String())
}

func TestBuildApp_Defaults(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.Provider = "none"
	cfg.Git.WorkDir = t.TempDir()

	a, err := buildApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer a.cleanup()

	assert.NotNil(t, a.orch)
	assert.Empty(t, a.orch.ActiveGoals())
	assert.IsType(t, &memory.ScrubbedStore{}, a.store, "stored context is always scrubbed")
}

func TestBuildApp_InvalidLLM(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "unknown"

	_, err := buildApp(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestBuildApp_InvalidAllowlist(t *testing.T) {
	cfg := config.Default()
	cfg.Secrets.Allowlist = []string{"(unclosed"}

	_, err := buildApp(context.Background(), cfg, logging.NewNop())
	assert.ErrorIs(t, err, secrets.ErrInvalidRegex)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.Log.Level = "loud"
	_, err = newLogger(cfg)
	assert.Error(t, err)
}
