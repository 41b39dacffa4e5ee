// Package main implements the sovereign CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	configPath string
	nlMode     bool
	contextID  string

	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sovereign",
	Short: "Plan and run development commands through LLM-backed agents",
	Long: `sovereign decomposes a command into subtasks, dispatches each one to an
agent (LLM, git, dependency installer) and replans when a subtask fails with
a recognised error.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/sovereign/config.yaml)")

	runCmd.Flags().BoolVar(&nlMode, "nl", false, "treat the command as natural language")
	runCmd.Flags().StringVar(&contextID, "context-id", "default", "correlation id for this session")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Run a command and print its outputs as a JSON array",
	Long: `Run a command through the orchestrator and print the output of every
dispatched subtask as a JSON array.

Examples:
  # Natural-language request: runs parse_nl, git_init, add_initial_files,
  # commit and github_push
  sovereign run --nl create a repo for my CLI tool

  # Plain command decomposed by the planner
  sovereign run --context-id build-42 build feature x`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.cleanup()

	return execute(ctx, a.orch, cmd.OutOrStdout(), commandLine(args, nlMode), contextID)
}

// commandLine joins args and adds the NL marker when requested.
func commandLine(args []string, nl bool) string {
	command := strings.Join(args, " ")
	if nl && !orchestrator.IsNaturalLanguage(command) {
		command = orchestrator.NLMarker + " " + command
	}
	return command
}

// execute processes command and writes the encoded outputs to out. Partial
// output is still written when the session is interrupted.
func execute(ctx context.Context, orch *orchestrator.Orchestrator, out io.Writer, command, contextID string) error {
	encoded, procErr := orch.Process(ctx, command, contextID)
	if _, err := fmt.Fprintln(out, encoded); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if procErr != nil {
		return fmt.Errorf("session interrupted: %w", procErr)
	}
	return nil
}
