// Command agenthive is the CLI entry point: one-shot collaboration requests,
// the lightweight dispatch path and config bootstrapping.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agenthive"
	"github.com/hupe1980/agenthive/config"
	"github.com/hupe1980/agenthive/coordinator"
	"github.com/hupe1980/agenthive/logging"
)

var (
	headline = color.New(color.FgCyan, color.Bold).SprintFunc()
	success  = color.New(color.FgGreen).SprintFunc()
	failure  = color.New(color.FgRed).SprintFunc()
	dimmed   = color.New(color.FgHiBlack).SprintFunc()
)

type cliFlags struct {
	workingDir string
	configPath string
	mode       string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failure(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "agenthive [request]",
		Short: "Multi-agent collaboration for coding and content tasks",
		Long: `agenthive routes a request to one of three workflows: a quick direct
answer, sequential maintenance on an existing codebase, or a planned
parallel build with per-module agents.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollaborate(cmd.Context(), flags, strings.Join(args, " "))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.workingDir, "dir", "d", ".", "working directory for file and command tools")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.Path(), "config file location")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log workflow progress to stderr")
	rootCmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "force a workflow: simple or complex")

	rootCmd.AddCommand(newInitCmd(flags))
	rootCmd.AddCommand(newDispatchCmd(flags))

	return rootCmd
}

func newInitCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteSample(flags.configPath); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", success("Wrote"), flags.configPath)
			fmt.Println(dimmed("Fill in the API keys and model names, then run: agenthive \"your request\""))
			return nil
		},
	}
}

func newDispatchCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch [request]",
		Short: "Run the keyword-scored fan-out path instead of the full workflow",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hive, err := buildHive(flags)
			if err != nil {
				return err
			}

			result := hive.Dispatch(cmd.Context(), strings.Join(args, " "))
			if !result.Success {
				return fmt.Errorf("%s", result.Summary)
			}
			fmt.Println(result.Content)
			fmt.Println(dimmed(result.Summary))
			return nil
		},
	}
}

func runCollaborate(ctx context.Context, flags *cliFlags, request string) error {
	hive, err := buildHive(flags)
	if err != nil {
		return err
	}

	switch flags.mode {
	case "":
	case "simple":
		hive.SetForceMode(coordinator.ForceSimple)
	case "complex":
		hive.SetForceMode(coordinator.ForceComplex)
	default:
		return fmt.Errorf("unknown mode %q (want simple or complex)", flags.mode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(headline("agenthive"))
	fmt.Println(dimmed("request: " + request))

	out, err := hive.Collaborate(ctx, request)
	if err != nil {
		return err
	}

	fmt.Println(out)

	stats := hive.Stats()
	fmt.Println(dimmed(fmt.Sprintf("%d model calls, ~%d tokens", stats.TotalCalls, stats.TokensEstimate)))
	return nil
}

func buildHive(flags *cliFlags) (*agenthive.AgentHive, error) {
	var logger logging.Logger
	if flags.verbose {
		logger = logging.NewTextLogger(os.Stderr, slog.LevelDebug)
	}

	return agenthive.New(func(o *agenthive.Options) {
		o.ConfigPath = flags.configPath
		o.WorkingDir = flags.workingDir
		o.Logger = logger
	})
}
