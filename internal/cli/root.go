// Package cli wires the interrogate command: flag parsing, config
// resolution, and driver construction and execution.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kairos-labs/interrogate/internal/agent"
	"github.com/kairos-labs/interrogate/internal/config"
	"github.com/kairos-labs/interrogate/internal/dashboard"
	"github.com/kairos-labs/interrogate/internal/driver"
	"github.com/kairos-labs/interrogate/internal/git"
	"github.com/kairos-labs/interrogate/internal/logging"
	"github.com/kairos-labs/interrogate/internal/state"
)

var (
	flagResume  string
	flagConfig  string
	flagVerbose bool
	flagWatch   bool
)

var rootCmd = &cobra.Command{
	Use:   "interrogate <TICKET>",
	Short: "Run the Interrogation Protocol delivery pipeline",
	Long: `interrogate drives a ticket through the full Interrogation Protocol
pipeline: context scan, interrogation, documentation, implementation, holdout
validation, security audit, and ship -- gated by LLM-as-judge reviews and a
deterministic verdict router.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

func init() {
	rootCmd.Flags().StringVar(&flagResume, "resume", "", "Resume a prior run from its log directory")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to the pipeline config file")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output")
	rootCmd.Flags().BoolVar(&flagWatch, "watch", false, "Show a live progress dashboard while the pipeline runs")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitCode
	}
	fmt.Fprintln(os.Stderr, err)
	if exitCode != 0 {
		return exitCode
	}
	return int(driver.ExitFailure)
}

// exitCode carries the driver's result out of RunE, since cobra itself only
// distinguishes "error" from "no error".
var exitCode int

func runPipeline(cmd *cobra.Command, args []string) error {
	logging.Setup(flagVerbose, false, false)
	log := logging.New("driver")

	ticket := args[0]

	cfg, err := config.Resolve(flagConfig, config.OSEnv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logDir := flagResume
	var resumeAnchor string
	var resumedCost float64
	var resumedPhases []state.PhaseSummary
	if flagResume != "" {
		anchor, cost, phases, err := state.LoadCheckpoint(flagResume)
		if err != nil {
			return fmt.Errorf("resuming from %q: %w", flagResume, err)
		}
		resumeAnchor = anchor
		resumedCost = cost
		resumedPhases = phases
	} else {
		logDir = newLogDir(cfg.String("LOG_BASE_DIR", "logs"))
	}

	a := agent.NewClaudeAgent(agent.AgentConfig{Command: cfg.String("AGENT_COMMAND", "claude")}, log)
	if err := a.CheckPrerequisites(); err != nil {
		return fmt.Errorf("agent prerequisites: %w", err)
	}

	gitClient, err := git.NewGitClient(".")
	if err != nil {
		return fmt.Errorf("initializing git client: %w", err)
	}

	d := driver.New(cfg, a, gitClient, log, ticket, logDir, resumeAnchor, resumedCost, resumedPhases)
	if flagResume == "" && !flagWatch {
		d.TierPrompter = dashboard.PromptTier
	}

	var code driver.ExitCode
	if flagWatch {
		events := make(chan dashboard.PhaseEvent, 1)
		d.Events = events
		done := make(chan struct{})
		go func() {
			defer close(done)
			code = d.Run(context.Background(), ticket)
			close(events)
		}()
		if err := dashboard.Run(ticket, events); err != nil {
			log.Warn("dashboard exited", "err", err)
		}
		<-done
	} else {
		code = d.Run(context.Background(), ticket)
	}

	exitCode = int(code)
	if code != driver.ExitSuccess {
		return fmt.Errorf("pipeline exited with status %d", code)
	}
	return nil
}

func newLogDir(base string) string {
	return base + "/" + time.Now().Format("2006-01-02-1504")
}
