package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ai_content_agents/config"
)

// Execute runs the command line and exits with status 1 on error.
func Execute() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		in:     bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
	}

	cmd := &cobra.Command{
		Use:           "agents",
		Short:         "Content generation agents backed by hosted language models",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.save = cmd.Flags().Changed("out")
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.teardown(ctx)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")
	flags.StringVar(&a.overrides.Provider, "provider", "", "LLM provider (openai, deepseek, gemini, anthropic, alchemyst, mock)")
	flags.StringVar(&a.overrides.Model, "model", "", "model name")
	flags.StringVar(&a.overrides.OutputDir, "out", "", "write the artifact to this directory")
	flags.BoolVar(&a.html, "html", false, "also write an HTML rendering")
	flags.StringVar(&a.docsKey, "docs", "", "store the artifact as documentation section owner/repo/section")
	flags.BoolVar(&a.remember, "remember", false, "add the artifact to the hosted context store")

	cmd.AddCommand(
		newTweetCmd(a),
		newPresentationCmd(a),
		newWebsiteCmd(a),
		newV0PromptCmd(a),
		newEvaluateCmd(a),
		newPortfolioCmd(a),
		newResearchCmd(a),
		newInsightsCmd(a),
		newNavigatorCmd(a),
		newDocsCmd(a),
		newServeCmd(a),
	)
	return cmd
}
