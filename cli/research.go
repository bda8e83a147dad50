package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"ai_content_agents/alchemyst"
	"ai_content_agents/analytics"
	"ai_content_agents/generator"
	"ai_content_agents/metrics"
	"ai_content_agents/research"
	"ai_content_agents/validate"
)

var exitWords = []string{"exit", "quit", "bye"}

func newResearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "research [company]",
		Short: "Write a company research report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.ask(argOr(args, ""), "company name")
			agent, err := a.newAgent()
			if err != nil {
				return err
			}
			client, err := a.alchemystClient(false)
			if err != nil {
				return err
			}

			var flow *research.CompanyResearch
			if client != nil {
				flow = research.NewCompanyResearch(agent, client, client, a.log, research.WithCompanyRecorder(metrics.Record()))
			} else {
				flow = research.NewCompanyResearch(agent, nil, nil, a.log, research.WithCompanyRecorder(metrics.Record()))
			}
			res, err := flow.Run(cmd.Context(), name, func(ev alchemyst.Event) {
				if ev.Type == alchemyst.EventStatus {
					fmt.Fprintln(a.stderr, ev.Text)
				}
			})
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), res)
		},
	}
}

func newInsightsCmd(a *app) *cobra.Command {
	var (
		question, column, method, correlate string
		threshold                           float64
		interactive                         bool
	)
	cmd := &cobra.Command{
		Use:   "insights <dataset.csv|dataset.json>",
		Short: "Summarize a dataset and ask the model for insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := analytics.Load(args[0])
			if err != nil {
				return err
			}
			material := ds.Summary()
			fmt.Fprintln(a.stdout, material)

			for _, p := range ds.StrongCorrelations(threshold) {
				fmt.Fprintf(a.stdout, "Strong correlation: %s ~ %s (r=%.2f)\n", p.A, p.B, p.R)
			}
			if column != "" {
				detail, err := ds.ColumnDetail(column, method)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, detail)
				material += "\n" + detail
				question = lo.CoalesceOrEmpty(question, "Explain the patterns in column "+column+".")
			}
			if correlate != "" {
				line, err := correlationLine(ds, correlate)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, line)
				material += "\n" + line + "\n"
				question = lo.CoalesceOrEmpty(question, "Interpret this correlation: "+line)
			}
			fmt.Fprintln(a.stdout)

			in := generator.UserInput{Kind: generator.KindDataInsights, Topic: question, Material: material}
			if interactive {
				return runDatasetQuestions(cmd, a, in)
			}
			_, err = runInput(cmd, a, in)
			return err
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to focus the insights on")
	cmd.Flags().Float64Var(&threshold, "threshold", analytics.StrongCorrelation, "absolute correlation reported as strong")
	cmd.Flags().StringVarP(&column, "column", "c", "", "profile one column in depth")
	cmd.Flags().StringVar(&method, "outliers", "iqr", "outlier method for --column: iqr or zscore")
	cmd.Flags().StringVar(&correlate, "correlate", "", "two numeric columns to correlate, as a,b")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask questions about the dataset in a loop")
	return cmd
}

func correlationLine(ds *analytics.Dataset, pair string) (string, error) {
	cols := lo.Map(strings.Split(pair, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	if len(cols) != 2 || lo.Contains(cols, "") {
		return "", fmt.Errorf("--correlate wants two columns as a,b, got %q", pair)
	}
	r, err := ds.Correlation(cols[0], cols[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Correlation %s ~ %s: r=%.3f", cols[0], cols[1], r), nil
}

// runDatasetQuestions answers questions about one dataset until the user
// quits or input ends. A rejected question is reported and the loop goes on.
func runDatasetQuestions(cmd *cobra.Command, a *app, in generator.UserInput) error {
	for {
		fmt.Fprint(a.stdout, "\nAsk about the dataset (exit to quit): ")
		line, readErr := a.in.ReadString('\n')
		question := strings.TrimSpace(line)
		if lo.Contains(exitWords, strings.ToLower(question)) {
			fmt.Fprintln(a.stdout, "Goodbye!")
			return nil
		}
		if question != "" {
			in.Topic = question
			if _, err := runInput(cmd, a, in); err != nil {
				var errs validate.Errors
				if !errors.As(err, &errs) {
					return err
				}
				fmt.Fprintln(a.stderr, errs)
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

func newNavigatorCmd(a *app) *cobra.Command {
	var dir string
	var skipIngest, reset bool
	cmd := &cobra.Command{
		Use:   "navigator",
		Short: "Ingest a codebase into hosted context and answer questions about it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.newAgent()
			if err != nil {
				return err
			}
			client, err := a.alchemystClient(true)
			if err != nil {
				return err
			}
			nav := research.NewNavigator(agent, client,
				research.WithNavigatorLogger(a.log),
				research.WithNavigatorRecorder(metrics.Record()),
				research.WithMemory(client, "navigator-"+uuid.NewString()),
			)
			if reset {
				if err := nav.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.stderr, "Previously ingested files removed")
			}
			return runNavigator(cmd, a, nav, dir, skipIngest)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "codebase root")
	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "ask questions without ingesting first")
	cmd.Flags().BoolVar(&reset, "reset", false, "remove previously ingested files first")
	return cmd
}

func runNavigator(cmd *cobra.Command, a *app, nav *research.Navigator, dir string, skipIngest bool) error {
	ctx := cmd.Context()
	if !skipIngest {
		fmt.Fprintf(a.stderr, "Ingesting %s ...\n", dir)
		stored, found, err := nav.IngestDir(ctx, dir)
		if err != nil {
			a.log.WithError(err).Warn("ingest incomplete")
		}
		fmt.Fprintf(a.stderr, "Stored %d of %d files\n", stored, found)
	}

	for {
		fmt.Fprint(a.stdout, "\nAsk a question (exit to quit): ")
		line, err := a.in.ReadString('\n')
		question := strings.TrimSpace(line)
		if question != "" && lo.Contains(exitWords, strings.ToLower(question)) {
			fmt.Fprintln(a.stdout, "Goodbye!")
			return nil
		}
		if question != "" {
			res, askErr := nav.Ask(ctx, question)
			if askErr != nil {
				fmt.Fprintln(a.stderr, askErr)
			} else {
				if w := res.Warning(); w != "" {
					fmt.Fprintln(a.stderr, "Warning: "+w)
				}
				fmt.Fprintln(a.stdout, res.Artifact.Text())
			}
		}
		if err != nil {
			return nil
		}
	}
}
