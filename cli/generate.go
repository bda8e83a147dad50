package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ai_content_agents/generator"
	"ai_content_agents/validate"
	"ai_content_agents/website"
)

// runInput generates one artifact from in and prints it.
func runInput(cmd *cobra.Command, a *app, in generator.UserInput) (generator.Result, error) {
	agent, err := a.newAgent()
	if err != nil {
		return generator.Result{}, err
	}
	res, err := agent.Generate(cmd.Context(), in)
	if err != nil {
		return res, err
	}
	return res, a.emit(cmd.Context(), res)
}

func newTweetCmd(a *app) *cobra.Command {
	var in generator.UserInput
	cmd := &cobra.Command{
		Use:   "tweet [topic]",
		Short: "Write a short series of tweets about a topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind = generator.KindTweet
			in.Topic = a.ask(argOr(args, in.Topic), "topic")
			_, err := runInput(cmd, a, in)
			return err
		},
	}
	cmd.Flags().StringVar(&in.Topic, "topic", "", "tweet topic")
	cmd.Flags().StringVar(&in.Tone, "tone", "", "tone of voice")
	cmd.Flags().StringVar(&in.Style, "style", "", "writing style")
	cmd.Flags().IntVar(&in.Count, "count", 0, "number of tweets")
	return cmd
}

func newPresentationCmd(a *app) *cobra.Command {
	var in generator.UserInput
	cmd := &cobra.Command{
		Use:   "presentation [topic]",
		Short: "Outline a slide deck",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind = generator.KindPresentation
			in.Topic = a.ask(argOr(args, in.Topic), "presentation topic")
			_, err := runInput(cmd, a, in)
			return err
		},
	}
	cmd.Flags().StringVar(&in.Topic, "topic", "", "presentation topic")
	cmd.Flags().StringVar(&in.Audience, "audience", "", "target audience")
	cmd.Flags().StringVar(&in.Tone, "tone", "", "tone of voice")
	cmd.Flags().IntVar(&in.Count, "slides", 0, "number of slides")
	return cmd
}

func newWebsiteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "website [url]",
		Short: "Audit a web page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := generator.UserInput{Kind: generator.KindWebsiteAudit}
			in.URL = a.ask(argOr(args, ""), "website URL")
			if errs := validate.ValidateURL(in.URL); len(errs) > 0 {
				return errs
			}

			fmt.Fprintln(a.stderr, "Analyzing "+in.URL+" ...")
			report, err := website.New(nil).Analyze(cmd.Context(), in.URL)
			if err != nil {
				a.log.WithError(err).Warn("page analysis failed, auditing from the URL only")
				in.Material = "The page could not be fetched: " + err.Error()
			} else {
				in.Material = report.Material()
			}
			_, err = runInput(cmd, a, in)
			return err
		},
	}
	return cmd
}

func newV0PromptCmd(a *app) *cobra.Command {
	var in generator.UserInput
	cmd := &cobra.Command{
		Use:   "v0-prompt",
		Short: "Write a website-builder prompt from a short business description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind = generator.KindV0Prompt
			in.WebsiteName = a.ask(in.WebsiteName, "website name")
			in.Industry = a.ask(in.Industry, fmt.Sprintf("industry (%s)", strings.Join(validate.NewValidator(a.cfg.Industries).Industries, ", ")))
			in.AboutInfo = a.ask(in.AboutInfo, "description of the business")
			_, err := runInput(cmd, a, in)
			return err
		},
	}
	cmd.Flags().StringVar(&in.WebsiteName, "name", "", "website name")
	cmd.Flags().StringVar(&in.Industry, "industry", "", "industry")
	cmd.Flags().StringVar(&in.AboutInfo, "about", "", "what the business does")
	cmd.Flags().StringVar(&in.Style, "style", "", "visual style")
	return cmd
}

func newEvaluateCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "evaluate [prompt]",
		Short: "Score a prompt and suggest an improved version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := generator.UserInput{Kind: generator.KindPromptEvaluation, Prompt: argOr(args, "")}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				in.Prompt = string(data)
			}
			in.Prompt = a.ask(in.Prompt, "prompt to evaluate")

			res, err := runInput(cmd, a, in)
			if err != nil {
				return err
			}
			var ev generator.Evaluation
			if json.Unmarshal(res.Artifact.Data, &ev) == nil {
				if diff := ev.Diff(in.Prompt); diff != "" {
					fmt.Fprintln(a.stdout, "\nSuggested changes:\n"+diff)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the prompt from a file")
	return cmd
}

func newPortfolioCmd(a *app) *cobra.Command {
	var in generator.UserInput
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Generate a JSON portfolio from a short profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind = generator.KindPortfolio
			in.Name = a.ask(in.Name, "name")
			in.Role = a.ask(in.Role, "role")
			in.Skills = a.askList(in.Skills, "skills")
			in.Projects = a.askList(in.Projects, "projects")
			_, err := runInput(cmd, a, in)
			return err
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Role, "role", "", "current role")
	cmd.Flags().StringVar(&in.Bio, "bio", "", "short biography")
	cmd.Flags().StringSliceVar(&in.Skills, "skills", nil, "skills")
	cmd.Flags().StringSliceVar(&in.Projects, "projects", nil, "project names")
	return cmd
}

func argOr(args []string, value string) string {
	if len(args) > 0 {
		return args[0]
	}
	return value
}
