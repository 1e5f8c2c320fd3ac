package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var summaryCmd = &cobra.Command{
	Use:   "summary <position title>",
	Short: "Draft an HTML work summary for a position",
	Long: `Drafts a 5-7 line HTML work summary for one position, ready to paste into
the resume editor.

Examples:
  resume-ai summary "Senior Site Reliability Engineer"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

//nolint:gochecknoglobals // Cobra boilerplate
var summariesCmd = &cobra.Command{
	Use:   "summaries [job title]",
	Short: "Suggest resume summaries for each experience level",
	Long: `Drafts one professional summary per experience level (Fresher, Mid-Level,
Experienced) for a job title. An empty title drafts for a software developer.

Examples:
  resume-ai summaries "Data Engineer"
  resume-ai summaries "Data Engineer" --json`,
	RunE: runSummaries,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(summariesCmd)
}

func runSummary(_ *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var client *llm.Client
	_, client, err = newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var html string
	html, err = client.GenerateSectionText(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if getJSONOutput() {
		err = printJSON(map[string]string{"html": html})
		return err
	}

	fmt.Println(html)
	return err
}

func runSummaries(_ *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var client *llm.Client
	_, client, err = newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var result llm.Result
	result, err = client.SuggestSummaries(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if getJSONOutput() {
		err = printJSON(result)
		return err
	}

	err = checkParsed(result)
	if err != nil {
		return err
	}

	var suggestions llm.SummarySuggestions
	err = result.Decode(&suggestions)
	if err != nil {
		return err
	}

	for i, s := range suggestions.Summaries {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s:\n  %s\n", label(s.ExperienceLevel), s.Summary)
	}

	return err
}
