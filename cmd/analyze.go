package cmd

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nikogura/resume-ai/pkg/jd"
	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/nikogura/resume-ai/pkg/resume"
	"github.com/nikogura/resume-ai/pkg/scorer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//nolint:gochecknoglobals // Compiled once, read-only
var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

//nolint:gochecknoglobals // Cobra boilerplate
var jdInput string

//nolint:gochecknoglobals // Cobra boilerplate
var atsCmd = &cobra.Command{
	Use:   "ats <resume.json>",
	Short: "Score a resume for applicant tracking systems",
	Long: `Rates a resume document from 0 to 100 for ATS friendliness, with a per-category
breakdown, missing keywords and suggested edits.

Examples:
  resume-ai ats resume.json
  resume-ai ats resume.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runATS,
}

//nolint:gochecknoglobals // Cobra boilerplate
var skillGapCmd = &cobra.Command{
	Use:   "skillgap <resume.json>",
	Short: "Compare resume skills against a job description",
	Long: `Lists matched and missing skills between a resume and a job description,
with a priority and learning resources for each missing skill.

The job description may be a file path, a URL, "-" for stdin, or the text itself.
Without --jd the comparison runs against the resume alone.

Examples:
  resume-ai skillgap resume.json --jd job.txt
  resume-ai skillgap resume.json --jd https://example.com/careers/123
  pbpaste | resume-ai skillgap resume.json --jd -`,
	Args: cobra.ExactArgs(1),
	RunE: runSkillGap,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(atsCmd)
	rootCmd.AddCommand(skillGapCmd)
	skillGapCmd.Flags().StringVar(&jdInput, "jd", "", "Job description: file, URL, - for stdin, or text")
}

func runATS(_ *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var doc resume.Document
	doc, err = resume.Load(args[0])
	if err != nil {
		return err
	}

	var client *llm.Client
	_, client, err = newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var result llm.Result
	result, err = client.ComputeATSScore(ctx, doc.Text())
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

	var ats llm.ATSScore
	err = result.Decode(&ats)
	if err != nil {
		return err
	}

	printATS(ats, scorer.NewScorer().Evaluate(ats))
	return err
}

func runSkillGap(_ *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var doc resume.Document
	doc, err = resume.Load(args[0])
	if err != nil {
		return err
	}

	var jobDescription string
	jobDescription, err = jd.Fetch(jdInput)
	if err != nil {
		err = errors.Wrap(err, "failed to read job description")
		return err
	}

	var client *llm.Client
	_, client, err = newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var result llm.Result
	result, err = client.AnalyzeSkillGap(ctx, doc.Text(), jobDescription)
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

	var gap llm.SkillGap
	err = result.Decode(&gap)
	if err != nil {
		return err
	}

	printSkillGap(gap)
	return err
}

// checkParsed shows the raw reply of a parse failure and turns it into an error.
func checkParsed(result llm.Result) (err error) {
	if result.OK() {
		return err
	}
	fmt.Fprintf(os.Stderr, "Raw AI response:\n%s\n", result.Failure.Raw)
	err = errors.New(result.Failure.Error)
	return err
}

// label turns a field name such as "HeadingsAndSections" into "Headings And Sections".
func label(name string) (title string) {
	titleCaser := cases.Title(language.English)
	title = titleCaser.String(camelBoundary.ReplaceAllString(name, "$1 $2"))
	return title
}

func printList(heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", heading)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func printATS(ats llm.ATSScore, report scorer.Report) {
	if ats.Score != nil {
		fmt.Printf("ATS Score: %g/100\n", *ats.Score)
	} else {
		fmt.Println("ATS Score: not returned")
	}

	fmt.Println("\nBreakdown:")
	for _, sf := range report.Shortfalls {
		earned := "-"
		if sf.Earned != nil {
			earned = fmt.Sprintf("%g", *sf.Earned)
		}
		line := fmt.Sprintf("  %-24s %5s/%d", label(sf.Category), earned, sf.Weight)
		if sf.Severity != scorer.SeverityNone {
			line += fmt.Sprintf("  (%s)", sf.Severity)
		}
		fmt.Println(line)
	}

	if len(ats.TopMatchedKeywords) > 0 {
		fmt.Printf("\nMatched keywords: %s\n", strings.Join(ats.TopMatchedKeywords, ", "))
	}
	if len(ats.TopMissingKeywords) > 0 {
		fmt.Printf("Missing keywords: %s\n", strings.Join(ats.TopMissingKeywords, ", "))
	}

	printList("Suggestions", ats.Suggestions)
	printList("Example bullets", ats.ExampleBullets)
	printList("Notes", report.Lessons)
}

func printSkillGap(gap llm.SkillGap) {
	fmt.Printf("Resume skills:  %s\n", strings.Join(gap.ResumeSkills, ", "))
	fmt.Printf("Job skills:     %s\n", strings.Join(gap.JobSkills, ", "))
	fmt.Printf("Matched skills: %s\n", strings.Join(gap.MatchedSkills, ", "))

	if len(gap.MissingSkills) > 0 {
		fmt.Println("\nMissing skills:")
		for _, ms := range gap.MissingSkills {
			fmt.Printf("  [%s] %s", ms.Priority, ms.Skill)
			if ms.EstimatedTime != "" {
				fmt.Printf(" (%s)", ms.EstimatedTime)
			}
			fmt.Println()
			if ms.Reason != "" {
				fmt.Printf("      %s\n", ms.Reason)
			}
			for _, r := range ms.Resources {
				fmt.Printf("      * %s\n", r)
			}
		}
	}

	printList("Quick fixes", gap.QuickFixes)
}
