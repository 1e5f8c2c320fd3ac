package llm

import (
	"fmt"
	"strings"

	"github.com/nikogura/resume-ai/pkg/schema"
	"github.com/pkg/errors"
)

// DefaultJobTitle stands in for an empty job title in summary prompts.
const DefaultJobTitle = "Software Developer"

// Args are the caller-supplied texts a prompt embeds. Each task kind reads
// only the members it needs; empty members are legal.
type Args struct {
	ResumeText     string `json:"resumeText,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	PositionTitle  string `json:"positionTitle,omitempty"`
	JobTitle       string `json:"jobTitle,omitempty"`
}

// BuildPrompt renders the prompt for kind using the default schema registry.
func BuildPrompt(kind schema.TaskKind, args Args) (prompt string, err error) {
	prompt, err = buildPrompt(schema.Default(), kind, args)
	return prompt, err
}

func buildPrompt(reg *schema.Registry, kind schema.TaskKind, args Args) (prompt string, err error) {
	if kind == schema.FreeTextGeneration {
		prompt = buildSectionTextPrompt(args.PositionTitle)
		return prompt, err
	}

	d, ok := reg.Lookup(kind)
	if !ok {
		err = errors.Wrapf(ErrUnknownKind, "no descriptor for %s", kind)
		return prompt, err
	}

	switch kind {
	case schema.SkillGapAnalysis:
		prompt = buildSkillGapPrompt(d, args.ResumeText, args.JobDescription)
	case schema.AtsScoring:
		prompt = buildATSPrompt(d, args.ResumeText)
	case schema.SummarySuggestions:
		prompt = buildSummarySuggestionsPrompt(d, args.JobTitle)
	default:
		prompt = buildGenericPrompt(d, args)
	}
	return prompt, err
}

// schemaInstruction is the closing block every structured prompt shares.
func schemaInstruction(d schema.Descriptor) (block string) {
	var sb strings.Builder
	sb.WriteString("Return ONLY valid JSON following this schema EXACTLY (no markdown, no extra text):\n")
	sb.WriteString(d.Skeleton())

	if constraints := d.Constraints(); len(constraints) > 0 {
		sb.WriteString("\n\nConstraints:\n")
		for _, c := range constraints {
			sb.WriteString("- ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}

	block = strings.TrimRight(sb.String(), "\n")
	return block
}

func buildSkillGapPrompt(d schema.Descriptor, resumeText, jobDescription string) (prompt string) {
	prompt = fmt.Sprintf(`You are an expert resume analyst and learning advisor.

Task:
1) Extract the normalized skills, tools, frameworks and certifications mentioned in the resume.
2) Extract required and preferred skills from the job description, if one is provided. Leave jobSkills empty when there is none.
3) Return matchedSkills and missingSkills. For each missing skill give a priority (%s), a short reason, 1-3 concise learning resources (URLs or course names) and an estimated time to learn (e.g. "2-4 weeks").
4) Add 2-5 quick resume edits that improve keyword match right away, one line each.

%s

Resume:
%s

JobDescription:
%s
`, strings.Join(schema.Priorities, "|"), schemaInstruction(d), resumeText, jobDescription)

	return prompt
}

func buildATSPrompt(d schema.Descriptor, resumeText string) (prompt string) {
	weights := make([]string, 0, len(schema.AtsCategories))
	for _, c := range schema.AtsCategories {
		weights = append(weights, fmt.Sprintf("%s(%d): %s", c.Name, c.Weight, c.Description))
	}

	prompt = fmt.Sprintf(`You are an expert in Applicant Tracking Systems (ATS) and resume optimization.

Task:
1) Analyze the resume text and compute an ATS compatibility score from 0 to 100.
2) Give a numeric breakdown using these category weights:
   - %s
3) For keywords, list topMatchedKeywords and topMissingKeywords.
4) Give 3 prioritized, actionable suggestions (one line each) and 2 example bullet rewrites that raise keyword density without inventing facts.

%s

Resume:
%s
`, strings.Join(weights, "\n   - "), schemaInstruction(d), resumeText)

	return prompt
}

func buildSummarySuggestionsPrompt(d schema.Descriptor, jobTitle string) (prompt string) {
	if strings.TrimSpace(jobTitle) == "" {
		jobTitle = DefaultJobTitle
	}

	prompt = fmt.Sprintf(`You are a professional resume writer.

Job Title: %s

Task:
Write a 4-6 line resume summary for each of these experience levels:
- %s

%s
`, jobTitle, strings.Join(schema.ExperienceLevels, "\n- "), schemaInstruction(d))

	return prompt
}

func buildSectionTextPrompt(positionTitle string) (prompt string) {
	prompt = fmt.Sprintf(`Position title: %s

Based on the position title, write 5-7 lines of summary for my experience in a resume.
Return the result as an HTML fragment only. Put the lead sentence in bold with <b> tags and keep the rest of the summary as normal text.
Do not use markdown.`, positionTitle)

	return prompt
}

// buildGenericPrompt serves kinds registered by callers beyond the built-ins.
func buildGenericPrompt(d schema.Descriptor, args Args) (prompt string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are an expert resume assistant. Complete the %s task for the input below.\n\n", d.Task))
	sb.WriteString(schemaInstruction(d))
	sb.WriteString("\n")

	sections := []struct {
		label string
		text  string
	}{
		{"Resume", args.ResumeText},
		{"JobDescription", args.JobDescription},
		{"PositionTitle", args.PositionTitle},
		{"JobTitle", args.JobTitle},
	}
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n%s\n", s.label, s.text))
	}

	prompt = sb.String()
	return prompt
}
