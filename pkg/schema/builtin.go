package schema

// Category is one weighted section of the ATS breakdown.
type Category struct {
	Name        string
	Description string
	Weight      int // Maximum points the category contributes
}

//nolint:gochecknoglobals // ATS scoring configuration constants
var AtsCategories = []Category{
	{
		Name:        "ContactInfo",
		Description: "Name, email, phone and location are present and parseable",
		Weight:      10,
	},
	{
		Name:        "HeadingsAndSections",
		Description: "Standard section headings an ATS can recognise",
		Weight:      20,
	},
	{
		Name:        "Keywords",
		Description: "Role-relevant skills and terms",
		Weight:      30,
	},
	{
		Name:        "Formatting",
		Description: "Plain layout without tables, images or columns",
		Weight:      20,
	},
	{
		Name:        "DatesAndConsistency",
		Description: "Consistent date formats and no unexplained gaps",
		Weight:      20,
	},
}

//nolint:gochecknoglobals // Missing-skill priority levels
var Priorities = []string{"High", "Medium", "Low"}

//nolint:gochecknoglobals // Experience levels for summary suggestions
var ExperienceLevels = []string{"Fresher", "Mid-Level", "Experienced"}

func builtinDescriptors() (descriptors []Descriptor) {
	descriptors = []Descriptor{
		skillGapDescriptor(),
		atsDescriptor(),
		summarySuggestionsDescriptor(),
	}
	return descriptors
}

func skillGapDescriptor() (d Descriptor) {
	missingSkill := &Descriptor{
		Task: SkillGapAnalysis,
		Fields: []Field{
			{Name: "skill", Kind: String, Required: true},
			{Name: "priority", Kind: String, Enum: Priorities, Default: "Medium"},
			{Name: "reason", Kind: String, Hint: "short reason"},
			{Name: "estimatedTime", Kind: String, Hint: "e.g. 2-4 weeks"},
			{Name: "resources", Kind: StringArray, Hint: "URL or course name"},
		},
	}

	d = Descriptor{
		Task: SkillGapAnalysis,
		Fields: []Field{
			{Name: "resumeSkills", Kind: StringArray},
			{Name: "jobSkills", Kind: StringArray},
			{Name: "matchedSkills", Kind: StringArray},
			{Name: "missingSkills", Kind: ObjectArray, Item: missingSkill},
			{Name: "quickFixes", Kind: StringArray, Hint: "one-line resume edit"},
		},
	}
	return d
}

func atsDescriptor() (d Descriptor) {
	breakdown := &Descriptor{Task: AtsScoring}
	for _, c := range AtsCategories {
		breakdown.Fields = append(breakdown.Fields, Field{
			Name:   c.Name,
			Kind:   Number,
			Bounds: &Bounds{Min: 0, Max: float64(c.Weight)},
		})
	}

	d = Descriptor{
		Task: AtsScoring,
		Fields: []Field{
			{Name: "score", Kind: Number, Bounds: &Bounds{Min: 0, Max: 100}},
			{Name: "breakdown", Kind: Object, Item: breakdown},
			{Name: "topMatchedKeywords", Kind: StringArray},
			{Name: "topMissingKeywords", Kind: StringArray},
			{Name: "suggestions", Kind: StringArray, Hint: "one-line actionable suggestion"},
			{Name: "exampleBullets", Kind: StringArray, Hint: "rewritten bullet"},
		},
	}
	return d
}

func summarySuggestionsDescriptor() (d Descriptor) {
	suggestion := &Descriptor{
		Task: SummarySuggestions,
		Fields: []Field{
			{Name: "experienceLevel", Kind: String, Enum: ExperienceLevels, Required: true},
			{Name: "summary", Kind: String, Required: true},
		},
	}

	d = Descriptor{
		Task: SummarySuggestions,
		Fields: []Field{
			{Name: "summaries", Kind: ObjectArray, Item: suggestion},
		},
		Wrap: "summaries",
	}
	return d
}
