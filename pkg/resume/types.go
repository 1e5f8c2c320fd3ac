package resume

import (
	"github.com/google/uuid"
)

// Document is a résumé as the editor stores it.
type Document struct {
	ID         uuid.UUID    `json:"id"`
	FirstName  string       `json:"firstName"`
	LastName   string       `json:"lastName"`
	JobTitle   string       `json:"jobTitle"`
	Address    string       `json:"address"`
	Phone      string       `json:"phone"`
	Email      string       `json:"email"`
	ThemeColor string       `json:"themeColor,omitempty"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []Skill      `json:"skills"`
}

// Experience is one position held. WorkSummary is an HTML fragment.
type Experience struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	CompanyName      string `json:"companyName"`
	City             string `json:"city"`
	State            string `json:"state"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	CurrentlyWorking bool   `json:"currentlyWorking"`
	WorkSummary      string `json:"workSummary"`
}

// Education is one degree or course of study.
type Education struct {
	ID             int    `json:"id"`
	UniversityName string `json:"universityName"`
	Degree         string `json:"degree"`
	Major          string `json:"major"`
	City           string `json:"city"`
	State          string `json:"state"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Description    string `json:"description"`
}

// Skill is a named skill with a self-assessed rating out of 100.
type Skill struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}
