package models

import (
	"fmt"
	"time"
)

// DefaultSalarySentinel is written when a listing does not publish a salary
const DefaultSalarySentinel = "No especificado"

// DateLayout is the layout used for posting dates and daily file names
const DateLayout = "2006-01-02"

// JobListing represents one scraped record from a listing page.
// Enrichment fields stay empty unless a detail scrape fills them.
type JobListing struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Salary             string `json:"salary"`
	City               string `json:"city"`
	PostedDate         string `json:"posted_date"`
	Detail             string `json:"detail"`
	Position           string `json:"position"`
	PositionType       string `json:"position_type"`
	EducationLevel     string `json:"education_level"`
	Sector             string `json:"sector"`
	Experience         string `json:"experience"`
	ContractType       string `json:"contract_type"`
	Vacancies          string `json:"vacancies"`
	Areas              string `json:"areas"`
	Professions        string `json:"professions"`
	CompanyName        string `json:"company_name"`
	CompanyDescription string `json:"company_description"`
	Skills             string `json:"skills"`
	Positions          string `json:"positions"`
}

// ListingID synthesizes a run-local identifier from the run start time and a 1-based index
func ListingID(runStart time.Time, index int) string {
	return fmt.Sprintf("%s-%d", runStart.Format("20060102150405"), index)
}
