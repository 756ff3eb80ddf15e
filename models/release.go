package models

import "fmt"

// ReleaseSummary is one result block scraped from a search/listing page.
// Everything but Link is free text and only used for display.
type ReleaseSummary struct {
	Title     string `json:"title" yaml:"title"`
	Link      string `json:"link" yaml:"link"` // absolute release page URL
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Downloads string `json:"downloads,omitempty" yaml:"downloads,omitempty"`
	FileSize  string `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	Uploaded  string `json:"uploaded,omitempty" yaml:"uploaded,omitempty"`
}

// String renders the summary the way the interactive menu shows it.
func (r ReleaseSummary) String() string {
	return fmt.Sprintf("%s %s %s", r.Title, r.Uploaded, r.FileSize)
}
