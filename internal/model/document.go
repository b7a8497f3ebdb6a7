package model

const (
	DefaultTitle    = "No Title"
	DefaultSource   = "Unknown"
	DefaultCategory = "General"
)

// Document is one retrievable knowledge-base entry. It is never mutated
// after the corpus loader creates it.
type Document struct {
	Body     string `json:"body"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category"`
}
