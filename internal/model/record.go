package model

// Record is a raw dataset row. A nil field was missing, null or not a string.
type Record struct {
	Text     *string `json:"text"`
	Question *string `json:"question"`
	URL      *string `json:"url"`
	QType    *string `json:"qtype"`
}

// Document converts the record, filling absent metadata with the package
// defaults. The body is copied as-is; callers decide whether it qualifies.
func (r Record) Document() Document {
	return Document{
		Body:     deref(r.Text, ""),
		Title:    deref(r.Question, DefaultTitle),
		Source:   deref(r.URL, DefaultSource),
		Category: deref(r.QType, DefaultCategory),
	}
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
