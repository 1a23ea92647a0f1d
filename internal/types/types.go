package types

// ListingRecord represents one program row of the catalog listing
type ListingRecord struct {
	ProgramNumber   string    `json:"programNumber"`
	ProgramName     string    `json:"programName"`
	Degree          string    `json:"degree"`
	FirstEnrollment string    `json:"firstEnrollment"`
	Status          string    `json:"status"`
	DetailLink      string    `json:"detailLink"`
	Details         DetailMap `json:"details"`
	DetailsError    string    `json:"detailsError,omitempty"`
}

// HasDetailLink reports whether the record points at a detail page
func (r ListingRecord) HasDetailLink() bool {
	return r.DetailLink != ""
}

// LinkedDocument is a document reference found inside a detail field
type LinkedDocument struct {
	Text      string  `json:"text"`
	Href      *string `json:"href"`
	ValidFrom string  `json:"validFrom"`
}

// ListingFromCells maps the positional cells of a listing row onto a record.
// Cell 0 is the row header and carries no data; missing cells yield "".
func ListingFromCells(cells []string) ListingRecord {
	at := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return ListingRecord{
		ProgramNumber:   at(1),
		ProgramName:     at(2),
		Degree:          at(3),
		FirstEnrollment: at(4),
		Status:          at(5),
	}
}
