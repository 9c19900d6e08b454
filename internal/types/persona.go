package types

// Persona represents one synthetic audience member recruited for a run.
// The recruit stage returns personas as an ordered sequence; that order is
// canonical for the rest of the run and must never be reordered or filtered.
type Persona struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Occupation string   `json:"occupation"`
	Location   string   `json:"location,omitempty"`
	Bio        string   `json:"bio"`
	PainPoints []string `json:"pain_points"`
}
