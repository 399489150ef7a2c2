package recommend

// Fixed metadata stamped on every record. The extractor assumes a single
// clinical guideline per document and never infers these from the text.
const (
	GuideTitle = "Management of Distal Radius Fractures"
	Stage      = "Rehabilitation"
	Disease    = "Fracture"
	Specialty  = "orthopedics"
)

// Record is one recommendation statement paired with its class and evidence level.
type Record struct {
	Title                 string   `json:"title"`
	SubCategory           []string `json:"subCategory"`
	RecommendationContent string   `json:"recommendation_content"`
	GuideTitle            string   `json:"guide_title"`
	Rating                string   `json:"rating"`
	Stage                 []string `json:"stage"`
	Disease               []string `json:"disease"`
	Rationales            []string `json:"rationales"`
	References            []string `json:"references"`
	Specialty             []string `json:"specialty"`
}

func newRecord(cor, loe, content string) Record {
	return Record{
		Title:                 GuideTitle,
		SubCategory:           []string{},
		RecommendationContent: content,
		GuideTitle:            GuideTitle,
		Rating:                loe,
		Stage:                 []string{Stage, cor},
		Disease:               []string{Disease},
		Rationales:            []string{},
		References:            []string{},
		Specialty:             []string{Specialty},
	}
}
