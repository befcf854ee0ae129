package domain

// AnalysisResult holds the metadata extracted from a bond document by the
// external analysis service. Every field except FaceValue is best-effort:
// a degenerate extraction (empty or "Unknown" name) is accepted and logged
// as a soft warning. FaceValue gates the pipeline's reserve check.
type AnalysisResult struct {
	BondName   string  `json:"bond_name"`
	ISIN       string  `json:"isin"`
	FaceValue  int64   `json:"face_value"`
	RiskRating string  `json:"risk_rating"`
	RawYield   float64 `json:"raw_yield"`
}

// Degenerate reports whether the extraction produced no usable bond name.
func (r AnalysisResult) Degenerate() bool {
	return r.BondName == "" || r.BondName == "Unknown"
}
