package analyzer

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/verifychain/verifychain/internal/domain"
)

// analyzeResponse is the wire format of the analysis service. All extraction
// fields are best-effort; the upstream model sometimes returns numbers as
// strings or omits fields entirely, so numerics decode through flexNumber.
type analyzeResponse struct {
	Success bool   `json:"success"`
	AIData  aiData `json:"ai_data"`
}

type aiData struct {
	BondName   string     `json:"bond_name"`
	ISIN       string     `json:"isin"`
	FaceValue  flexNumber `json:"face_value"`
	RiskRating string     `json:"risk_rating"`
	RawYield   flexNumber `json:"raw_yield"`
}

// toDomain converts the wire response to the domain result. Absent or
// unparseable numerics become zero, which the pipeline's reserve check will
// treat as insufficient rather than this adapter rejecting the response.
func (r analyzeResponse) toDomain() domain.AnalysisResult {
	return domain.AnalysisResult{
		BondName:   r.AIData.BondName,
		ISIN:       r.AIData.ISIN,
		FaceValue:  int64(r.AIData.FaceValue.value),
		RiskRating: r.AIData.RiskRating,
		RawYield:   r.AIData.RawYield.value,
	}
}

// flexNumber decodes a JSON number that may arrive as a number, a numeric
// string, or null. Anything unparseable decodes to zero.
type flexNumber struct {
	value float64
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.value = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			f.value = 0
			return nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			f.value = n
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		f.value = 0
		return nil
	}
	f.value = n
	return nil
}
