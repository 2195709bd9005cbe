package dto

// ImportRowFailure records one rejected bulk-import row.
type ImportRowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResultResponse summarizes a bulk metric import.
type ImportResultResponse struct {
	Period    string             `json:"period"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Failures  []ImportRowFailure `json:"failures,omitempty"`
}
