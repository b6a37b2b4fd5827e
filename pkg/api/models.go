package api

type PingResponse struct {
	Message string `json:"message"`
}

type PredictionResponse struct {
	Class        string             `json:"class"`
	Confidence   float64            `json:"confidence"`
	DiseaseClass string             `json:"diseaseClass"`
	Scores       map[string]float64 `json:"scores,omitempty"`
}

type PredictionParams struct {
	Scores bool `schema:"scores"`
}

type ModelInfo struct {
	Name        string
	Kind        string
	Description string
	ImageSize   int
	Features    bool
	Normalize   string
}
