package mcp

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the user question, in Korean or English"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer          string   `json:"answer" jsonschema:"the stored answer, or the fallback message"`
	MatchedQuestion *string  `json:"matched_question,omitempty" jsonschema:"the stored question that was matched"`
	Score           *float64 `json:"score,omitempty" jsonschema:"match score between 0 and 1"`
	Outcome         string   `json:"outcome" jsonschema:"exact, lexical_strong, hybrid, no_candidates, low_lexical or below_threshold"`
	Answered        bool     `json:"answered" jsonschema:"true when the answer came from the corpus"`
}

// CorpusStatusInput is the input schema for corpus_status (no parameters).
type CorpusStatusInput struct{}

// CorpusStatus describes the loaded corpus and its indexes.
type CorpusStatus struct {
	CorpusPath  string `json:"corpus_path"`
	Entries     int    `json:"entries"`
	ExactKeys   int    `json:"exact_keys"`
	Collisions  int    `json:"collisions"`
	Vectors     int    `json:"vectors"`
	Backend     string `json:"backend"`
	Model       string `json:"model"`
	Dimensions  int    `json:"dimensions"`
	Available   bool   `json:"embedder_available"`
	Fingerprint string `json:"fingerprint,omitempty"`
	LastIngest  string `json:"last_ingest,omitempty"`
}
