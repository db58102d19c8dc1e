package domain

type SchemaProblem struct {
	Index      int    `json:"idx"`
	MissingKey string `json:"missing_key"`
}

type DuplicatePair struct {
	I          int64   `json:"i"`
	J          int64   `json:"j"`
	Similarity float64 `json:"sim"`
}

type ProbeHealth struct {
	AvgScore    float64 `json:"avg_score"`
	ResultCount int     `json:"result_count"`
}

type MonitorReport struct {
	Timestamp       string                 `json:"ts"`
	SchemaProblems  []SchemaProblem        `json:"schema_problems"`
	DuplicatePairs  []DuplicatePair        `json:"duplicate_pairs"`
	RetrievalHealth map[string]ProbeHealth `json:"retrieval_health"`
}

type Advice struct {
	Summary string   `json:"summary"`
	Fixes   []string `json:"fixes"`
}
