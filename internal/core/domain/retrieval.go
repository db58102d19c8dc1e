package domain

// RetrievalResult is one ranked hit. Score is an L2 distance: lower is closer.
type RetrievalResult struct {
	VectorID int64   `json:"vector_id"`
	Score    float64 `json:"score"`
	Chunk    string  `json:"chunk"`
	Title    string  `json:"title"`
	DocID    string  `json:"doc_id"`
}

type IndexStats struct {
	Loaded    bool `json:"loaded"`
	Vectors   int  `json:"vectors"`
	Dimension int  `json:"dimension"`
}
