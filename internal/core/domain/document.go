package domain

// Document is one line of the JSONL document source.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Chunk is a word window of a document. Its position in the metadata list is
// its vector id in the index built alongside it.
type Chunk struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Text  string `json:"chunk"`
}
