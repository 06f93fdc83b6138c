package domain

// Chunk is a fixed passage of a source document. It is written once by
// ingestion and only read afterwards.
type Chunk struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// Source describes one document listed in the corpus manifest.
type Source struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	Path  string `json:"path" yaml:"path"`
}
