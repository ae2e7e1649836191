package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
	UserID   string `json:"userId"`
}

// Query describes a search request. UserID scopes hits to the caller's own
// committed documents.
type Query struct {
	Text   string
	UserID string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a committed document.
type DocumentRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	UserID   string `json:"userId"`
}
