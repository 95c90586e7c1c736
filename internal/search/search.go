// Package search indexes and queries the published draft catalog.
package search

// DraftRecord is the data we index for a published draft.
type DraftRecord struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Group   string   `json:"group"`
	Status  string   `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Group  string // empty = all groups
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []DraftRecord `json:"results"`
	Total   int           `json:"total"`
	Query   string        `json:"query"`
}

// Searcher can execute a full-text search over the catalog.
type Searcher interface {
	Search(q Query) ([]DraftRecord, int, error)
	Healthy() bool
}

// Indexer can push drafts into a search index.
type Indexer interface {
	IndexDraft(record DraftRecord) error
	DeleteDraft(name string) error
}

func nonNil(results []DraftRecord) []DraftRecord {
	if results == nil {
		return []DraftRecord{}
	}
	return results
}
