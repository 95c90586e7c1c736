package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxDrafts = "portal_drafts"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the drafts index.
// The client is returned even when the initial connection fails; the health
// loop picks the instance up once it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxDrafts,
		PrimaryKey: "name",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxDrafts, err)
	}

	index := m.client.Index(idxDrafts)
	filterable := []interface{}{"group", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxDrafts, err)
	}
	searchable := []string{"name", "title", "authors"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxDrafts, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// IndexDraft upserts a draft document in the index.
func (m *Meili) IndexDraft(record DraftRecord) error {
	if _, err := m.client.Index(idxDrafts).AddDocuments([]DraftRecord{record}, nil); err != nil {
		return fmt.Errorf("index draft %s: %w", record.Name, err)
	}
	return nil
}

// DeleteDraft removes a draft document from the index.
func (m *Meili) DeleteDraft(name string) error {
	if _, err := m.client.Index(idxDrafts).DeleteDocument(name, nil); err != nil {
		return fmt.Errorf("delete draft %s: %w", name, err)
	}
	return nil
}

// Search queries the drafts index.
func (m *Meili) Search(q Query) ([]DraftRecord, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	request := &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	}
	if q.Group != "" {
		request.Filter = []string{fmt.Sprintf("group = %q", q.Group)}
	}

	resp, err := m.client.Index(idxDrafts).Search(q.Text, request)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]DraftRecord, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToRecord(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToRecord(hit meili.Hit) DraftRecord {
	return DraftRecord{
		Name:    decodeString(hit, "name"),
		Title:   decodeString(hit, "title"),
		Authors: decodeStrings(hit, "authors"),
		Group:   decodeString(hit, "group"),
		Status:  decodeString(hit, "status"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeStrings(hit meili.Hit, key string) []string {
	raw, ok := hit[key]
	if !ok {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		return values
	}
	return nil
}
