package app

import (
	"context"
	"testing"

	"mltf/portal/internal/store"
)

func TestSearchCatalogFallsBackToStore(t *testing.T) {
	var gotQuery string
	fs := &fakeStore{
		searchPublishedDraftsFn: func(_ context.Context, query string, _ int) ([]store.PublishedDraft, error) {
			gotQuery = query
			return []store.PublishedDraft{{Name: "draft-doe-foo-protocol", Title: "Foo Protocol", Status: "active"}}, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.SearchCatalog(context.Background(), "  foo  ", 10)
	if err != nil {
		t.Fatalf("SearchCatalog() error = %v", err)
	}
	if gotQuery != "foo" {
		t.Errorf("query not trimmed: %q", gotQuery)
	}
	if payload["total"] != 1 {
		t.Errorf("unexpected payload %+v", payload)
	}
	results := payload["results"].([]map[string]any)
	if len(results) != 1 || results[0]["name"] != "draft-doe-foo-protocol" {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestExportModelNestsDiscussion(t *testing.T) {
	rootID := "cmt-root"
	fs := &fakeStore{
		getPublishedDraftFn: func(_ context.Context, name string) (store.PublishedDraft, error) {
			return store.PublishedDraft{
				Name:         name,
				SubmissionID: "sub-1",
				Title:        "Foo Protocol",
				Authors:      []string{"Jane Doe"},
				Revision:     "00",
				Status:       "active",
			}, nil
		},
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			submission.Status = "approved"
			return submission, nil
		},
		listCommentsFn: func(context.Context, string) ([]store.Comment, error) {
			return []store.Comment{
				{ID: rootID, DocumentKey: "sub-1", Author: "Jane Doe", Body: "First"},
				{ID: "cmt-reply", DocumentKey: "sub-1", ParentID: &rootID, Author: "Mia", Body: "Agreed"},
			}, nil
		},
	}
	svc := newTestService(fs)

	doc, err := svc.ExportModel(context.Background(), "draft-doe-foo-protocol")
	if err != nil {
		t.Fatalf("ExportModel() error = %v", err)
	}
	if doc.Name != "draft-doe-foo-protocol" || doc.Abstract != "A protocol for foo." {
		t.Errorf("unexpected doc %+v", doc)
	}
	if len(doc.Comments) != 1 {
		t.Fatalf("expected one root comment, got %d", len(doc.Comments))
	}
	if len(doc.Comments[0].Replies) != 1 || doc.Comments[0].Replies[0].Author != "Mia" {
		t.Errorf("unexpected replies %+v", doc.Comments[0].Replies)
	}
}
