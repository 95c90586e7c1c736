package app

import (
	"context"
	"strings"
	"time"

	"mltf/portal/internal/export"
	"mltf/portal/internal/search"
	"mltf/portal/internal/store"
)

func (s *Service) Catalog(ctx context.Context) ([]map[string]any, error) {
	drafts, err := s.store.ListPublishedDrafts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(drafts))
	for _, draft := range drafts {
		items = append(items, draftPayload(draft))
	}
	return items, nil
}

func (s *Service) GetDraft(ctx context.Context, name string) (map[string]any, error) {
	draft, err := s.store.GetPublishedDraft(ctx, name)
	if err != nil {
		return nil, err
	}
	payload := draftPayload(draft)
	if s.archive != nil {
		revisions, err := s.archive.Revisions(draft.Name, 20)
		if err == nil {
			history := make([]map[string]any, 0, len(revisions))
			for _, revision := range revisions {
				history = append(history, map[string]any{
					"hash":      revision.Hash,
					"message":   revision.Message,
					"author":    revision.Author,
					"createdAt": revision.CreatedAt.Format(time.RFC3339),
				})
			}
			payload["revisions"] = history
		}
	}
	return payload, nil
}

// SearchCatalog queries the search index when one is wired, otherwise it
// falls back to the ILIKE scan in Postgres.
func (s *Service) SearchCatalog(ctx context.Context, query string, limit int) (map[string]any, error) {
	query = strings.TrimSpace(query)
	if s.search != nil {
		response := s.search.Search(search.Query{Text: query, Limit: limit})
		items := make([]map[string]any, 0, len(response.Results))
		for _, result := range response.Results {
			items = append(items, map[string]any{
				"name":    result.Name,
				"title":   result.Title,
				"authors": result.Authors,
				"group":   nilIfEmpty(result.Group),
				"status":  result.Status,
			})
		}
		return map[string]any{"query": query, "results": items, "total": response.Total}, nil
	}

	drafts, err := s.store.SearchPublishedDrafts(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(drafts))
	for _, draft := range drafts {
		items = append(items, draftPayload(draft))
	}
	return map[string]any{"query": query, "results": items, "total": len(items)}, nil
}

// ExportModel assembles everything the export renderers need for one
// draft: the catalog entry, the archived body and the discussion of the
// submission it came from.
func (s *Service) ExportModel(ctx context.Context, name string) (export.Draft, error) {
	draft, err := s.store.GetPublishedDraft(ctx, name)
	if err != nil {
		return export.Draft{}, err
	}

	doc := export.Draft{
		Name:        draft.Name,
		Title:       draft.Title,
		Authors:     draft.Authors,
		Group:       draft.GroupAcronym,
		Revision:    draft.Revision,
		RFCNumber:   draft.RFCNumber,
		PublishedAt: draft.PublishedAt,
	}

	if draft.SubmissionID != "" {
		submission, err := s.store.GetSubmission(ctx, draft.SubmissionID)
		if err == nil {
			doc.Abstract = submission.Abstract
			if s.artifacts != nil && submission.FileRef != "" {
				if preview, err := s.artifacts.Preview(ctx, submission.FileRef, 256*1024); err == nil {
					doc.Body = preview
				}
			}
		}
		comments, err := s.store.ListComments(ctx, draft.SubmissionID)
		if err == nil {
			doc.Comments = exportComments(comments)
		}
	}
	return doc, nil
}

func exportComments(comments []store.Comment) []export.Comment {
	children := make(map[string][]store.Comment)
	roots := make([]store.Comment, 0)
	for _, comment := range comments {
		if comment.ParentID == nil {
			roots = append(roots, comment)
			continue
		}
		children[*comment.ParentID] = append(children[*comment.ParentID], comment)
	}

	var build func(items []store.Comment) []export.Comment
	build = func(items []store.Comment) []export.Comment {
		out := make([]export.Comment, 0, len(items))
		for _, comment := range items {
			out = append(out, export.Comment{
				Author:    comment.Author,
				Body:      comment.Body,
				CreatedAt: comment.CreatedAt,
				Replies:   build(children[comment.ID]),
			})
		}
		return out
	}
	return build(roots)
}

func draftPayload(draft store.PublishedDraft) map[string]any {
	payload := map[string]any{
		"name":        draft.Name,
		"title":       draft.Title,
		"authors":     draft.Authors,
		"group":       nilIfEmpty(draft.GroupAcronym),
		"revision":    draft.Revision,
		"status":      draft.Status,
		"publishedAt": draft.PublishedAt.Format(time.RFC3339),
	}
	if draft.SubmissionID != "" {
		payload["submissionId"] = draft.SubmissionID
	}
	if draft.RFCNumber != nil {
		payload["rfcNumber"] = *draft.RFCNumber
	}
	return payload
}
