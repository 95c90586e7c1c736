package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mltf/portal/internal/rbac"
	"mltf/portal/internal/store"
	"mltf/portal/internal/util"
)

type AddCommentInput struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parentId"`
}

func (s *Service) AddComment(ctx context.Context, session Session, documentKey string, input AddCommentInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionComment) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetSubmission(ctx, documentKey); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body is required", nil)
	}

	var parentID *string
	if input.ParentID != nil && strings.TrimSpace(*input.ParentID) != "" {
		parent, err := s.store.GetComment(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		// A parent under another document is as good as missing.
		if parent.DocumentKey != documentKey {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "parent comment not found", nil)
		}
		parentID = &parent.ID
	}

	comment := store.Comment{
		ID:          util.NewID("cmt"),
		DocumentKey: documentKey,
		ParentID:    parentID,
		Author:      session.UserName,
		Body:        body,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: documentKey,
		Action:      "comment",
		Actor:       session.UserName,
		Detail:      comment.ID,
	}); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":       comment.ID,
		"parentId": parentID,
		"author":   comment.Author,
		"body":     comment.Body,
	}, nil
}

// ToggleLike flips the caller's like on a comment and reports the state
// after the call together with the new total.
func (s *Service) ToggleLike(ctx context.Context, session Session, documentKey, commentID string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionComment) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.DocumentKey != documentKey {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	liked, err := s.store.ToggleCommentLike(ctx, commentID, session.UserName)
	if err != nil {
		return nil, err
	}
	action := "like"
	if !liked {
		action = "unlike"
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: documentKey,
		Action:      action,
		Actor:       session.UserName,
		Detail:      commentID,
	}); err != nil {
		return nil, err
	}
	counts, err := s.store.ListCommentLikeCounts(ctx, documentKey)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"commentId": commentID,
		"liked":     liked,
		"likes":     counts[commentID],
	}, nil
}

// CommentTree returns the document's discussion as nested threads. Roots
// and replies are each ordered oldest first.
func (s *Service) CommentTree(ctx context.Context, session Session, documentKey string) (map[string]any, error) {
	if _, err := s.store.GetSubmission(ctx, documentKey); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, documentKey)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.ListCommentLikeCounts(ctx, documentKey)
	if err != nil {
		return nil, err
	}
	mine, err := s.store.ListUserLikes(ctx, documentKey, session.UserName)
	if err != nil {
		return nil, err
	}
	liked := make(map[string]struct{}, len(mine))
	for _, id := range mine {
		liked[id] = struct{}{}
	}

	nodes := make(map[string]map[string]any, len(comments))
	roots := make([]map[string]any, 0)
	for _, comment := range comments {
		_, likedByMe := liked[comment.ID]
		nodes[comment.ID] = map[string]any{
			"id":        comment.ID,
			"author":    comment.Author,
			"body":      comment.Body,
			"createdAt": comment.CreatedAt.Format(time.RFC3339),
			"likes":     counts[comment.ID],
			"likedByMe": likedByMe,
			"replies":   []map[string]any{},
		}
	}
	for _, comment := range comments {
		node := nodes[comment.ID]
		if comment.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*comment.ParentID]
		if !ok {
			// Orphaned reply, surface it as a root rather than dropping it.
			roots = append(roots, node)
			continue
		}
		parent["replies"] = append(parent["replies"].([]map[string]any), node)
	}

	return map[string]any{
		"documentKey": documentKey,
		"comments":    roots,
		"total":       len(comments),
	}, nil
}

func (s *Service) History(ctx context.Context, documentKey, order string, limit int) (map[string]any, error) {
	if _, err := s.store.GetSubmission(ctx, documentKey); err != nil {
		return nil, err
	}
	ascending := false
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "order must be asc or desc", nil)
	}
	entries, err := s.store.ListHistory(ctx, documentKey, ascending, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"id":        entry.ID,
			"action":    entry.Action,
			"actor":     entry.Actor,
			"detail":    nilIfEmpty(entry.Detail),
			"createdAt": entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"documentKey": documentKey,
		"items":       items,
	}, nil
}
