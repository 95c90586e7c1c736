package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mltf/portal/internal/archive"
	"mltf/portal/internal/catalog"
	"mltf/portal/internal/rbac"
	"mltf/portal/internal/search"
	"mltf/portal/internal/store"
	"mltf/portal/internal/util"
)

// maxNameAttempts bounds the collision-retry loop when the canonical draft
// name is already taken.
const maxNameAttempts = 10

type CreateSubmissionInput struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Authors  []string `json:"authors"`
	Group    string   `json:"group"`
	Filename string   `json:"filename"`
	Content  []byte   `json:"content"`
}

func (s *Service) CreateSubmission(ctx context.Context, session Session, input CreateSubmissionInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionSubmit) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	authors := make([]string, 0, len(input.Authors))
	for _, author := range input.Authors {
		if trimmed := strings.TrimSpace(author); trimmed != "" {
			authors = append(authors, trimmed)
		}
	}
	if len(authors) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one author is required", nil)
	}

	group := strings.TrimSpace(input.Group)
	if group != "" {
		if _, err := s.store.GetGroup(ctx, group); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown working group", map[string]any{"group": group})
		}
	}

	fileRef := ""
	if len(input.Content) > 0 && s.artifacts != nil {
		ref, err := s.artifacts.Store(ctx, firstNonBlank(input.Filename, "submission.txt"), input.Content)
		if err != nil {
			return nil, domainError(http.StatusInternalServerError, "STORAGE_ERROR", "could not store submission file", nil)
		}
		fileRef = ref
	}

	submission := store.Submission{
		ID:           util.ShortID(),
		Title:        title,
		Abstract:     strings.TrimSpace(input.Abstract),
		Authors:      authors,
		GroupAcronym: group,
		FileRef:      fileRef,
		Status:       "submitted",
		SubmittedBy:  session.UserName,
	}
	if err := s.store.InsertSubmission(ctx, submission); err != nil {
		return nil, err
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: submission.ID,
		Action:      "submit",
		Actor:       session.UserName,
		Detail:      title,
	}); err != nil {
		return nil, err
	}
	return s.submissionPayload(ctx, submission)
}

func (s *Service) ListSubmissions(ctx context.Context, status, group string) ([]map[string]any, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		switch status {
		case "submitted", "approved", "rejected", "published":
		default:
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid status filter", nil)
		}
	}
	submissions, err := s.store.ListSubmissions(ctx, status, strings.TrimSpace(group))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, submissionSummary(submission))
	}
	return items, nil
}

func (s *Service) GetSubmission(ctx context.Context, id string) (map[string]any, error) {
	submission, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.submissionPayload(ctx, submission)
}

// Approve moves a submission into the catalog. The state flip, the draft
// row and the ledger entry commit atomically; on a name collision the
// canonical name is retried with a numeric suffix.
func (s *Service) Approve(ctx context.Context, session Session, id string) (map[string]any, error) {
	submission, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireDecider(ctx, session, submission); err != nil {
		return nil, err
	}
	if submission.Status != "submitted" {
		return nil, invalidTransition(submission.Status, "approved")
	}

	// A submission that was approved and then unapproved already owns a
	// catalog entry. Materialization is idempotent per submission: reuse
	// that draft instead of deriving a new name.
	if existing, err := s.store.GetPublishedDraftBySubmission(ctx, submission.ID); err == nil {
		return s.finishApprove(ctx, session, submission, existing)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	base := catalog.CanonicalName(submission.Title, submission.Authors)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		draft := store.PublishedDraft{
			Name:         catalog.Disambiguate(base, attempt),
			SubmissionID: submission.ID,
			Title:        submission.Title,
			Authors:      submission.Authors,
			GroupAcronym: submission.GroupAcronym,
			Revision:     "00",
			Status:       "active",
		}
		payload, err := s.finishApprove(ctx, session, submission, draft)
		if errors.Is(err, store.ErrDraftNameTaken) {
			continue
		}
		return payload, err
	}
	return nil, domainError(http.StatusConflict, "NAME_COLLISION", "could not derive a unique draft name", map[string]any{"base": base})
}

func (s *Service) finishApprove(ctx context.Context, session Session, submission store.Submission, draft store.PublishedDraft) (map[string]any, error) {
	changed, err := s.store.ApproveSubmission(ctx, submission.ID, session.UserName, draft, store.HistoryEntry{
		DocumentKey: submission.ID,
		Action:      "approve",
		Actor:       session.UserName,
		Detail:      "published as " + draft.Name,
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := s.store.GetSubmission(ctx, submission.ID)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition(current.Status, "approved")
	}
	s.afterApprove(ctx, submission, draft)
	submission.Status = "approved"
	return s.submissionPayload(ctx, submission)
}

func (s *Service) Reject(ctx context.Context, session Session, id, reason string) (map[string]any, error) {
	submission, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireDecider(ctx, session, submission); err != nil {
		return nil, err
	}
	if submission.Status != "submitted" {
		return nil, invalidTransition(submission.Status, "rejected")
	}

	reason = strings.TrimSpace(reason)
	changed, err := s.store.RejectSubmission(ctx, submission.ID, session.UserName, reason, store.HistoryEntry{
		DocumentKey: submission.ID,
		Action:      "reject",
		Actor:       session.UserName,
		Detail:      reason,
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := s.store.GetSubmission(ctx, submission.ID)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition(current.Status, "rejected")
	}
	if s.mailer != nil {
		s.mailer.SubmissionDecided(submission, "rejected", reason)
	}
	submission.Status = "rejected"
	return s.submissionPayload(ctx, submission)
}

// Unapprove sends an approved submission back to the review queue. It is
// an administrative override, not part of the normal decision flow, so
// chairs and editors cannot trigger it. The catalog keeps the draft that
// was published while it was approved.
func (s *Service) Unapprove(ctx context.Context, session Session, id string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	submission, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != "approved" {
		return nil, invalidTransition(submission.Status, "submitted")
	}

	changed, err := s.store.UnapproveSubmission(ctx, submission.ID, session.UserName, store.HistoryEntry{
		DocumentKey: submission.ID,
		Action:      "unapprove",
		Actor:       session.UserName,
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := s.store.GetSubmission(ctx, submission.ID)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition(current.Status, "submitted")
	}
	submission.Status = "submitted"
	return s.submissionPayload(ctx, submission)
}

func (s *Service) PublishAsRFC(ctx context.Context, session Session, id string, rfcNumber int) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionPublish) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if rfcNumber <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rfcNumber must be positive", nil)
	}
	submission, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != "approved" {
		return nil, invalidTransition(submission.Status, "published")
	}

	changed, err := s.store.PublishAsRFC(ctx, submission.ID, session.UserName, rfcNumber, store.HistoryEntry{
		DocumentKey: submission.ID,
		Action:      "publish",
		Actor:       session.UserName,
		Detail:      fmt.Sprintf("RFC %d", rfcNumber),
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := s.store.GetSubmission(ctx, submission.ID)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition(current.Status, "published")
	}
	if s.mailer != nil {
		s.mailer.SubmissionDecided(submission, "published", fmt.Sprintf("RFC %d", rfcNumber))
	}
	submission.Status = "published"
	return s.submissionPayload(ctx, submission)
}

// BulkApprove processes each id independently and never aborts the batch:
// the response reports the outcome per submission.
func (s *Service) BulkApprove(ctx context.Context, session Session, ids []string) (map[string]any, error) {
	results := make([]map[string]any, 0, len(ids))
	approved := 0
	for _, id := range ids {
		payload, err := s.Approve(ctx, session, id)
		if err != nil {
			_, code, message, _ := mapError(err)
			results = append(results, map[string]any{
				"id":    id,
				"ok":    false,
				"code":  code,
				"error": message,
			})
			continue
		}
		approved++
		results = append(results, map[string]any{
			"id":        id,
			"ok":        true,
			"draftName": payload["draftName"],
		})
	}
	return map[string]any{
		"approved": approved,
		"results":  results,
	}, nil
}

func (s *Service) DeleteSubmissions(ctx context.Context, session Session, ids []string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if len(ids) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ids is required", nil)
	}
	deleted, err := s.store.DeleteSubmissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted": deleted}, nil
}

// requireDecider enforces who may decide on a submission: editors and
// admins always, plus approved chairs of the submission's group.
func (s *Service) requireDecider(ctx context.Context, session Session, submission store.Submission) error {
	if s.Can(session.Role, rbac.ActionDecide) {
		return nil
	}
	if submission.GroupAcronym != "" {
		approved, err := s.store.IsApprovedChair(ctx, submission.GroupAcronym, session.UserName)
		if err != nil {
			return err
		}
		if approved {
			return nil
		}
	}
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func invalidTransition(from, to string) *DomainError {
	return domainError(http.StatusConflict, "INVALID_TRANSITION", fmt.Sprintf("cannot move submission from %s to %s", from, to), map[string]any{
		"from": from,
		"to":   to,
	})
}

// afterApprove runs the non-transactional side effects of an approval:
// search indexing, the revision archive and the author notification. None
// of them may fail the approval itself.
func (s *Service) afterApprove(ctx context.Context, submission store.Submission, draft store.PublishedDraft) {
	if s.search != nil {
		s.search.IndexDraft(search.DraftRecord{
			Name:    draft.Name,
			Title:   draft.Title,
			Authors: draft.Authors,
			Group:   draft.GroupAcronym,
			Status:  draft.Status,
		})
	}
	if s.archive != nil {
		body := submission.Abstract
		if s.artifacts != nil && submission.FileRef != "" {
			if preview, err := s.artifacts.Preview(ctx, submission.FileRef, 64*1024); err == nil {
				body = preview
			}
		}
		if _, err := s.archive.Snapshot(draft.Name, archive.Content{
			Title:    draft.Title,
			Authors:  draft.Authors,
			Group:    draft.GroupAcronym,
			Revision: draft.Revision,
			Body:     body,
		}, submission.SubmittedBy, "Publish "+draft.Name+"-"+draft.Revision); err != nil {
			log.Printf("archive: snapshot %s: %v", draft.Name, err)
		}
	}
	if s.mailer != nil {
		s.mailer.SubmissionDecided(submission, "approved", draft.Name)
	}
}

func (s *Service) submissionPayload(ctx context.Context, submission store.Submission) (map[string]any, error) {
	payload := submissionSummary(submission)
	if submission.Status == "approved" || submission.Status == "published" {
		draft, err := s.store.GetPublishedDraftBySubmission(ctx, submission.ID)
		if err == nil {
			payload["draftName"] = draft.Name
			if draft.RFCNumber != nil {
				payload["rfcNumber"] = *draft.RFCNumber
			}
		}
	}
	return payload, nil
}

func submissionSummary(submission store.Submission) map[string]any {
	payload := map[string]any{
		"id":          submission.ID,
		"title":       submission.Title,
		"abstract":    submission.Abstract,
		"authors":     submission.Authors,
		"group":       nilIfEmpty(submission.GroupAcronym),
		"fileRef":     nilIfEmpty(submission.FileRef),
		"status":      submission.Status,
		"submittedBy": submission.SubmittedBy,
		"submittedAt": submission.SubmittedAt.Format(time.RFC3339),
	}
	if submission.DecidedBy != "" {
		payload["decidedBy"] = submission.DecidedBy
	}
	if submission.RejectionReason != "" {
		payload["rejectionReason"] = submission.RejectionReason
	}
	return payload
}
