package app

import (
	"context"
	"testing"

	"mltf/portal/internal/store"
)

func pendingSubmission(id string) store.Submission {
	return store.Submission{
		ID:           id,
		Title:        "Foo Protocol",
		Abstract:     "A protocol for foo.",
		Authors:      []string{"Jane Doe"},
		GroupAcronym: "httpbis",
		Status:       "submitted",
		SubmittedBy:  "Jane Doe",
	}
}

func TestCreateSubmissionValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	_, err := svc.CreateSubmission(ctx, memberSession(), CreateSubmissionInput{Authors: []string{"Jane Doe"}})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")

	_, err = svc.CreateSubmission(ctx, memberSession(), CreateSubmissionInput{Title: "Foo Protocol", Authors: []string{"  "}})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestCreateSubmissionRecordsHistory(t *testing.T) {
	var inserted store.Submission
	var entry store.HistoryEntry
	fs := &fakeStore{
		insertSubmissionFn: func(_ context.Context, submission store.Submission) error {
			inserted = submission
			return nil
		},
		insertHistoryFn: func(_ context.Context, item store.HistoryEntry) error {
			entry = item
			return nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.CreateSubmission(context.Background(), memberSession(), CreateSubmissionInput{
		Title:   "  Foo Protocol  ",
		Authors: []string{" Jane Doe ", ""},
		Group:   "httpbis",
	})
	if err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}

	if inserted.Title != "Foo Protocol" {
		t.Errorf("title not trimmed: %q", inserted.Title)
	}
	if len(inserted.Authors) != 1 || inserted.Authors[0] != "Jane Doe" {
		t.Errorf("authors not cleaned: %v", inserted.Authors)
	}
	if inserted.Status != "submitted" {
		t.Errorf("expected status submitted, got %q", inserted.Status)
	}
	if inserted.SubmittedBy != "Mia" {
		t.Errorf("expected submitter Mia, got %q", inserted.SubmittedBy)
	}
	if entry.Action != "submit" || entry.DocumentKey != inserted.ID {
		t.Errorf("unexpected history entry %+v", entry)
	}
	if payload["status"] != "submitted" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestCreateSubmissionUnknownGroup(t *testing.T) {
	fs := &fakeStore{
		getGroupFn: func(context.Context, string) (store.WorkingGroup, error) {
			return store.WorkingGroup{}, errNoRows()
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateSubmission(context.Background(), memberSession(), CreateSubmissionInput{
		Title:   "Foo Protocol",
		Authors: []string{"Jane Doe"},
		Group:   "nosuch",
	})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestApproveDerivesCanonicalName(t *testing.T) {
	var draft store.PublishedDraft
	var entry store.HistoryEntry
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		approveSubmissionFn: func(_ context.Context, _, _ string, item store.PublishedDraft, history store.HistoryEntry) (bool, error) {
			draft = item
			entry = history
			return true, nil
		},
		getDraftBySubmissionFn: func(_ context.Context, submissionID string) (store.PublishedDraft, error) {
			if draft.Name == "" {
				return store.PublishedDraft{}, errNoRows()
			}
			return draft, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.Approve(context.Background(), editorSession(), "sub-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if draft.Name != "draft-doe-foo-protocol" {
		t.Errorf("unexpected draft name %q", draft.Name)
	}
	if draft.Revision != "00" || draft.Status != "active" {
		t.Errorf("unexpected draft %+v", draft)
	}
	if entry.Action != "approve" || entry.Detail != "published as draft-doe-foo-protocol" {
		t.Errorf("unexpected history entry %+v", entry)
	}
	if payload["status"] != "approved" || payload["draftName"] != "draft-doe-foo-protocol" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestApproveRetriesOnNameCollision(t *testing.T) {
	var names []string
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		approveSubmissionFn: func(_ context.Context, _, _ string, draft store.PublishedDraft, _ store.HistoryEntry) (bool, error) {
			names = append(names, draft.Name)
			if len(names) < 3 {
				return false, store.ErrDraftNameTaken
			}
			return true, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.Approve(context.Background(), editorSession(), "sub-1"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	want := []string{"draft-doe-foo-protocol", "draft-doe-foo-protocol-2", "draft-doe-foo-protocol-3"}
	if len(names) != len(want) {
		t.Fatalf("expected %d attempts, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("attempt %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestApproveGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		approveSubmissionFn: func(context.Context, string, string, store.PublishedDraft, store.HistoryEntry) (bool, error) {
			attempts++
			return false, store.ErrDraftNameTaken
		},
	}
	svc := newTestService(fs)

	_, err := svc.Approve(context.Background(), editorSession(), "sub-1")
	assertDomainError(t, err, 409, "NAME_COLLISION")
	if attempts != maxNameAttempts {
		t.Errorf("expected %d attempts, got %d", maxNameAttempts, attempts)
	}
}

func TestApproveRejectsWrongState(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			submission.Status = "rejected"
			return submission, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Approve(context.Background(), editorSession(), "sub-1")
	assertDomainError(t, err, 409, "INVALID_TRANSITION")
}

func TestApproveLostRaceReportsCurrentState(t *testing.T) {
	calls := 0
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			calls++
			submission := pendingSubmission(id)
			if calls > 1 {
				// Another decider won the race between read and update.
				submission.Status = "approved"
			}
			return submission, nil
		},
		approveSubmissionFn: func(context.Context, string, string, store.PublishedDraft, store.HistoryEntry) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Approve(context.Background(), editorSession(), "sub-1")
	assertDomainError(t, err, 409, "INVALID_TRANSITION")
}

func TestApproveForbiddenForPlainMember(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Approve(context.Background(), memberSession(), "sub-1")
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestApproveAllowedForApprovedChair(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		isApprovedChairFn: func(_ context.Context, acronym, userName string) (bool, error) {
			return acronym == "httpbis" && userName == "Mia", nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.Approve(context.Background(), memberSession(), "sub-1"); err != nil {
		t.Fatalf("Approve() by approved chair error = %v", err)
	}
}

func TestUnapprovedChairCannotDecide(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		isApprovedChairFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Approve(context.Background(), memberSession(), "sub-1")
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestRejectRecordsReason(t *testing.T) {
	var gotReason string
	var entry store.HistoryEntry
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		rejectSubmissionFn: func(_ context.Context, _, _ string, reason string, history store.HistoryEntry) (bool, error) {
			gotReason = reason
			entry = history
			return true, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.Reject(context.Background(), editorSession(), "sub-1", "  duplicate of existing work  ")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if gotReason != "duplicate of existing work" {
		t.Errorf("reason not trimmed: %q", gotReason)
	}
	if entry.Action != "reject" {
		t.Errorf("unexpected history entry %+v", entry)
	}
	if payload["status"] != "rejected" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestUnapproveReturnsToQueue(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			submission.Status = "approved"
			return submission, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.Unapprove(context.Background(), adminSession(), "sub-1")
	if err != nil {
		t.Fatalf("Unapprove() error = %v", err)
	}
	if payload["status"] != "submitted" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestUnapproveAdminOnly(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			submission.Status = "approved"
			return submission, nil
		},
		isApprovedChairFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(fs)
	ctx := context.Background()

	// Editors and even approved chairs can decide, but unapprove is an
	// administrative override.
	_, err := svc.Unapprove(ctx, editorSession(), "sub-1")
	assertDomainError(t, err, 403, "FORBIDDEN")

	_, err = svc.Unapprove(ctx, memberSession(), "sub-1")
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestUnapproveRequiresApprovedState(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Unapprove(context.Background(), adminSession(), "sub-1")
	assertDomainError(t, err, 409, "INVALID_TRANSITION")
}

func TestReapproveReusesExistingDraft(t *testing.T) {
	existing := store.PublishedDraft{
		Name:         "draft-doe-foo-protocol-2",
		SubmissionID: "sub-1",
		Title:        "Foo Protocol",
		Authors:      []string{"Jane Doe"},
		Revision:     "00",
		Status:       "active",
	}
	var names []string
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			return pendingSubmission(id), nil
		},
		getDraftBySubmissionFn: func(context.Context, string) (store.PublishedDraft, error) {
			return existing, nil
		},
		approveSubmissionFn: func(_ context.Context, _, _ string, draft store.PublishedDraft, _ store.HistoryEntry) (bool, error) {
			names = append(names, draft.Name)
			return true, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.Approve(context.Background(), editorSession(), "sub-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(names) != 1 || names[0] != "draft-doe-foo-protocol-2" {
		t.Errorf("expected the existing draft to be reused, got attempts %v", names)
	}
	if payload["draftName"] != "draft-doe-foo-protocol-2" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestPublishAsRFC(t *testing.T) {
	var gotNumber int
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			submission.Status = "approved"
			return submission, nil
		},
		publishAsRFCFn: func(_ context.Context, _, _ string, rfcNumber int, _ store.HistoryEntry) (bool, error) {
			gotNumber = rfcNumber
			return true, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.PublishAsRFC(context.Background(), editorSession(), "sub-1", 9999)
	if err != nil {
		t.Fatalf("PublishAsRFC() error = %v", err)
	}
	if gotNumber != 9999 {
		t.Errorf("expected RFC 9999, got %d", gotNumber)
	}
	if payload["status"] != "published" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestPublishAsRFCValidatesNumber(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.PublishAsRFC(context.Background(), editorSession(), "sub-1", 0)
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestPublishAsRFCForbiddenForMember(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.PublishAsRFC(context.Background(), memberSession(), "sub-1", 9999)
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestBulkApproveReportsPerSubmission(t *testing.T) {
	fs := &fakeStore{
		getSubmissionFn: func(_ context.Context, id string) (store.Submission, error) {
			submission := pendingSubmission(id)
			if id == "sub-done" {
				submission.Status = "approved"
			}
			return submission, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.BulkApprove(context.Background(), editorSession(), []string{"sub-1", "sub-done"})
	if err != nil {
		t.Fatalf("BulkApprove() error = %v", err)
	}
	if payload["approved"] != 1 {
		t.Errorf("expected 1 approval, got %v", payload["approved"])
	}
	results := payload["results"].([]map[string]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["ok"] != true {
		t.Errorf("expected sub-1 to succeed: %+v", results[0])
	}
	if results[1]["ok"] != false || results[1]["code"] != "INVALID_TRANSITION" {
		t.Errorf("expected sub-done to fail with INVALID_TRANSITION: %+v", results[1])
	}
}

func TestDeleteSubmissionsAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	_, err := svc.DeleteSubmissions(ctx, editorSession(), []string{"sub-1"})
	assertDomainError(t, err, 403, "FORBIDDEN")

	payload, err := svc.DeleteSubmissions(ctx, adminSession(), []string{"sub-1", "sub-2"})
	if err != nil {
		t.Fatalf("DeleteSubmissions() error = %v", err)
	}
	if payload["deleted"] != 2 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestListSubmissionsRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ListSubmissions(context.Background(), "bogus", "")
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}
