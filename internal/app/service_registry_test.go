package app

import (
	"context"
	"testing"

	"mltf/portal/internal/store"
)

func TestCreateGroupValidatesAcronym(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	for _, acronym := range []string{"", "HTTP BIS", "http-bis", "häund"} {
		_, err := svc.CreateGroup(ctx, adminSession(), CreateGroupInput{Acronym: acronym, Name: "HTTP"})
		assertDomainError(t, err, 422, "VALIDATION_ERROR")
	}
}

func TestCreateGroupLowercasesAcronym(t *testing.T) {
	var inserted store.WorkingGroup
	fs := &fakeStore{
		insertGroupFn: func(_ context.Context, group store.WorkingGroup) (bool, error) {
			inserted = group
			return true, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.CreateGroup(context.Background(), adminSession(), CreateGroupInput{
		Acronym: "  HTTPBIS ",
		Name:    "HTTP Evolution",
	}); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if inserted.Acronym != "httpbis" {
		t.Errorf("expected lowercase acronym, got %q", inserted.Acronym)
	}
}

func TestCreateGroupCollision(t *testing.T) {
	fs := &fakeStore{
		insertGroupFn: func(context.Context, store.WorkingGroup) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateGroup(context.Background(), adminSession(), CreateGroupInput{Acronym: "httpbis", Name: "HTTP"})
	assertDomainError(t, err, 409, "NAME_COLLISION")
}

func TestCreateGroupAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreateGroup(context.Background(), editorSession(), CreateGroupInput{Acronym: "httpbis", Name: "HTTP"})
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestAddChairDuplicate(t *testing.T) {
	fs := &fakeStore{
		addChairFn: func(context.Context, string, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.AddChair(context.Background(), adminSession(), "httpbis", "Jane Doe")
	assertDomainError(t, err, 409, "DUPLICATE_CHAIR")
}

func TestAddChairRequiresName(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.AddChair(context.Background(), adminSession(), "httpbis", "   ")
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestRemoveChairsReportsCount(t *testing.T) {
	fs := &fakeStore{
		removeChairsFn: func(_ context.Context, _ string, names []string) (int, error) {
			return len(names) - 1, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.RemoveChairs(context.Background(), adminSession(), "httpbis", []string{"Jane Doe", "Not A Chair"})
	if err != nil {
		t.Fatalf("RemoveChairs() error = %v", err)
	}
	if payload["removed"] != 1 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestSetApprovedChairsRejectsNonChairs(t *testing.T) {
	fs := &fakeStore{
		listChairsFn: func(context.Context, string) ([]store.ChairAssignment, error) {
			return []store.ChairAssignment{{ChairName: "Jane Doe"}}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.SetApprovedChairs(context.Background(), adminSession(), "httpbis", []string{"Jane Doe", "Stranger"})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	details := err.(*DomainError).Details.(map[string]any)
	missing := details["missing"].([]string)
	if len(missing) != 1 || missing[0] != "Stranger" {
		t.Errorf("unexpected missing list %v", missing)
	}
}

func TestSetApprovedChairsReplacesSet(t *testing.T) {
	var got []string
	fs := &fakeStore{
		listChairsFn: func(context.Context, string) ([]store.ChairAssignment, error) {
			return []store.ChairAssignment{{ChairName: "Jane Doe"}, {ChairName: "John Roe"}}, nil
		},
		setApprovedChairsFn: func(_ context.Context, _ string, names []string) error {
			got = names
			return nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.SetApprovedChairs(context.Background(), adminSession(), "httpbis", []string{"John Roe"}); err != nil {
		t.Fatalf("SetApprovedChairs() error = %v", err)
	}
	if len(got) != 1 || got[0] != "John Roe" {
		t.Errorf("unexpected approved set %v", got)
	}
}

func TestTransferChairNotAssigned(t *testing.T) {
	fs := &fakeStore{
		transferChairFn: func(context.Context, string, string, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.TransferChair(context.Background(), adminSession(), "httpbis", "quic", "Jane Doe")
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestJoinGroupTwiceIsNoOp(t *testing.T) {
	fs := &fakeStore{
		joinGroupFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.JoinGroup(context.Background(), memberSession(), "httpbis")
	assertDomainError(t, err, 200, "NO_OP")
}

func TestLeaveGroupWithoutMembershipIsNoOp(t *testing.T) {
	fs := &fakeStore{
		leaveGroupFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.LeaveGroup(context.Background(), memberSession(), "httpbis")
	assertDomainError(t, err, 200, "NO_OP")
}

func TestJoinAndLeaveGroup(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	payload, err := svc.JoinGroup(ctx, memberSession(), "httpbis")
	if err != nil {
		t.Fatalf("JoinGroup() error = %v", err)
	}
	if payload["joined"] != true || payload["member"] != "Mia" {
		t.Errorf("unexpected payload %+v", payload)
	}

	payload, err = svc.LeaveGroup(ctx, memberSession(), "httpbis")
	if err != nil {
		t.Fatalf("LeaveGroup() error = %v", err)
	}
	if payload["joined"] != false {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestRegistryMutationsRecordHistory(t *testing.T) {
	var entries []store.HistoryEntry
	fs := &fakeStore{
		listChairsFn: func(context.Context, string) ([]store.ChairAssignment, error) {
			return []store.ChairAssignment{{ChairName: "Jane Doe"}, {ChairName: "John Roe"}}, nil
		},
		removeChairsFn: func(_ context.Context, _ string, names []string) (int, error) {
			return len(names), nil
		},
		insertHistoryFn: func(_ context.Context, item store.HistoryEntry) error {
			entries = append(entries, item)
			return nil
		},
	}
	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.AddChair(ctx, adminSession(), "httpbis", "Jane Doe"); err != nil {
		t.Fatalf("AddChair() error = %v", err)
	}
	if _, err := svc.SetApprovedChairs(ctx, adminSession(), "httpbis", []string{"Jane Doe"}); err != nil {
		t.Fatalf("SetApprovedChairs() error = %v", err)
	}
	if _, err := svc.TransferChair(ctx, adminSession(), "httpbis", "quic", "Jane Doe"); err != nil {
		t.Fatalf("TransferChair() error = %v", err)
	}
	if _, err := svc.RemoveChairs(ctx, adminSession(), "httpbis", []string{"John Roe"}); err != nil {
		t.Fatalf("RemoveChairs() error = %v", err)
	}
	if _, err := svc.JoinGroup(ctx, memberSession(), "httpbis"); err != nil {
		t.Fatalf("JoinGroup() error = %v", err)
	}
	if _, err := svc.LeaveGroup(ctx, memberSession(), "httpbis"); err != nil {
		t.Fatalf("LeaveGroup() error = %v", err)
	}

	want := []struct {
		action, key, detail string
	}{
		{"add-chair", "httpbis", "Jane Doe"},
		{"set-approved-chairs", "httpbis", "Jane Doe"},
		{"transfer-chair", "httpbis", "Jane Doe to quic"},
		{"remove-chairs", "httpbis", "John Roe"},
		{"join", "httpbis", ""},
		{"leave", "httpbis", ""},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d history entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i, expect := range want {
		entry := entries[i]
		if entry.Action != expect.action || entry.DocumentKey != expect.key || entry.Detail != expect.detail {
			t.Errorf("entry %d = %+v, want %+v", i, entry, expect)
		}
	}
}

func TestRegistryNoOpsSkipHistory(t *testing.T) {
	fs := &fakeStore{
		joinGroupFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
		removeChairsFn: func(context.Context, string, []string) (int, error) {
			return 0, nil
		},
		insertHistoryFn: func(_ context.Context, item store.HistoryEntry) error {
			t.Errorf("unexpected history entry %+v", item)
			return nil
		},
	}
	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.JoinGroup(ctx, memberSession(), "httpbis"); err == nil {
		t.Error("expected NO_OP error from repeated join")
	}
	if _, err := svc.RemoveChairs(ctx, adminSession(), "httpbis", []string{"Nobody"}); err != nil {
		t.Fatalf("RemoveChairs() error = %v", err)
	}
}

func TestSetUserRoleValidatesRole(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SetUserRole(context.Background(), adminSession(), "Mia", "superuser")
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestSetUserRoleUnknownUser(t *testing.T) {
	fs := &fakeStore{
		setUserRoleFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.SetUserRole(context.Background(), adminSession(), "Ghost", "editor")
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestSetUserRoleAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SetUserRole(context.Background(), editorSession(), "Mia", "editor")
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestListUsersAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ListUsers(context.Background(), memberSession())
	assertDomainError(t, err, 403, "FORBIDDEN")
}
