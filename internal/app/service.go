package app

import (
	"context"
	"strings"
	"time"

	"mltf/portal/internal/archive"
	"mltf/portal/internal/auth"
	"mltf/portal/internal/config"
	"mltf/portal/internal/rbac"
	"mltf/portal/internal/search"
	"mltf/portal/internal/store"
	"mltf/portal/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	EnsureUser(context.Context, string) (store.User, error)
	GetUser(context.Context, string) (store.User, error)
	ListUsers(context.Context) ([]store.User, error)
	SetUserRole(context.Context, string, string) (bool, error)

	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error

	ListGroups(context.Context) ([]store.WorkingGroup, error)
	GetGroup(context.Context, string) (store.WorkingGroup, error)
	InsertGroup(context.Context, store.WorkingGroup) (bool, error)
	ListChairs(context.Context, string) ([]store.ChairAssignment, error)
	AddChair(context.Context, string, string, string) (bool, error)
	RemoveChairs(context.Context, string, []string) (int, error)
	SetApprovedChairs(context.Context, string, []string) error
	TransferChair(context.Context, string, string, string, string) (bool, error)
	IsApprovedChair(context.Context, string, string) (bool, error)
	JoinGroup(context.Context, string, string) (bool, error)
	LeaveGroup(context.Context, string, string) (bool, error)
	ListMembers(context.Context, string) ([]store.Membership, error)
	ListGroupsForUser(context.Context, string) ([]string, error)

	InsertSubmission(context.Context, store.Submission) error
	GetSubmission(context.Context, string) (store.Submission, error)
	ListSubmissions(context.Context, string, string) ([]store.Submission, error)
	ApproveSubmission(context.Context, string, string, store.PublishedDraft, store.HistoryEntry) (bool, error)
	RejectSubmission(context.Context, string, string, string, store.HistoryEntry) (bool, error)
	UnapproveSubmission(context.Context, string, string, store.HistoryEntry) (bool, error)
	PublishAsRFC(context.Context, string, string, int, store.HistoryEntry) (bool, error)
	DeleteSubmissions(context.Context, []string) (int, error)

	ListPublishedDrafts(context.Context) ([]store.PublishedDraft, error)
	GetPublishedDraft(context.Context, string) (store.PublishedDraft, error)
	GetPublishedDraftBySubmission(context.Context, string) (store.PublishedDraft, error)
	SearchPublishedDrafts(context.Context, string, int) ([]store.PublishedDraft, error)

	InsertComment(context.Context, store.Comment) error
	GetComment(context.Context, string) (store.Comment, error)
	ListComments(context.Context, string) ([]store.Comment, error)
	ToggleCommentLike(context.Context, string, string) (bool, error)
	ListCommentLikeCounts(context.Context, string) (map[string]int, error)
	ListUserLikes(context.Context, string, string) ([]string, error)

	InsertHistory(context.Context, store.HistoryEntry) error
	ListHistory(context.Context, string, bool, int) ([]store.HistoryEntry, error)

	SummaryCounts(context.Context) (store.Summary, error)
	Ping(ctx context.Context) error
}

// refreshSessions abstracts where refresh tokens live: Redis when
// configured, Postgres otherwise.
type refreshSessions interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type searchIndex interface {
	IndexDraft(search.DraftRecord)
	RemoveDraft(string)
	Search(search.Query) search.Response
}

type artifactStore interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
	Preview(ctx context.Context, ref string, limit int) (string, error)
}

type draftArchive interface {
	Snapshot(name string, content archive.Content, author, message string) (string, error)
	Revisions(name string, limit int) ([]archive.Revision, error)
}

type notifier interface {
	SubmissionDecided(submission store.Submission, action, detail string)
}

// Deps carries the optional infrastructure a Service can run without.
type Deps struct {
	Sessions  refreshSessions
	Search    searchIndex
	Artifacts artifactStore
	Archive   draftArchive
	Mailer    notifier
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  refreshSessions
	search    searchIndex
	artifacts artifactStore
	archive   draftArchive
	mailer    notifier
}

func New(cfg config.Config, dataStore *store.PostgresStore, deps Deps) *Service {
	svc := &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  deps.Sessions,
		search:    deps.Search,
		artifacts: deps.Artifacts,
		archive:   deps.Archive,
		mailer:    deps.Mailer,
	}
	if svc.sessions == nil {
		svc.sessions = dataStore
	}
	return svc
}

// Bootstrap guarantees an administrator account exists so a fresh install
// is usable without touching the database by hand.
func (s *Service) Bootstrap(ctx context.Context) error {
	admin, err := s.store.EnsureUser(ctx, "Admin")
	if err != nil {
		return err
	}
	if admin.Role != string(rbac.RoleAdmin) {
		if _, err := s.store.SetUserRole(ctx, admin.Name, string(rbac.RoleAdmin)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}

	user, err := s.store.EnsureUser(ctx, userName)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.Name,
		Name: user.Name,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.SessionTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.Name, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserName:     user.Name,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUser(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserName:  user.Name,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Summary(ctx context.Context) (map[string]any, error) {
	summary, err := s.store.SummaryCounts(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"pendingSubmissions":  summary.PendingSubmissions,
		"approvedSubmissions": summary.ApprovedSubmissions,
		"publishedDrafts":     summary.PublishedDrafts,
		"pendingChairs":       summary.PendingChairs,
		"approvedChairs":      summary.ApprovedChairs,
	}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
