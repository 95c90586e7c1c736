package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDraftNameTaken reports a published draft name collision. Callers retry
// with a disambiguated name.
var ErrDraftNameTaken = errors.New("draft name already taken")

const pgUniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ---- users ----

func (s *PostgresStore) EnsureUser(ctx context.Context, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT name, email, role, created_at FROM users WHERE name=$1
	`, name).Scan(&user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	insertUser := `
		INSERT INTO users (name, email, role)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@portal.local'), 'member')
		ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
		RETURNING name, email, role, created_at
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT name, email, role, created_at FROM users WHERE name=$1
	`, name).Scan(&user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, email, role, created_at FROM users ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var item User
		if err := rows.Scan(&item.Name, &item.Email, &item.Role, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetUserRole(ctx context.Context, name, role string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role=$2 WHERE name=$1`, name, role)
	if err != nil {
		return false, fmt.Errorf("set user role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set user role rows: %w", err)
	}
	return affected > 0, nil
}

// ---- refresh sessions ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userName string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_name, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_name=EXCLUDED.user_name, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userName, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.name, u.email, u.role, u.created_at
		FROM refresh_sessions rs
		JOIN users u ON u.name = rs.user_name
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ---- working groups ----

func (s *PostgresStore) ListGroups(ctx context.Context) ([]WorkingGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT acronym, name, area, description, created_at
		FROM groups
		ORDER BY acronym ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	items := make([]WorkingGroup, 0)
	for rows.Next() {
		var item WorkingGroup
		if err := rows.Scan(&item.Acronym, &item.Name, &item.Area, &item.Description, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, acronym string) (WorkingGroup, error) {
	var item WorkingGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT acronym, name, area, description, created_at
		FROM groups
		WHERE acronym=$1
	`, acronym).Scan(&item.Acronym, &item.Name, &item.Area, &item.Description, &item.CreatedAt)
	if err != nil {
		return WorkingGroup{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertGroup(ctx context.Context, group WorkingGroup) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (acronym, name, area, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (acronym) DO NOTHING
	`, group.Acronym, group.Name, group.Area, group.Description)
	if err != nil {
		return false, fmt.Errorf("insert group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert group rows: %w", err)
	}
	return affected > 0, nil
}

// ---- chairs ----

func (s *PostgresStore) ListChairs(ctx context.Context, acronym string) ([]ChairAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_acronym, chair_name, approved, added_by, added_at
		FROM group_chairs
		WHERE group_acronym=$1
		ORDER BY chair_name ASC
	`, acronym)
	if err != nil {
		return nil, fmt.Errorf("list chairs: %w", err)
	}
	defer rows.Close()

	items := make([]ChairAssignment, 0)
	for rows.Next() {
		var item ChairAssignment
		if err := rows.Scan(&item.GroupAcronym, &item.ChairName, &item.Approved, &item.AddedBy, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan chair: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chairs: %w", err)
	}
	return items, nil
}

// AddChair reports false when the chair already holds an assignment in the
// group, without modifying the existing row.
func (s *PostgresStore) AddChair(ctx context.Context, acronym, chairName, addedBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO group_chairs (group_acronym, chair_name, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_acronym, chair_name) DO NOTHING
	`, acronym, chairName, addedBy)
	if err != nil {
		return false, fmt.Errorf("add chair: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add chair rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) RemoveChairs(ctx context.Context, acronym string, chairNames []string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM group_chairs
		WHERE group_acronym=$1 AND chair_name = ANY($2)
	`, acronym, chairNames)
	if err != nil {
		return 0, fmt.Errorf("remove chairs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove chairs rows: %w", err)
	}
	return int(affected), nil
}

// SetApprovedChairs replaces the approved set for a group in a single
// statement: listed chairs become approved, every other chair of the group
// is demoted at the same instant.
func (s *PostgresStore) SetApprovedChairs(ctx context.Context, acronym string, chairNames []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE group_chairs
		SET approved = (chair_name = ANY($2))
		WHERE group_acronym=$1
	`, acronym, chairNames)
	if err != nil {
		return fmt.Errorf("set approved chairs: %w", err)
	}
	return nil
}

// TransferChair moves an assignment between groups, keeping the approved
// flag. Both legs run in one transaction.
func (s *PostgresStore) TransferChair(ctx context.Context, fromAcronym, toAcronym, chairName, actor string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transfer chair: %w", err)
	}
	defer tx.Rollback()

	var approved bool
	err = tx.QueryRowContext(ctx, `
		DELETE FROM group_chairs
		WHERE group_acronym=$1 AND chair_name=$2
		RETURNING approved
	`, fromAcronym, chairName).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove chair for transfer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_chairs (group_acronym, chair_name, approved, added_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_acronym, chair_name) DO UPDATE SET approved=EXCLUDED.approved
	`, toAcronym, chairName, approved, actor); err != nil {
		return false, fmt.Errorf("insert transferred chair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transfer chair: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) IsApprovedChair(ctx context.Context, acronym, chairName string) (bool, error) {
	var approved bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM group_chairs
			WHERE group_acronym=$1 AND chair_name=$2 AND approved
		)
	`, acronym, chairName).Scan(&approved)
	if err != nil {
		return false, fmt.Errorf("check approved chair: %w", err)
	}
	return approved, nil
}

// ---- memberships ----

func (s *PostgresStore) JoinGroup(ctx context.Context, acronym, userName string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_acronym, user_name)
		VALUES ($1, $2)
		ON CONFLICT (group_acronym, user_name) DO NOTHING
	`, acronym, userName)
	if err != nil {
		return false, fmt.Errorf("join group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("join group rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) LeaveGroup(ctx context.Context, acronym, userName string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM group_members
		WHERE group_acronym=$1 AND user_name=$2
	`, acronym, userName)
	if err != nil {
		return false, fmt.Errorf("leave group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("leave group rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, acronym string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_acronym, user_name, joined_at
		FROM group_members
		WHERE group_acronym=$1
		ORDER BY user_name ASC
	`, acronym)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Membership, 0)
	for rows.Next() {
		var item Membership
		if err := rows.Scan(&item.GroupAcronym, &item.UserName, &item.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListGroupsForUser(ctx context.Context, userName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_acronym FROM group_members WHERE user_name=$1 ORDER BY group_acronym ASC
	`, userName)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var acronym string
		if err := rows.Scan(&acronym); err != nil {
			return nil, fmt.Errorf("scan user group: %w", err)
		}
		items = append(items, acronym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user groups: %w", err)
	}
	return items, nil
}

// ---- submissions ----

func (s *PostgresStore) InsertSubmission(ctx context.Context, item Submission) error {
	authors, err := json.Marshal(nonNil(item.Authors))
	if err != nil {
		return fmt.Errorf("marshal submission authors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, title, abstract, authors, group_acronym, file_ref, status, submitted_by)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, 'submitted', $7)
	`, item.ID, item.Title, item.Abstract, string(authors), item.GroupAcronym, item.FileRef, item.SubmittedBy)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

const submissionColumns = `
	id, title, abstract, authors, group_acronym, file_ref, status,
	submitted_by, submitted_at, COALESCE(decided_by, ''), approved_at, rejected_at, COALESCE(rejection_reason, '')
`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var item Submission
	var authorsRaw []byte
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Abstract,
		&authorsRaw,
		&item.GroupAcronym,
		&item.FileRef,
		&item.Status,
		&item.SubmittedBy,
		&item.SubmittedAt,
		&item.DecidedBy,
		&item.ApprovedAt,
		&item.RejectedAt,
		&item.RejectionReason,
	)
	if err != nil {
		return Submission{}, err
	}
	_ = json.Unmarshal(authorsRaw, &item.Authors)
	return item, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id)
	return scanSubmission(row)
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, status, groupAcronym string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE ($1='' OR status=$1)
		  AND ($2='' OR group_acronym=$2)
		ORDER BY submitted_at DESC
	`, status, groupAcronym)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Submission, 0)
	for rows.Next() {
		item, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, nil
}

// ApproveSubmission flips a submission from submitted to approved, records
// the published draft and the history entry in the same transaction. It
// reports false without error when the submission was not in the submitted
// state, and ErrDraftNameTaken when another draft already owns the name.
// A submission that already materialized a draft (approved, unapproved,
// approved again) keeps its existing catalog entry.
func (s *PostgresStore) ApproveSubmission(ctx context.Context, id, actor string, draft PublishedDraft, entry HistoryEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve submission: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status='approved', decided_by=$2, approved_at=NOW(), rejected_at=NULL, rejection_reason=NULL
		WHERE id=$1 AND status='submitted'
	`, id, actor)
	if err != nil {
		return false, fmt.Errorf("approve submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve submission rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	authors, err := json.Marshal(nonNil(draft.Authors))
	if err != nil {
		return false, fmt.Errorf("marshal draft authors: %w", err)
	}
	// ON CONFLICT covers only the submission_id key: re-approving keeps
	// the draft materialized by a previous approval. A collision on the
	// name primary key still raises and becomes ErrDraftNameTaken.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO published_drafts (name, submission_id, title, authors, group_acronym, revision, status)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, 'active')
		ON CONFLICT (submission_id) DO NOTHING
	`, draft.Name, draft.SubmissionID, draft.Title, string(authors), draft.GroupAcronym, draft.Revision); err != nil {
		if isUniqueViolation(err) {
			return false, ErrDraftNameTaken
		}
		return false, fmt.Errorf("insert published draft: %w", err)
	}

	if err := insertHistoryTx(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve submission: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) RejectSubmission(ctx context.Context, id, actor, reason string, entry HistoryEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin reject submission: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status='rejected', decided_by=$2, rejected_at=NOW(), rejection_reason=$3
		WHERE id=$1 AND status='submitted'
	`, id, actor, reason)
	if err != nil {
		return false, fmt.Errorf("reject submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject submission rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := insertHistoryTx(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit reject submission: %w", err)
	}
	return true, nil
}

// UnapproveSubmission returns an approved submission to the review queue.
// The published draft stays in the catalog.
func (s *PostgresStore) UnapproveSubmission(ctx context.Context, id, actor string, entry HistoryEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin unapprove submission: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status='submitted', decided_by=$2, approved_at=NULL
		WHERE id=$1 AND status='approved'
	`, id, actor)
	if err != nil {
		return false, fmt.Errorf("unapprove submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unapprove submission rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := insertHistoryTx(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit unapprove submission: %w", err)
	}
	return true, nil
}

// PublishAsRFC promotes an approved submission and stamps its catalog draft
// with the assigned RFC number.
func (s *PostgresStore) PublishAsRFC(ctx context.Context, id, actor string, rfcNumber int, entry HistoryEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin publish submission: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status='published', decided_by=$2
		WHERE id=$1 AND status='approved'
	`, id, actor)
	if err != nil {
		return false, fmt.Errorf("publish submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("publish submission rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE published_drafts
		SET status='rfc', rfc_number=$2
		WHERE submission_id=$1
	`, id, rfcNumber); err != nil {
		return false, fmt.Errorf("stamp rfc number: %w", err)
	}

	if err := insertHistoryTx(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit publish submission: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) DeleteSubmissions(ctx context.Context, ids []string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete submissions rows: %w", err)
	}
	return int(affected), nil
}

// ---- catalog ----

const draftColumns = `
	name, COALESCE(submission_id, ''), title, authors, group_acronym, revision, status, rfc_number, published_at
`

func scanDraft(row interface{ Scan(...any) error }) (PublishedDraft, error) {
	var item PublishedDraft
	var authorsRaw []byte
	err := row.Scan(
		&item.Name,
		&item.SubmissionID,
		&item.Title,
		&authorsRaw,
		&item.GroupAcronym,
		&item.Revision,
		&item.Status,
		&item.RFCNumber,
		&item.PublishedAt,
	)
	if err != nil {
		return PublishedDraft{}, err
	}
	_ = json.Unmarshal(authorsRaw, &item.Authors)
	return item, nil
}

func (s *PostgresStore) ListPublishedDrafts(ctx context.Context) ([]PublishedDraft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+draftColumns+`
		FROM published_drafts
		ORDER BY published_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list published drafts: %w", err)
	}
	defer rows.Close()

	items := make([]PublishedDraft, 0)
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan published draft: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published drafts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPublishedDraft(ctx context.Context, name string) (PublishedDraft, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM published_drafts WHERE name=$1`, name)
	return scanDraft(row)
}

func (s *PostgresStore) GetPublishedDraftBySubmission(ctx context.Context, submissionID string) (PublishedDraft, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM published_drafts WHERE submission_id=$1`, submissionID)
	return scanDraft(row)
}

// SearchPublishedDrafts is the Postgres fallback used when no search index
// is configured.
func (s *PostgresStore) SearchPublishedDrafts(ctx context.Context, query string, limit int) ([]PublishedDraft, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+draftColumns+`
		FROM published_drafts
		WHERE name ILIKE '%' || $1 || '%'
		   OR title ILIKE '%' || $1 || '%'
		   OR authors::text ILIKE '%' || $1 || '%'
		ORDER BY published_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search published drafts: %w", err)
	}
	defer rows.Close()

	items := make([]PublishedDraft, 0)
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return items, nil
}

// ---- comments ----

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, document_key, parent_id, author_name, body)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.DocumentKey, comment.ParentID, comment.Author, comment.Body)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_key, parent_id, author_name, body, created_at
		FROM comments
		WHERE id=$1
	`, commentID).Scan(&item.ID, &item.DocumentKey, &item.ParentID, &item.Author, &item.Body, &item.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, documentKey string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_key, parent_id, author_name, body, created_at
		FROM comments
		WHERE document_key=$1
		ORDER BY created_at ASC, id ASC
	`, documentKey)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.DocumentKey, &item.ParentID, &item.Author, &item.Body, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// ToggleCommentLike removes the user's like when present, otherwise records
// it. The returned bool is the state after the call. Both legs run in one
// transaction so concurrent flips on the same (comment, user) pair cannot
// interleave between the delete and the insert.
func (s *PostgresStore) ToggleCommentLike(ctx context.Context, commentID, userName string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle comment like: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM comment_likes
		WHERE comment_id=$1 AND user_name=$2
	`, commentID, userName)
	if err != nil {
		return false, fmt.Errorf("delete comment like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment like rows: %w", err)
	}
	liked := affected == 0
	if liked {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comment_likes (comment_id, user_name)
			VALUES ($1, $2)
			ON CONFLICT (comment_id, user_name) DO NOTHING
		`, commentID, userName); err != nil {
			return false, fmt.Errorf("insert comment like: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle comment like: %w", err)
	}
	return liked, nil
}

func (s *PostgresStore) ListCommentLikeCounts(ctx context.Context, documentKey string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cl.comment_id, COUNT(*)::int
		FROM comment_likes cl
		JOIN comments c ON c.id = cl.comment_id
		WHERE c.document_key=$1
		GROUP BY cl.comment_id
	`, documentKey)
	if err != nil {
		return nil, fmt.Errorf("list comment like counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var commentID string
		var count int
		if err := rows.Scan(&commentID, &count); err != nil {
			return nil, fmt.Errorf("scan comment like count: %w", err)
		}
		counts[commentID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment like counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) ListUserLikes(ctx context.Context, documentKey, userName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cl.comment_id
		FROM comment_likes cl
		JOIN comments c ON c.id = cl.comment_id
		WHERE c.document_key=$1 AND cl.user_name=$2
	`, documentKey, userName)
	if err != nil {
		return nil, fmt.Errorf("list user likes: %w", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var commentID string
		if err := rows.Scan(&commentID); err != nil {
			return nil, fmt.Errorf("scan user like: %w", err)
		}
		items = append(items, commentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user likes: %w", err)
	}
	return items, nil
}

// ---- history ----

func insertHistoryTx(ctx context.Context, tx *sql.Tx, entry HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history (document_key, action, actor_name, detail)
		VALUES ($1, $2, $3, $4)
	`, entry.DocumentKey, entry.Action, entry.Actor, entry.Detail)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (document_key, action, actor_name, detail)
		VALUES ($1, $2, $3, $4)
	`, entry.DocumentKey, entry.Action, entry.Actor, entry.Detail)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, documentKey string, ascending bool, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_key, action, actor_name, detail, created_at
		FROM history
		WHERE document_key=$1
		ORDER BY id `+order+`
		LIMIT $2
	`, documentKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var item HistoryEntry
		if err := rows.Scan(&item.ID, &item.DocumentKey, &item.Action, &item.Actor, &item.Detail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return items, nil
}

// ---- summary ----

func (s *PostgresStore) SummaryCounts(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE status='submitted'`).Scan(&summary.PendingSubmissions); err != nil {
		return Summary{}, fmt.Errorf("count pending submissions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE status='approved'`).Scan(&summary.ApprovedSubmissions); err != nil {
		return Summary{}, fmt.Errorf("count approved submissions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM published_drafts`).Scan(&summary.PublishedDrafts); err != nil {
		return Summary{}, fmt.Errorf("count published drafts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_chairs WHERE NOT approved`).Scan(&summary.PendingChairs); err != nil {
		return Summary{}, fmt.Errorf("count pending chairs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_chairs WHERE approved`).Scan(&summary.ApprovedChairs); err != nil {
		return Summary{}, fmt.Errorf("count approved chairs: %w", err)
	}
	return summary, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
