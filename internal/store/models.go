package store

import "time"

type User struct {
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

type WorkingGroup struct {
	Acronym     string
	Name        string
	Area        string
	Description string
	CreatedAt   time.Time
}

type ChairAssignment struct {
	GroupAcronym string
	ChairName    string
	Approved     bool
	AddedBy      string
	AddedAt      time.Time
}

type Membership struct {
	GroupAcronym string
	UserName     string
	JoinedAt     time.Time
}

type Submission struct {
	ID              string
	Title           string
	Abstract        string
	Authors         []string
	GroupAcronym    string
	FileRef         string
	Status          string
	SubmittedBy     string
	SubmittedAt     time.Time
	DecidedBy       string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason string
}

type PublishedDraft struct {
	Name         string
	SubmissionID string
	Title        string
	Authors      []string
	GroupAcronym string
	Revision     string
	Status       string
	RFCNumber    *int
	PublishedAt  time.Time
}

type Comment struct {
	ID          string
	DocumentKey string
	ParentID    *string
	Author      string
	Body        string
	CreatedAt   time.Time
}

type HistoryEntry struct {
	ID          int64
	DocumentKey string
	Action      string
	Actor       string
	Detail      string
	CreatedAt   time.Time
}

// Summary carries the dashboard counters.
type Summary struct {
	PendingSubmissions  int
	ApprovedSubmissions int
	PublishedDrafts     int
	PendingChairs       int
	ApprovedChairs      int
}
