// Package store persists finished interview sessions and company campaigns
// behind small repository interfaces.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyrily/hyrily/internal/company"
	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/questions"
)

var (
	ErrNotFound = errors.New("not found")
	errEmptyID  = errors.New("record id is empty")
)

type Kind string

const (
	KindPractice Kind = "practice"
	KindCompany  Kind = "company"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Session is the persisted record of one interview.
type Session struct {
	ID              string               `json:"id"`
	Kind            Kind                 `json:"kind"`
	Status          Status               `json:"status"`
	Stack           string               `json:"stack,omitempty"`
	Questions       []questions.Question `json:"questions"`
	Answers         []interview.Answer   `json:"answers"`
	Aggregate       float64              `json:"aggregate"`
	DurationSeconds int                  `json:"duration_seconds"`
	StartedAt       time.Time            `json:"started_at"`
	CompletedAt     time.Time            `json:"completed_at,omitzero"`
}

// Repository stores sessions.
type Repository interface {
	GetSession(ctx context.Context, id string) (Session, error)
	SaveSession(ctx context.Context, s Session) error
	ListSessions(ctx context.Context) ([]Session, error)
}

// CampaignRepository stores company campaigns.
type CampaignRepository interface {
	GetCampaign(ctx context.Context, id string) (*company.Campaign, error)
	SaveCampaign(ctx context.Context, c *company.Campaign) error
	ListCampaigns(ctx context.Context) ([]*company.Campaign, error)
}

// FromReport maps an interview outcome onto a session record.
func FromReport(id string, kind Kind, r interview.Report) Session {
	s := Session{
		ID:              id,
		Kind:            kind,
		Status:          StatusInProgress,
		Stack:           r.Stack,
		Questions:       r.Questions,
		Answers:         r.Answers,
		Aggregate:       r.Aggregate,
		DurationSeconds: int(r.Duration.Round(time.Second) / time.Second),
		StartedAt:       r.StartedAt.UTC(),
	}
	switch {
	case r.Completed:
		s.Status = StatusCompleted
		s.CompletedAt = r.FinishedAt.UTC()
	case r.Cancelled:
		s.Status = StatusCancelled
	}
	return s
}

// SessionReporter persists completed interviews as new sessions.
type SessionReporter struct {
	repo  Repository
	kind  Kind
	newID func() string

	mu   sync.Mutex
	last Session
}

func NewSessionReporter(repo Repository, kind Kind) *SessionReporter {
	return &SessionReporter{repo: repo, kind: kind, newID: uuid.NewString}
}

func (r *SessionReporter) Report(ctx context.Context, report interview.Report) error {
	s := FromReport(r.newID(), r.kind, report)
	if err := r.repo.SaveSession(ctx, s); err != nil {
		return err
	}
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
	return nil
}

// Last returns the most recently saved session.
func (r *SessionReporter) Last() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.last.ID != ""
}

// sortSessions orders newest first.
func sortSessions(sessions []Session) {
	slices.SortFunc(sessions, func(a, b Session) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortCampaigns(campaigns []*company.Campaign) {
	slices.SortFunc(campaigns, func(a, b *company.Campaign) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
