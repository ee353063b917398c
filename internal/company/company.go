// Package company runs proctored hiring campaigns: a fixed question set is put
// to a pool of candidates and the best performers are selected.
package company

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

var (
	ErrNoPendingCandidates = errors.New("no pending candidates")
	ErrUnknownCandidate    = errors.New("unknown candidate")
	ErrCampaignClosed      = errors.New("campaign is completed")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type CandidateStatus string

const (
	CandidatePending      CandidateStatus = "pending"
	CandidateInterviewing CandidateStatus = "interviewing"
	CandidateCompleted    CandidateStatus = "completed"
	CandidateSelected     CandidateStatus = "selected"
	CandidateRejected     CandidateStatus = "rejected"
)

// Candidate is one invitee. Score is a 0–100 percentage.
type Candidate struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Status      CandidateStatus    `json:"status"`
	Score       int                `json:"score"`
	Answers     []interview.Answer `json:"answers,omitempty"`
	SessionID   string             `json:"session_id,omitempty"`
	StartedAt   time.Time          `json:"started_at,omitzero"`
	CompletedAt time.Time          `json:"completed_at,omitzero"`
}

// Campaign is a company interview round.
type Campaign struct {
	ID          string               `json:"id"`
	Company     string               `json:"company"`
	Stack       string               `json:"stack"`
	Questions   []questions.Question `json:"questions"`
	Candidates  []Candidate          `json:"candidates"`
	SelectCount int                  `json:"select_count"`
	Status      Status               `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt time.Time            `json:"completed_at,omitzero"`
}

// NewCampaign creates an active campaign with total placeholder candidates.
func NewCampaign(company, stack string, total, selectCount int, qs []questions.Question) (*Campaign, error) {
	company = strings.TrimSpace(company)
	switch {
	case company == "":
		return nil, errors.New("company name is required")
	case total < 1:
		return nil, fmt.Errorf("candidate count must be positive, got %d", total)
	case selectCount < 1 || selectCount > total:
		return nil, fmt.Errorf("select count must be between 1 and %d, got %d", total, selectCount)
	case len(qs) == 0:
		return nil, questions.ErrNoQuestions
	}

	candidates := make([]Candidate, total)
	for i := range candidates {
		candidates[i] = Candidate{
			ID:     fmt.Sprintf("candidate-%d", i+1),
			Name:   fmt.Sprintf("Candidate %d", i+1),
			Email:  fmt.Sprintf("candidate%d@example.com", i+1),
			Status: CandidatePending,
		}
	}

	return &Campaign{
		ID:          uuid.NewString(),
		Company:     company,
		Stack:       strings.TrimSpace(stack),
		Questions:   append([]questions.Question(nil), qs...),
		Candidates:  candidates,
		SelectCount: selectCount,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// JoinLink is the invitation URL candidates open.
func (c *Campaign) JoinLink(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/join/" + c.ID
}

// NextCandidate marks the first pending candidate as interviewing.
func (c *Campaign) NextCandidate() (*Candidate, error) {
	if c.Status == StatusCompleted {
		return nil, ErrCampaignClosed
	}
	for i := range c.Candidates {
		if c.Candidates[i].Status == CandidatePending {
			c.Candidates[i].Status = CandidateInterviewing
			c.Candidates[i].StartedAt = time.Now().UTC()
			return &c.Candidates[i], nil
		}
	}
	return nil, ErrNoPendingCandidates
}

// Record stores a finished interview for candidateID. The last completed
// candidate closes the campaign and ranks everyone.
func (c *Campaign) Record(candidateID, sessionID string, r interview.Report) error {
	if c.Status == StatusCompleted {
		return ErrCampaignClosed
	}
	idx := slices.IndexFunc(c.Candidates, func(cand Candidate) bool { return cand.ID == candidateID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
	}

	cand := &c.Candidates[idx]
	cand.Answers = append([]interview.Answer(nil), r.Answers...)
	cand.Score = percentScore(r.Answers)
	cand.Status = CandidateCompleted
	cand.SessionID = sessionID
	cand.CompletedAt = time.Now().UTC()

	if c.allCompleted() {
		c.rank()
	}
	return nil
}

// Reset returns an interviewing candidate to pending after an abandoned interview.
func (c *Campaign) Reset(candidateID string) error {
	idx := slices.IndexFunc(c.Candidates, func(cand Candidate) bool { return cand.ID == candidateID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
	}
	if c.Candidates[idx].Status == CandidateInterviewing {
		c.Candidates[idx].Status = CandidatePending
		c.Candidates[idx].StartedAt = time.Time{}
	}
	return nil
}

// Progress reports finished candidates over the pool size.
func (c *Campaign) Progress() (done, total int) {
	for _, cand := range c.Candidates {
		if cand.Status != CandidatePending && cand.Status != CandidateInterviewing {
			done++
		}
	}
	return done, len(c.Candidates)
}

// AverageScore is the mean candidate percentage, rounded.
func (c *Campaign) AverageScore() int {
	if len(c.Candidates) == 0 {
		return 0
	}
	sum := 0
	for _, cand := range c.Candidates {
		sum += cand.Score
	}
	return int(math.Round(float64(sum) / float64(len(c.Candidates))))
}

// Ranking returns candidates ordered by score, ties in pool order.
func (c *Campaign) Ranking() []Candidate {
	out := append([]Candidate(nil), c.Candidates...)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// Selected returns the candidates chosen at ranking time.
func (c *Campaign) Selected() []Candidate {
	var out []Candidate
	for _, cand := range c.Ranking() {
		if cand.Status == CandidateSelected {
			out = append(out, cand)
		}
	}
	return out
}

func (c *Campaign) allCompleted() bool {
	for _, cand := range c.Candidates {
		if cand.Status != CandidateCompleted {
			return false
		}
	}
	return true
}

func (c *Campaign) rank() {
	selected := make(map[string]bool, c.SelectCount)
	for i, cand := range c.Ranking() {
		if i >= c.SelectCount {
			break
		}
		selected[cand.ID] = true
	}
	for i := range c.Candidates {
		if selected[c.Candidates[i].ID] {
			c.Candidates[i].Status = CandidateSelected
		} else {
			c.Candidates[i].Status = CandidateRejected
		}
	}
	c.Status = StatusCompleted
	c.CompletedAt = time.Now().UTC()
}

func percentScore(answers []interview.Answer) int {
	if len(answers) == 0 {
		return 0
	}
	var sum float64
	for _, a := range answers {
		sum += score.ToPercent(a.Score)
	}
	return int(math.Round(sum / float64(len(answers))))
}
