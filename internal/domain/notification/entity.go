// Package notification содержит запись уведомления, которую создаёт ядро.
// Доставка (email, push) выполняется вне сервиса.
package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип уведомления.
type Type string

const (
	// TypeJobMatch - студент подходит под новую вакансию.
	TypeJobMatch Type = "job_match"
)

// IsValid проверяет корректность типа.
func (t Type) IsValid() bool {
	return t == TypeJobMatch
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Notification - запись уведомления. После создания меняется только IsRead.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// JobMatchParams - параметры уведомления о подходящей вакансии.
type JobMatchParams struct {
	ID         string
	UserID     string
	JobID      string
	CompanyID  string
	JobTitle   string
	MatchScore float64
}

// NewJobMatch создаёт уведомление типа job_match.
func NewJobMatch(p JobMatchParams) (*Notification, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, errors.New("notification id is required")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return nil, errors.New("notification recipient is required")
	}
	if strings.TrimSpace(p.JobID) == "" {
		return nil, errors.New("job id is required for job_match")
	}

	title := "New job match"
	if p.JobTitle != "" {
		title = "New job match: " + p.JobTitle
	}

	return &Notification{
		ID:        p.ID,
		UserID:    p.UserID,
		Type:      TypeJobMatch,
		JobID:     p.JobID,
		CompanyID: p.CompanyID,
		Title:     title,
		Message:   fmt.Sprintf("Your profile matches this job with a score of %.0f/100.", p.MatchScore),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MarkRead отмечает уведомление прочитанным.
func (n *Notification) MarkRead() {
	n.IsRead = true
}
