package entity

import (
	"fmt"
	"time"
)

type DoubtStatus string

const (
	DoubtStatusUnassigned DoubtStatus = "unassigned"
	DoubtStatusAssigned   DoubtStatus = "assigned"
	DoubtStatusResolved   DoubtStatus = "resolved"
)

// Rank orders statuses the way faculty lists show them.
func (s DoubtStatus) Rank() int {
	switch s {
	case DoubtStatusUnassigned:
		return 0
	case DoubtStatusAssigned:
		return 1
	case DoubtStatusResolved:
		return 2
	}
	return 3
}

type Doubt struct {
	ID                string      `json:"id" firestore:"id"`
	Title             string      `json:"title" firestore:"title"`
	PaperID           string      `json:"paper_id" firestore:"paperId"`
	StudentID         string      `json:"student_id" firestore:"studentId"`
	Status            DoubtStatus `json:"status" firestore:"status"`
	AssignedFacultyID string      `json:"assigned_faculty_id,omitempty" firestore:"assignedFacultyId"`
	CreatedAt         time.Time   `json:"created_at" firestore:"createdAt"`
	SLADeadline       *time.Time  `json:"sla_deadline,omitempty" firestore:"slaDeadline"`
	Rated             bool        `json:"rated" firestore:"rated"`
	ResolvedBy        string      `json:"resolved_by,omitempty" firestore:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty" firestore:"resolvedAt,omitempty"`
	ImageURL          string      `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	HasScreenshot     bool        `json:"has_screenshot" firestore:"hasScreenshot"`
}

// Validate checks the lifecycle invariants of a stored doubt.
func (d *Doubt) Validate() error {
	switch d.Status {
	case DoubtStatusUnassigned:
		if d.AssignedFacultyID != "" {
			return fmt.Errorf("doubt %s: unassigned with faculty %s", d.ID, d.AssignedFacultyID)
		}
	case DoubtStatusAssigned, DoubtStatusResolved:
		if d.AssignedFacultyID == "" {
			return fmt.Errorf("doubt %s: %s without faculty", d.ID, d.Status)
		}
	default:
		return fmt.Errorf("doubt %s: unknown status %q", d.ID, d.Status)
	}
	if d.Rated && d.Status != DoubtStatusResolved {
		return fmt.Errorf("doubt %s: rated while %s", d.ID, d.Status)
	}
	return nil
}

func (d *Doubt) IsBreached(now time.Time) bool {
	return d.SLADeadline != nil && now.After(*d.SLADeadline)
}

// AwaitingRating is true once a faculty-resolved doubt can be rated by its student.
func (d *Doubt) AwaitingRating() bool {
	return d.Status == DoubtStatusResolved && !d.Rated && d.AssignedFacultyID != ""
}

func (d *Doubt) ChatRef() ChatRef {
	return ChatRef{Kind: ChatKindDoubt, ChatID: d.ID}
}
