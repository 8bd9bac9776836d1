package entity

import "time"

type Rating struct {
	ID          string    `json:"id" firestore:"id"`
	DoubtID     string    `json:"doubt_id" firestore:"doubtId"`
	FacultyID   string    `json:"faculty_id" firestore:"facultyId"`
	StudentID   string    `json:"student_id" firestore:"studentId"`
	PaperID     string    `json:"paper_id" firestore:"paperId"`
	Rating      int       `json:"rating" firestore:"rating"`
	Comment     string    `json:"comment" firestore:"comment"`
	SubmittedAt time.Time `json:"submitted_at" firestore:"submittedAt,serverTimestamp"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// RatingSummary is the read-time view of a faculty member's aggregate.
type RatingSummary struct {
	FacultyID     string   `json:"faculty_id"`
	TotalRating   int      `json:"total_rating"`
	RatingCount   int      `json:"rating_count"`
	AverageRating *float64 `json:"average_rating"`
}
