package entity

import "time"

type Role string

const (
	RoleStudent          Role = "student"
	RoleFaculty          Role = "faculty"
	RoleAdmin            Role = "admin"
	RoleSuperAdmin       Role = "superadmin"
	RoleTechnicalSupport Role = "technical_support"
	RoleCoordinator      Role = "coordinator"
)

// ParseRole maps unknown or empty values to RoleStudent, the least privileged role.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleFaculty, RoleAdmin, RoleSuperAdmin, RoleTechnicalSupport, RoleCoordinator:
		return r
	}
	return RoleStudent
}

func (r Role) IsStaff() bool {
	switch r {
	case RoleFaculty, RoleAdmin, RoleSuperAdmin, RoleTechnicalSupport, RoleCoordinator:
		return true
	}
	return false
}

type User struct {
	ID          string    `json:"id" firestore:"id"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	Role        Role      `json:"role" firestore:"role"`
	TeamIDs     []string  `json:"team_ids,omitempty" firestore:"teamIds,omitempty"`
	TotalRating int       `json:"total_rating" firestore:"totalRating"`
	RatingCount int       `json:"rating_count" firestore:"ratingCount"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// AverageRating is derived on read; nil when there are no ratings.
func (u *User) AverageRating() *float64 {
	if u.RatingCount == 0 {
		return nil
	}
	avg := float64(u.TotalRating) / float64(u.RatingCount)
	return &avg
}

func (u *User) RatingSummary() RatingSummary {
	return RatingSummary{
		FacultyID:     u.ID,
		TotalRating:   u.TotalRating,
		RatingCount:   u.RatingCount,
		AverageRating: u.AverageRating(),
	}
}
