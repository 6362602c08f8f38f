package documents

import (
	"time"

	"docflow-backend/internal/shared/apperr"
)

// ReviewUpdate is the complete set of fields a review writes. Repos apply it
// as one statement so status and reviewer attribution never diverge.
type ReviewUpdate struct {
	Status     Status
	ReviewedBy string
	// ReviewDate is nil when the existing value must be kept.
	ReviewDate *time.Time
	// ReviewComments is nil when the existing value must be kept.
	ReviewComments *string
	UpdatedAt      time.Time
}

// Transition computes the update for a validated review decision. Any
// current status may be re-reviewed.
func Transition(in ReviewInput, reviewerID string, now time.Time) (ReviewUpdate, error) {
	to := Status(in.Status)
	if to == StatusPending || !to.Valid() {
		return ReviewUpdate{}, apperr.Fields{{Field: "status", Message: fieldMessages["status"]}}.Err()
	}
	u := ReviewUpdate{Status: to, ReviewedBy: reviewerID, UpdatedAt: now}
	if to.Decided() {
		at := now
		u.ReviewDate = &at
	}
	if in.ReviewComments != "" {
		c := in.ReviewComments
		u.ReviewComments = &c
	}
	return u, nil
}

// Apply returns d with the review fields set.
func (u ReviewUpdate) Apply(d Document) Document {
	d.Status = u.Status
	reviewer := u.ReviewedBy
	d.ReviewedBy = &reviewer
	if u.ReviewDate != nil {
		at := *u.ReviewDate
		d.ReviewDate = &at
	}
	if u.ReviewComments != nil {
		d.ReviewComments = *u.ReviewComments
	}
	d.UpdatedAt = u.UpdatedAt
	return d
}
