package models

import (
	"time"
)

// Review status values for a cached post.
const (
	ReviewNever  = "never"
	ReviewRecent = "recent"
	ReviewOld    = "old"
)

// ReviewWindowDays is the age at which a review stops counting as recent.
const ReviewWindowDays = 30

// Post is one cached blog post, keyed by its permalink.
type Post struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null;size:500" json:"title"`
	URL            string     `gorm:"uniqueIndex;not null;size:500" json:"url"`
	LastModified   time.Time  `gorm:"not null;index" json:"last_modified"`
	Category       string     `gorm:"not null;size:100;index" json:"category"`
	Source         string     `gorm:"not null;size:100;index" json:"source"`
	TrelloCardID   string     `gorm:"size:100" json:"trello_card_id"`
	LastReviewDate *time.Time `json:"last_review_date"`
	ReviewStatus   string     `gorm:"size:50;default:'never';index" json:"review_status"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReviewStatusFor derives the review status from the last review timestamp.
// The result is stored on the post and only recomputed at mutation points
// (sync upsert, review stamp, card creation), never on read.
func ReviewStatusFor(lastReview *time.Time, now time.Time) string {
	if lastReview == nil {
		return ReviewNever
	}
	days := int(now.Sub(*lastReview).Hours() / 24)
	if days < ReviewWindowDays {
		return ReviewRecent
	}
	return ReviewOld
}

// RefreshReviewStatus recomputes the stored status from the post's own
// last review timestamp.
func (p *Post) RefreshReviewStatus(now time.Time) {
	p.ReviewStatus = ReviewStatusFor(p.LastReviewDate, now)
}
