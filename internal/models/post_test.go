package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReviewStatusFor(t *testing.T) {
	now := time.Date(2024, time.June, 5, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	tests := []struct {
		name       string
		lastReview *time.Time
		want       string
	}{
		{"unset is never", nil, ReviewNever},
		{"ten days ago is recent", ago(10 * 24 * time.Hour), ReviewRecent},
		{"just under thirty days is recent", ago(30*24*time.Hour - time.Hour), ReviewRecent},
		{"exactly thirty days is old", ago(30 * 24 * time.Hour), ReviewOld},
		{"forty days ago is old", ago(40 * 24 * time.Hour), ReviewOld},
		{"reviewed right now is recent", ago(0), ReviewRecent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReviewStatusFor(tt.lastReview, now))
		})
	}
}

func TestRefreshReviewStatus(t *testing.T) {
	now := time.Now()
	post := Post{ReviewStatus: ReviewOld}

	post.RefreshReviewStatus(now)
	assert.Equal(t, ReviewNever, post.ReviewStatus)

	stamp := now.Add(-24 * time.Hour)
	post.LastReviewDate = &stamp
	post.RefreshReviewStatus(now)
	assert.Equal(t, ReviewRecent, post.ReviewStatus)

	old := now.AddDate(0, 0, -45)
	post.LastReviewDate = &old
	post.RefreshReviewStatus(now)
	assert.Equal(t, ReviewOld, post.ReviewStatus)
}
