package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postwatch/postwatch/internal/config"
	"github.com/postwatch/postwatch/internal/models"
)

const wpListing = `[
  {
    "link": "https://blog.example.com/how-to-schedule",
    "title": {"rendered": "How to schedule appointments"},
    "modified": "2024-05-20T10:30:00",
    "categories": [35]
  },
  {
    "link": "https://blog.example.com/getting-started",
    "title": {"rendered": "Getting started"},
    "modified": "2024-05-18T08:00:00",
    "categories": []
  }
]`

func newFeedService(t *testing.T, endpoints ...string) *FeedService {
	t.Helper()
	return NewFeedService(&config.FeedsConfig{Endpoints: endpoints}, newTestDB(t), testLogger())
}

func TestSyncAllCachesPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(wpListing))
	}))
	defer srv.Close()

	feed := newFeedService(t, srv.URL+"/wp-json/wp/v2/posts")
	require.NoError(t, feed.SyncAll())

	var posts []models.Post
	require.NoError(t, feed.db.Order("id").Find(&posts).Error)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal(t, "How to schedule appointments", first.Title)
	assert.Equal(t, "https://blog.example.com/how-to-schedule", first.URL)
	assert.Equal(t, "35", first.Category)
	assert.Equal(t, srv.Listener.Addr().String(), first.Source)
	assert.Equal(t, models.ReviewNever, first.ReviewStatus)
	assert.Nil(t, first.LastReviewDate)
	assert.Equal(t, 2024, first.LastModified.Year())

	// No category list falls back to the sentinel.
	assert.Equal(t, UncategorizedCategory, posts[1].Category)
}

func TestSyncAllUpsertIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(wpListing))
	}))
	defer srv.Close()

	feed := newFeedService(t, srv.URL)
	require.NoError(t, feed.SyncAll())
	require.NoError(t, feed.SyncAll())

	var count int64
	require.NoError(t, feed.db.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSyncAllPreservesReviewFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(wpListing))
	}))
	defer srv.Close()

	feed := newFeedService(t, srv.URL)
	require.NoError(t, feed.SyncAll())

	// Stamp a review, then sync again; the stamp must survive.
	posts := NewPostService(feed.db, testLogger())
	var post models.Post
	require.NoError(t, feed.db.Where("url = ?", "https://blog.example.com/how-to-schedule").First(&post).Error)
	stamped, err := posts.StampReviewed(post.ID)
	require.NoError(t, err)
	require.NotNil(t, stamped.LastReviewDate)

	require.NoError(t, feed.SyncAll())

	var after models.Post
	require.NoError(t, feed.db.First(&after, post.ID).Error)
	require.NotNil(t, after.LastReviewDate)
	assert.WithinDuration(t, *stamped.LastReviewDate, *after.LastReviewDate, time.Second)
	assert.Equal(t, models.ReviewRecent, after.ReviewStatus)
}

func TestSyncAllSkipsFailingEndpoint(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(wpListing))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	feed := newFeedService(t, bad.URL, good.URL)
	require.NoError(t, feed.SyncAll())

	var count int64
	require.NoError(t, feed.db.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestParseFeedTime(t *testing.T) {
	zoneless, err := parseFeedTime("2024-05-20T10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.May, zoneless.Month())

	rfc, err := parseFeedTime("2024-05-20T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, rfc.Hour())

	_, err = parseFeedTime("yesterday")
	assert.Error(t, err)
}
