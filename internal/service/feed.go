package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postwatch/postwatch/internal/config"
	"github.com/postwatch/postwatch/internal/models"
)

// UncategorizedCategory is used when a feed entry carries no category list.
const UncategorizedCategory = "uncategorized"

// FeedService pulls post listings from the configured WordPress endpoints
// and upserts them into the post cache.
type FeedService struct {
	config *config.FeedsConfig
	db     *gorm.DB
	logger *zap.Logger
	client *http.Client
}

// feedEntry is the subset of a WordPress REST listing entry we consume.
type feedEntry struct {
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Modified   string `json:"modified"`
	Categories []any  `json:"categories"`
}

func NewFeedService(cfg *config.FeedsConfig, db *gorm.DB, logger *zap.Logger) *FeedService {
	return &FeedService{
		config: cfg,
		db:     db,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SyncAll fetches every configured endpoint. A failing endpoint is logged
// and skipped; the remaining endpoints are still processed.
func (s *FeedService) SyncAll() error {
	s.logger.Info("Starting feed sync", zap.Int("endpoints", len(s.config.Endpoints)))

	for _, endpoint := range s.config.Endpoints {
		if err := s.syncEndpoint(endpoint); err != nil {
			s.logger.Error("Failed to sync feed endpoint",
				zap.String("endpoint", endpoint),
				zap.Error(err))
			continue
		}
	}

	s.logger.Info("Feed sync completed")
	return nil
}

func (s *FeedService) syncEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	source := parsed.Host

	resp, err := s.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var entries []feedEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode feed: %w", err)
	}

	for _, entry := range entries {
		if err := s.upsertPost(entry, source); err != nil {
			s.logger.Error("Failed to upsert post",
				zap.String("url", entry.Link),
				zap.Error(err))
			continue
		}
	}

	return nil
}

// upsertPost applies the cache upsert rule: a new permalink is inserted with
// review status "never"; an existing one gets title, last-modified and
// category overwritten while its review timestamp is left untouched.
func (s *FeedService) upsertPost(entry feedEntry, source string) error {
	if entry.Link == "" {
		return errors.New("feed entry has no link")
	}

	lastModified, err := parseFeedTime(entry.Modified)
	if err != nil {
		return fmt.Errorf("failed to parse modified time: %w", err)
	}

	category := UncategorizedCategory
	if len(entry.Categories) > 0 {
		category = fmt.Sprint(entry.Categories[0])
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Post
		result := tx.Where("url = ?", entry.Link).First(&existing)

		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to query existing post: %w", result.Error)
		}

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			newPost := models.Post{
				Title:        entry.Title.Rendered,
				URL:          entry.Link,
				LastModified: lastModified,
				Category:     category,
				Source:       source,
				ReviewStatus: models.ReviewNever,
			}
			if err := tx.Create(&newPost).Error; err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
			s.logger.Info("Cached new post",
				zap.String("url", entry.Link),
				zap.String("title", newPost.Title))
			return nil
		}

		existing.Title = entry.Title.Rendered
		existing.LastModified = lastModified
		existing.Category = category
		// Review fields are owned by review actions, not by sync.
		existing.RefreshReviewStatus(time.Now())

		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}
		return nil
	})
}

// parseFeedTime handles both RFC3339 and the zone-less timestamps WordPress
// emits for "modified".
func parseFeedTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}
