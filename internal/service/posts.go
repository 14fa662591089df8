package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postwatch/postwatch/internal/models"
)

// Allowed page sizes for post listings; anything else falls back to the default.
var perPageAllowList = []int{10, 25, 50, 100}

const defaultPerPage = 10

// PostQuery describes the list/filter parameters. All supplied filters are
// combined with AND. Date bounds are inclusive instants on last_modified.
type PostQuery struct {
	Page     int
	PerPage  int
	Category string
	Status   string
	Search   string
	Source   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// PostPage is one page of filtered posts plus the aggregates the filter UI
// needs: status counts over the filtered set, and the distinct categories
// and sources across the whole cache.
type PostPage struct {
	Posts        []models.Post    `json:"posts"`
	Page         int              `json:"page"`
	PerPage      int              `json:"per_page"`
	Total        int64            `json:"total"`
	StatusCounts map[string]int64 `json:"status_counts"`
	Categories   []string         `json:"categories"`
	Sources      []string         `json:"sources"`
}

// PostService owns the post cache: filtered listings, review stamps, the
// bulk mark-updated action and deletion.
type PostService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostService(db *gorm.DB, logger *zap.Logger) *PostService {
	return &PostService{db: db, logger: logger}
}

// NormalizePerPage maps an out-of-list page size to the default.
func NormalizePerPage(perPage int) int {
	for _, allowed := range perPageAllowList {
		if perPage == allowed {
			return perPage
		}
	}
	return defaultPerPage
}

func (s *PostService) filtered(q PostQuery) *gorm.DB {
	query := s.db.Model(&models.Post{})
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Status != "" {
		query = query.Where("review_status = ?", q.Status)
	}
	if q.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}
	if q.Source != "" {
		query = query.Where("source = ?", q.Source)
	}
	if q.DateFrom != nil {
		query = query.Where("last_modified >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("last_modified <= ?", *q.DateTo)
	}
	return query
}

func (s *PostService) List(q PostQuery) (*PostPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	q.PerPage = NormalizePerPage(q.PerPage)

	var total int64
	if err := s.filtered(q).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	var posts []models.Post
	err := s.filtered(q).
		Order("last_modified DESC, id DESC").
		Limit(q.PerPage).
		Offset((q.Page - 1) * q.PerPage).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	statusCounts, err := s.statusCounts(q)
	if err != nil {
		return nil, err
	}

	categories, err := s.distinct("category")
	if err != nil {
		return nil, err
	}
	sources, err := s.distinct("source")
	if err != nil {
		return nil, err
	}

	return &PostPage{
		Posts:        posts,
		Page:         q.Page,
		PerPage:      q.PerPage,
		Total:        total,
		StatusCounts: statusCounts,
		Categories:   categories,
		Sources:      sources,
	}, nil
}

// statusCounts aggregates review statuses over the filtered set, not the
// whole cache.
func (s *PostService) statusCounts(q PostQuery) (map[string]int64, error) {
	var rows []struct {
		ReviewStatus string
		Count        int64
	}
	err := s.filtered(q).
		Select("review_status, COUNT(*) AS count").
		Group("review_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}

	counts := map[string]int64{
		models.ReviewNever:  0,
		models.ReviewRecent: 0,
		models.ReviewOld:    0,
	}
	for _, row := range rows {
		counts[row.ReviewStatus] = row.Count
	}
	return counts, nil
}

func (s *PostService) distinct(column string) ([]string, error) {
	var values []string
	err := s.db.Model(&models.Post{}).
		Distinct(column).
		Order(column).
		Pluck(column, &values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s values: %w", column, err)
	}
	return values, nil
}

func (s *PostService) Get(id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// StampReviewed sets the post's last review timestamp to now and recomputes
// the stored status.
func (s *PostService) StampReviewed(id uint) (*models.Post, error) {
	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post.LastReviewDate = &now
	post.RefreshReviewStatus(now)

	if err := s.db.Save(post).Error; err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return post, nil
}

// RecordReviewCard stores the created card id on the post and stamps the
// review timestamp, as a review card counts as a review.
func (s *PostService) RecordReviewCard(id uint, cardID string) (*models.Post, error) {
	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post.TrelloCardID = cardID
	post.LastReviewDate = &now
	post.RefreshReviewStatus(now)

	if err := s.db.Save(post).Error; err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return post, nil
}

// MarkRecentUpdated stamps every post whose source-side last_modified is
// within the review window and whose status is not already recent. Older
// posts are untouched even when never reviewed. Returns the number of posts
// stamped.
func (s *PostService) MarkRecentUpdated() (int, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -models.ReviewWindowDays)

	var posts []models.Post
	err := s.db.
		Where("last_modified >= ?", cutoff).
		Where("review_status <> ?", models.ReviewRecent).
		Find(&posts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query posts: %w", err)
	}

	updated := 0
	for i := range posts {
		stamp := now
		posts[i].LastReviewDate = &stamp
		posts[i].RefreshReviewStatus(now)
		if err := s.db.Save(&posts[i]).Error; err != nil {
			return updated, fmt.Errorf("failed to save post %d: %w", posts[i].ID, err)
		}
		updated++
	}

	s.logger.Info("Bulk review stamp completed", zap.Int("updated", updated))
	return updated, nil
}

func (s *PostService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		s.logger.Info("Deleted post", zap.Uint("id", id), zap.String("url", post.URL))
		return nil
	})
}
