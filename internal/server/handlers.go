package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/postwatch/postwatch/internal/service"
	"github.com/postwatch/postwatch/internal/service/schedule"
)

const dateLayout = "2006-01-02"

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		TOTPCode string `json:"totp_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.AuthService.Login(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		s.Logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.SetCookie("auth_token", token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie("auth_token"); err == nil {
		s.AuthService.Logout(token)
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleSyncPosts(c *gin.Context) {
	if err := s.FeedService.SyncAll(); err != nil {
		s.Logger.Error("Failed to sync posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))

	query := service.PostQuery{
		Page:     page,
		PerPage:  perPage,
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Source:   c.Query("source"),
	}

	if from := c.Query("date_from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from"})
			return
		}
		query.DateFrom = &t
	}
	if to := c.Query("date_to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to"})
			return
		}
		end := inclusiveDateEnd(t)
		query.DateTo = &end
	}

	result, err := s.PostService.List(query)
	if err != nil {
		s.Logger.Error("Failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStampReview(c *gin.Context) {
	id, ok := s.postID(c)
	if !ok {
		return
	}

	post, err := s.PostService.StampReviewed(id)
	if err != nil {
		s.postError(c, err, "Failed to stamp review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

func (s *Server) handleMarkUpdated(c *gin.Context) {
	updated, err := s.PostService.MarkRecentUpdated()
	if err != nil {
		s.Logger.Error("Failed to mark updated posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark updated posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id, ok := s.postID(c)
	if !ok {
		return
	}

	if err := s.PostService.Delete(id); err != nil {
		s.postError(c, err, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCreateReviewCard(c *gin.Context) {
	id, ok := s.postID(c)
	if !ok {
		return
	}

	var req struct {
		Assignee    string   `json:"assignee"`
		DueDate     string   `json:"due_date"`
		Labels      []string `json:"labels"`
		Description string   `json:"description"`
	}
	// Every field is optional; an empty body means a bare review card.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date"})
		return
	}

	cardID, err := s.CardService.CreateReviewCard(service.ReviewCardRequest{
		PostID:      id,
		AssigneeID:  req.Assignee,
		DueDate:     due,
		Labels:      req.Labels,
		Description: req.Description,
	})
	if err != nil {
		s.cardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card_id": cardID})
}

func (s *Server) handleCreateCard(c *gin.Context) {
	var req struct {
		CardType    string `json:"card_type" binding:"required"`
		CanvaType   string `json:"canva_type"`
		Title       string `json:"title" binding:"required"`
		Link        string `json:"link"`
		Source      string `json:"source"`
		Assignee    string `json:"assignee"`
		DueDate     string `json:"due_date"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date"})
		return
	}

	cardID, err := s.CardService.CreateIndependentCard(service.IndependentCardRequest{
		Type:        service.CardType(req.CardType),
		CanvaType:   req.CanvaType,
		Title:       req.Title,
		Link:        req.Link,
		Source:      req.Source,
		AssigneeID:  req.Assignee,
		DueDate:     due,
		Description: req.Description,
	})
	if err != nil {
		s.cardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card_id": cardID})
}

func (s *Server) handleCreateBatchCard(c *gin.Context) {
	var req struct {
		Title        string   `json:"title" binding:"required"`
		CardIndex    int      `json:"card_index"`
		CardType     string   `json:"card_type"`
		CanvaType    string   `json:"canva_type"`
		Assignees    []string `json:"assignees"`
		Distribution string   `json:"distribution"`
		StartWeekday int      `json:"start_weekday"`
		StartDate    string   `json:"start_date"`
		EndDate      string   `json:"end_date"`
		Description  string   `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := service.BatchCardRequest{
		Title:        req.Title,
		Index:        req.CardIndex,
		Type:         service.CardType(req.CardType),
		CanvaType:    req.CanvaType,
		AssigneeIDs:  req.Assignees,
		Distribution: schedule.Mode(req.Distribution),
		StartWeekday: req.StartWeekday,
		Description:  req.Description,
	}

	if req.StartDate != "" {
		t, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
			return
		}
		batch.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date"})
			return
		}
		batch.EndDate = &t
	}

	cardID, err := s.CardService.CreateBatchCard(batch)
	if err != nil {
		s.cardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card_id": cardID})
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.CardService.Members()
	if err != nil {
		s.Logger.Error("Failed to list board members", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) postError(c *gin.Context, err error, msg string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	s.Logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// cardError surfaces not-found as 404, validation failures as 400 and
// gateway errors verbatim as 502.
func (s *Server) cardError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Error("Card creation failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// inclusiveDateEnd turns a calendar date into the last representable instant
// of that day, so timestamps with sub-second precision still match.
func inclusiveDateEnd(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func parseDueDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %w", err)
	}
	// Date-only deadlines land at end of day.
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.Local)
	return &end, nil
}
