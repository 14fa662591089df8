package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/postwatch/postwatch/internal/service/schedule"
	"github.com/postwatch/postwatch/internal/service/trello"
)

// ValidationError marks a request rejected before any side effect.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErr(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Board is the capability surface of the task board. The live implementation
// is trello.Client; tests substitute a fake.
type Board interface {
	CreateCard(name, desc string, due *time.Time) (string, error)
	AssignMember(cardID, memberID string) error
	AddLabel(cardID, labelID string) error
	ListMembers() ([]trello.Member, error)
}

// Card types for independent (non post-bound) cards.
type CardType string

const (
	CardTypePost     CardType = "post"
	CardTypeTutorial CardType = "tutorial"
	CardTypeTask     CardType = "task"
	CardTypeCanva    CardType = "canva"
)

const (
	CanvaTypePost  = "post"
	CanvaTypeStory = "story"
)

// CardService turns review and content requests into board cards.
type CardService struct {
	board  Board
	posts  *PostService
	logger *zap.Logger
}

func NewCardService(board Board, posts *PostService, logger *zap.Logger) *CardService {
	return &CardService{
		board:  board,
		posts:  posts,
		logger: logger,
	}
}

type ReviewCardRequest struct {
	PostID      uint
	AssigneeID  string
	DueDate     *time.Time
	Labels      []string
	Description string
}

// CreateReviewCard creates a review card for a cached post. On success the
// post's review timestamp is stamped and its status recomputed; a gateway
// failure surfaces as-is and leaves the post unstamped.
func (s *CardService) CreateReviewCard(req ReviewCardRequest) (string, error) {
	post, err := s.posts.Get(req.PostID)
	if err != nil {
		return "", err
	}

	assigneeName := "Unassigned"
	if req.AssigneeID != "" {
		members, err := s.board.ListMembers()
		if err != nil {
			return "", fmt.Errorf("failed to list board members: %w", err)
		}
		for _, member := range members {
			if member.ID == req.AssigneeID {
				assigneeName = member.FullName
				break
			}
		}
	}

	dueText := "none"
	if req.DueDate != nil {
		dueText = req.DueDate.Format("2006-01-02")
	}

	name := "Review post: " + post.Title
	desc := fmt.Sprintf("Original post: %s\nAssignee: %s\nDue: %s\n\nContent to review:\n\n%s",
		post.URL, assigneeName, dueText, req.Description)

	cardID, err := s.board.CreateCard(name, desc, req.DueDate)
	if err != nil {
		return "", err
	}

	if req.AssigneeID != "" {
		if err := s.board.AssignMember(cardID, req.AssigneeID); err != nil {
			return "", err
		}
	}
	for _, label := range req.Labels {
		if err := s.board.AddLabel(cardID, label); err != nil {
			return "", err
		}
	}

	if _, err := s.posts.RecordReviewCard(post.ID, cardID); err != nil {
		return "", err
	}

	s.logger.Info("Created review card",
		zap.Uint("post_id", post.ID),
		zap.String("card_id", cardID))
	return cardID, nil
}

type IndependentCardRequest struct {
	Type        CardType
	CanvaType   string
	Title       string
	Link        string
	Source      string
	AssigneeID  string
	DueDate     *time.Time
	Description string
}

// CreateIndependentCard creates a card that is not tied to a cached post.
// Title and description are composed from a fixed template per card type.
func (s *CardService) CreateIndependentCard(req IndependentCardRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", validationErr("card title is required")
	}

	name, desc, err := composeCard(req)
	if err != nil {
		return "", err
	}

	cardID, err := s.board.CreateCard(name, desc, req.DueDate)
	if err != nil {
		return "", err
	}

	if req.AssigneeID != "" {
		if err := s.board.AssignMember(cardID, req.AssigneeID); err != nil {
			return "", err
		}
	}

	s.logger.Info("Created card",
		zap.String("card_type", string(req.Type)),
		zap.String("card_id", cardID))
	return cardID, nil
}

func composeCard(req IndependentCardRequest) (string, string, error) {
	var name, brief string

	switch req.Type {
	case CardTypePost:
		name = "Publish post: " + req.Title
		brief = "Write and publish the blog post."
	case CardTypeTutorial:
		name = "Record tutorial: " + req.Title
		brief = "Record and edit the tutorial video."
	case CardTypeTask:
		name = req.Title
		brief = "General editorial task."
	case CardTypeCanva:
		switch req.CanvaType {
		case CanvaTypePost, CanvaTypeStory:
			name = fmt.Sprintf("Canva %s: %s", req.CanvaType, req.Title)
			brief = fmt.Sprintf("Design the Canva %s artwork.", req.CanvaType)
		default:
			return "", "", validationErr("unknown canva type: %q", req.CanvaType)
		}
	default:
		return "", "", validationErr("unknown card type: %q", req.Type)
	}

	var lines []string
	lines = append(lines, brief)
	if req.Link != "" {
		lines = append(lines, "Reference: "+req.Link)
	}
	if req.Source != "" {
		lines = append(lines, "Source: "+req.Source)
	}
	if req.Description != "" {
		lines = append(lines, "", req.Description)
	}

	return name, strings.Join(lines, "\n"), nil
}

type BatchCardRequest struct {
	Title        string
	Index        int
	Type         CardType
	CanvaType    string
	AssigneeIDs  []string
	Distribution schedule.Mode
	StartWeekday int
	StartDate    *time.Time
	EndDate      *time.Time
	Description  string
}

// CreateBatchCard handles one item of a batch. The caller invokes it once
// per title with the item's position; each invocation is independent, so a
// failed card never blocks the rest of the batch.
func (s *CardService) CreateBatchCard(req BatchCardRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", validationErr("batch item title is required")
	}
	if req.Index < 0 {
		return "", validationErr("batch item index must not be negative")
	}

	days, err := s.eligibleDays(req)
	if err != nil {
		return "", err
	}

	assignee, due := schedule.Distribute(req.Index, req.AssigneeIDs, days)

	cardType := req.Type
	if cardType == "" {
		cardType = CardTypePost
	}

	return s.CreateIndependentCard(IndependentCardRequest{
		Type:        cardType,
		CanvaType:   req.CanvaType,
		Title:       req.Title,
		AssigneeID:  assignee,
		DueDate:     due,
		Description: req.Description,
	})
}

func (s *CardService) eligibleDays(req BatchCardRequest) ([]time.Time, error) {
	switch req.Distribution {
	case schedule.ModeNone, "":
		return nil, nil
	case schedule.ModeWeekly:
		days, err := schedule.WeeklyPool(req.StartWeekday, time.Now())
		if err != nil {
			return nil, validationErr("%s", err.Error())
		}
		return days, nil
	case schedule.ModePeriod:
		if req.StartDate == nil || req.EndDate == nil {
			return nil, validationErr("period distribution requires start and end dates")
		}
		if req.EndDate.Before(*req.StartDate) {
			return nil, validationErr("period end date is before start date")
		}
		return schedule.PeriodPool(*req.StartDate, *req.EndDate), nil
	default:
		return nil, validationErr("unknown distribution mode: %q", req.Distribution)
	}
}

// Members returns the board's member list for assignee pickers.
func (s *CardService) Members() ([]trello.Member, error) {
	return s.board.ListMembers()
}
