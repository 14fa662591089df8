// Package trello is a thin client for the Trello REST API, covering only
// the card and member operations the dashboard needs.
package trello

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/postwatch/postwatch/internal/config"
)

type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ShortURL string `json:"shortUrl"`
}

type Client struct {
	config *config.TrelloConfig
	logger *zap.Logger
	client *http.Client
}

func NewClient(cfg *config.TrelloConfig, logger *zap.Logger) *Client {
	tr := &http.Transport{
		IdleConnTimeout:       120 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   20 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}
	return &Client{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		},
	}
}

// endpoint builds an API URL with key/token auth and extra query parameters.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.config.Key)
	params.Set("token", c.config.Token)
	return fmt.Sprintf("%s%s?%s", c.config.BaseURL, path, params.Encode())
}

func (c *Client) do(method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("trello API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CreateCard adds a card to the configured list and returns its id.
func (c *Client) CreateCard(name, desc string, due *time.Time) (string, error) {
	body := map[string]any{
		"idList": c.config.ListID,
		"name":   name,
		"desc":   desc,
	}
	if due != nil {
		body["due"] = due.Format(time.RFC3339)
	}

	var card Card
	if err := c.do(http.MethodPost, c.endpoint("/cards", nil), body, &card); err != nil {
		return "", err
	}

	c.logger.Info("Created Trello card",
		zap.String("card_id", card.ID),
		zap.String("name", name))
	return card.ID, nil
}

// AssignMember adds a board member to a card.
func (c *Client) AssignMember(cardID, memberID string) error {
	params := url.Values{}
	params.Set("value", memberID)
	return c.do(http.MethodPost, c.endpoint("/cards/"+cardID+"/idMembers", params), nil, nil)
}

// AddLabel attaches an existing label to a card.
func (c *Client) AddLabel(cardID, labelID string) error {
	params := url.Values{}
	params.Set("value", labelID)
	return c.do(http.MethodPost, c.endpoint("/cards/"+cardID+"/idLabels", params), nil, nil)
}

// ListMembers returns the members of the configured board. Members are
// looked up per request and never cached.
func (c *Client) ListMembers() ([]Member, error) {
	params := url.Values{}
	params.Set("fields", "fullName,username")

	var members []Member
	endpoint := c.endpoint("/boards/"+c.config.BoardID+"/members", params)
	if err := c.do(http.MethodGet, endpoint, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}
