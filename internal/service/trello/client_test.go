package trello

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/postwatch/postwatch/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.TrelloConfig{
		BaseURL: srv.URL,
		Key:     "k",
		Token:   "t",
		BoardID: "board1",
		ListID:  "list1",
	}
	return NewClient(cfg, zap.NewNop()), srv
}

func TestCreateCard(t *testing.T) {
	var gotBody map[string]any
	var gotQuery map[string][]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cards", r.URL.Path)
		gotQuery = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Card{ID: "abc123"})
	})

	due := time.Date(2024, time.June, 10, 23, 59, 59, 0, time.UTC)
	cardID, err := client.CreateCard("Review post: X", "desc", &due)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cardID)

	assert.Equal(t, "list1", gotBody["idList"])
	assert.Equal(t, "Review post: X", gotBody["name"])
	assert.Equal(t, due.Format(time.RFC3339), gotBody["due"])
	assert.Equal(t, []string{"k"}, gotQuery["key"])
	assert.Equal(t, []string{"t"}, gotQuery["token"])
}

func TestCreateCardErrorIsSurfaced(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	_, err := client.CreateCard("x", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAssignMemberAndAddLabel(t *testing.T) {
	var paths []string
	var values []string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		values = append(values, r.URL.Query().Get("value"))
		w.Write([]byte("{}"))
	})

	require.NoError(t, client.AssignMember("abc", "m1"))
	require.NoError(t, client.AddLabel("abc", "l1"))

	assert.Equal(t, []string{"/cards/abc/idMembers", "/cards/abc/idLabels"}, paths)
	assert.Equal(t, []string{"m1", "l1"}, values)
}

func TestListMembers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/boards/board1/members", r.URL.Path)
		json.NewEncoder(w).Encode([]Member{
			{ID: "m1", FullName: "Ana Lima", Username: "ana"},
		})
	})

	members, err := client.ListMembers()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ana Lima", members[0].FullName)
}
