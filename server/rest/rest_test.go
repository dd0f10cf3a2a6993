package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollbox/api.pollbox.app/poll"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	Routes(app, poll.NewService(poll.NewMemStore()))
	return app
}

type envelope struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	ExpiresAt string          `json:"expiresAt"`
	Data      json.RawMessage `json:"data"`
}

func request(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	env := envelope{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func createPollRequestBody(question string, options []string, expiry int) map[string]interface{} {
	return map[string]interface{}{
		"question":    question,
		"options":     options,
		"expiry":      expiry,
		"hideResults": false,
		"isPrivate":   false,
	}
}

func createTestPoll(t *testing.T, app *fiber.App, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	status, env := request(t, app, http.MethodPost, "/api/polls", body)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	created := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.IsType(t, "", created["id"])
	return created
}

func TestCreatePollEndpoint(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("Best language?", []string{"Go", "Rust"}, 24))

	assert.Len(t, created["id"].(string), poll.PublicIDLength)
	assert.Equal(t, "Best language?", created["question"])

	reactions := created["reactions"].(map[string]interface{})
	assert.Equal(t, float64(0), reactions["likes"])
	assert.Equal(t, float64(0), reactions["trending"])
}

func TestCreatePollValidationEndpoint(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing question", createPollRequestBody("", []string{"a", "b"}, 1)},
		{"single option", createPollRequestBody("Q?", []string{"a"}, 1)},
		{"too many options", createPollRequestBody("Q?", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}, 1)},
		{"empty option", createPollRequestBody("Q?", []string{"a", " "}, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := request(t, app, http.MethodPost, "/api/polls", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestGetPollEndpoint(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("Q?", []string{"a", "b"}, 24))
	id := created["id"].(string)

	status, env := request(t, app, http.MethodGet, "/api/polls/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	data := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, false, data["hasExpired"])
	assert.Equal(t, "Q?", data["question"])

	status, env = request(t, app, http.MethodGet, "/api/polls/nosuchpoll", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Poll not found", env.Error)
}

func TestExpiredPollEndpoint(t *testing.T) {
	app := newTestApp()

	// A negative expiry creates a poll that is already expired.
	created := createTestPoll(t, app, createPollRequestBody("Too late?", []string{"a", "b"}, -1))
	id := created["id"].(string)

	status, env := request(t, app, http.MethodGet, "/api/polls/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	data := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, true, data["hasExpired"])

	status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", id), map[string]interface{}{"optionIndex": 0})
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "Poll has expired", env.Error)

	status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/comment", id), map[string]interface{}{"comment": "late"})
	assert.Equal(t, http.StatusGone, status)

	// Reactions have no expiry gate.
	status, _ = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/react", id), map[string]interface{}{"type": "likes"})
	assert.Equal(t, http.StatusOK, status)
}

func TestVoteEndpoint(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("A or B?", []string{"A", "B"}, 24))
	id := created["id"].(string)

	status, env := request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", id), map[string]interface{}{"optionIndex": 1})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	vote := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &vote))
	assert.Equal(t, id, vote["pollId"])
	assert.Equal(t, float64(1), vote["optionIndex"])

	status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", id), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "optionIndex is required", env.Error)

	status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", id), map[string]interface{}{"optionIndex": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid option index", env.Error)

	status, _ = request(t, app, http.MethodPost, "/api/polls/nosuchpoll/vote", map[string]interface{}{"optionIndex": 0})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResultsEndpoint(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("A or B?", []string{"A", "B"}, 24))
	id := created["id"].(string)

	for _, index := range []int{0, 0, 1} {
		status, _ := request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", id), map[string]interface{}{"optionIndex": index})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := request(t, app, http.MethodGet, fmt.Sprintf("/api/polls/%s/results", id), nil)
	require.Equal(t, http.StatusOK, status)

	result := struct {
		PollID     string `json:"pollId"`
		TotalVotes int    `json:"totalVotes"`
		Results    []struct {
			Option     string `json:"option"`
			Count      int    `json:"count"`
			Percentage int    `json:"percentage"`
		} `json:"results"`
		HasExpired bool `json:"hasExpired"`
	}{}
	require.NoError(t, json.Unmarshal(env.Data, &result))

	assert.Equal(t, id, result.PollID)
	assert.Equal(t, 3, result.TotalVotes)
	require.Len(t, result.Results, 2)
	assert.Equal(t, 2, result.Results[0].Count)
	assert.Equal(t, 67, result.Results[0].Percentage)
	assert.Equal(t, 1, result.Results[1].Count)
	assert.Equal(t, 33, result.Results[1].Percentage)
}

func TestHiddenResultsEndpoint(t *testing.T) {
	app := newTestApp()

	body := createPollRequestBody("Secret", []string{"a", "b"}, 24)
	body["hideResults"] = true
	created := createTestPoll(t, app, body)
	id := created["id"].(string)

	status, env := request(t, app, http.MethodGet, fmt.Sprintf("/api/polls/%s/results", id), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Results are hidden until poll expires", env.Error)
	assert.NotEmpty(t, env.ExpiresAt)

	// Expiry unseals hidden results.
	expiredBody := createPollRequestBody("No longer secret", []string{"a", "b"}, -1)
	expiredBody["hideResults"] = true
	expired := createTestPoll(t, app, expiredBody)

	status, env = request(t, app, http.MethodGet, fmt.Sprintf("/api/polls/%s/results", expired["id"].(string)), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestReactEndpoint(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("React", []string{"a", "b"}, 24))
	id := created["id"].(string)

	var env envelope
	var status int
	for i := 0; i < 2; i++ {
		status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/react", id), map[string]interface{}{"type": "likes"})
		require.Equal(t, http.StatusOK, status)
	}

	updated := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	reactions := updated["reactions"].(map[string]interface{})
	assert.Equal(t, float64(2), reactions["likes"])
	assert.Equal(t, float64(0), reactions["trending"])

	status, env = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/react", id), map[string]interface{}{"type": "applause"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown reaction type", env.Error)

	status, _ = request(t, app, http.MethodPost, "/api/polls/nosuchpoll/react", map[string]interface{}{"type": "likes"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommentEndpoints(t *testing.T) {
	app := newTestApp()

	created := createTestPoll(t, app, createPollRequestBody("Thoughts?", []string{"a", "b"}, 24))
	id := created["id"].(string)

	status, _ := request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/comment", id), map[string]interface{}{"comment": "first"})
	require.Equal(t, http.StatusOK, status)
	status, _ = request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/comment", id), map[string]interface{}{"comment": "second"})
	require.Equal(t, http.StatusOK, status)

	status, env := request(t, app, http.MethodPost, fmt.Sprintf("/api/polls/%s/comment", id), map[string]interface{}{"comment": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, env = request(t, app, http.MethodGet, fmt.Sprintf("/api/polls/%s/comments", id), nil)
	require.Equal(t, http.StatusOK, status)

	comments := []map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0]["text"])
	assert.Equal(t, "first", comments[1]["text"])

	status, _ = request(t, app, http.MethodGet, "/api/polls/nosuchpoll/comments", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListPublicEndpoint(t *testing.T) {
	app := newTestApp()

	privateBody := createPollRequestBody("Private", []string{"a", "b"}, 24)
	privateBody["isPrivate"] = true
	hidden := createTestPoll(t, app, privateBody)
	listed := createTestPoll(t, app, createPollRequestBody("Public", []string{"a", "b"}, 24))

	status, env := request(t, app, http.MethodGet, "/api/polls", nil)
	require.Equal(t, http.StatusOK, status)

	polls := []map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.Data, &polls))
	require.Len(t, polls, 1)
	assert.Equal(t, listed["id"], polls[0]["id"])

	// Direct link still works for the unlisted poll.
	status, _ = request(t, app, http.MethodGet, "/api/polls/"+hidden["id"].(string), nil)
	assert.Equal(t, http.StatusOK, status)
}
