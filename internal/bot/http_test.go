package bot

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, secret string) (*httptest.Server, *fakeSender) {
	t.Helper()

	b, tg, _, _ := newTestBot(t)
	mux := http.NewServeMux()
	NewHTTPServer(b, secret).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, tg
}

func postNotification(t *testing.T, srv *httptest.Server, secret string, update StatusUpdate) *http.Response {
	t.Helper()

	body, err := json.Marshal(update)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/notifications", bytes.NewReader(body))
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotificationIngress(t *testing.T) {
	srv, tg := newTestServer(t, "s3cret")

	resp := postNotification(t, srv, "s3cret", StatusUpdate{
		Type:       "prompt_status_update",
		PromptID:   1,
		Status:     "completed",
		TelegramID: 123,
		Images:     []string{"https://cdn.example/a.jpg"},
	})

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, tg.photoCount())
}

func TestNotificationIngressRejectsBadSecret(t *testing.T) {
	srv, tg := newTestServer(t, "s3cret")

	resp := postNotification(t, srv, "wrong", StatusUpdate{
		Type:       "model_status_update",
		ModelID:    1,
		Status:     "completed",
		TelegramID: 123,
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, tg.texts())
}

func TestNotificationIngressRequiresTelegramID(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postNotification(t, srv, "", StatusUpdate{
		Type:    "model_status_update",
		ModelID: 1,
		Status:  "completed",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationIngressRejectsUnknownType(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postNotification(t, srv, "", StatusUpdate{
		Type:       "mystery_update",
		TelegramID: 123,
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationIngressRejectsGet(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := srv.Client().Get(srv.URL + "/api/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
