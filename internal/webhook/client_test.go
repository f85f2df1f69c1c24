package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEndpoints() Endpoints {
	return Endpoints{
		Train:    "/train",
		Generate: "/generate",
		Models:   "/models",
		Credits:  "/credits",
	}
}

func TestClient_StartTraining(t *testing.T) {
	var got TrainingRequest
	var gotSecret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/train", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotSecret = r.Header.Get("X-Webhook-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s3cret", testEndpoints(), 5*time.Second, zap.NewNop())
	err := c.StartTraining(context.Background(), TrainingRequest{
		ModelName:  "Summer",
		ModelType:  "male",
		FileRefs:   []string{"f1", "f2"},
		TelegramID: 123,
	})
	require.NoError(t, err)

	assert.Equal(t, "s3cret", gotSecret)
	assert.Equal(t, "Summer", got.ModelName)
	assert.Equal(t, []string{"f1", "f2"}, got.FileRefs)
}

func TestClient_StartTrainingServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue is full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
	err := c.StartTraining(context.Background(), TrainingRequest{TelegramID: 123})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "queue is full")
}

func TestClient_StartGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"prompt_id": "p-42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
	id, err := c.StartGeneration(context.Background(), GenerationRequest{
		ModelID: 7, Prompt: "a portrait", TelegramID: 123, NumImages: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "p-42", id)
}

func TestClient_StartGenerationPlainTextOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
	id, err := c.StartGeneration(context.Background(), GenerationRequest{ModelID: 7})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Summer","status":"completed"},{"id":2,"name":"Winter","status":"training"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
	list, err := c.ListModels(context.Background(), 123)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Summer", list[0].Name)
	assert.Equal(t, int64(2), list[1].ID)
}

func TestClient_Credits(t *testing.T) {
	t.Run("bare number", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("42"))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
		n, err := c.Credits(context.Background(), 123)
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("json object", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"credits": 7}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "", testEndpoints(), 5*time.Second, zap.NewNop())
		n, err := c.Credits(context.Background(), 123)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})
}
