package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartkb/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		Model:     "test-model",
		BaseURL:   server.URL,
		Dimension: 3,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return server, client
}

func TestClient_Embed(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		// Answer out of order to exercise index-based reassembly.
		resp := embeddingResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(i), 0, 0},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vecs, err := client.Embed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	// Batch size 2: positions restart per batch (0,1 then 0).
	want := []float32{0, 1, 0}
	for i, v := range vecs {
		if v[0] != want[i] {
			t.Errorf("vector %d: expected leading value %f, got %f", i, want[i], v[0])
		}
	}
}

func TestClient_Embed_RejectsEmptyInput(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be called for empty input")
	})

	_, err := client.Embed(context.Background(), []string{"ok", ""})
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestClient_Embed_APIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	if _, err := client.Embed(context.Background(), []string{"text"}); err == nil {
		t.Error("expected error from non-200 response")
	}
}

func TestClient_Embed_MissingVector(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float32{1, 2, 3}}},
		})
	})

	if _, err := client.Embed(context.Background(), []string{"one", "two"}); err == nil {
		t.Error("expected error when a vector is missing from the response")
	}
}

func TestClient_Initialize(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float32{1, 2, 3, 4, 5}}},
		})
	})

	if err := client.Initialize(context.Background(), 1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	// The probe response overrides the configured dimension.
	if client.Dimension() != 5 {
		t.Errorf("expected probed dimension 5, got %d", client.Dimension())
	}
}

func TestClient_Initialize_Unreachable(t *testing.T) {
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server.Close()

	err := client.Initialize(context.Background(), 1)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Setenv("SMARTKB_TEST_MISSING_KEY", "")
	_, err := NewClient(Options{Model: "m", APIKeyEnv: "SMARTKB_TEST_MISSING_KEY"})
	if err == nil {
		t.Error("expected error for unset API key variable")
	}
}
