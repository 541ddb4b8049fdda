package alerthttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"incidentsim/pkg/models"
)

func payload(id int64) models.AlertPayload {
	return models.AlertPayload{
		IncidentID: id,
		Severity:   models.Low,
		Incident:   models.Incident{ID: id, Severity: models.Low},
	}
}

func TestSendPostsSignedPayload(t *testing.T) {
	var got models.AlertPayload
	var token, signature, incidentID, expected string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Token")
		signature = r.Header.Get(SignatureHeader)
		incidentID = r.Header.Get("X-Incident-ID")
		body, _ := io.ReadAll(r.Body)
		expected = "sha256=" + Sign([]byte("s3cret"), body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Secret: "s3cret", Headers: map[string]string{"X-Token": "secret"}})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Send(context.Background(), payload(5)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.IncidentID != 5 || got.Severity != models.Low {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if token != "secret" || incidentID != "5" {
		t.Fatalf("expected headers to be set, got token=%q id=%q", token, incidentID)
	}
	if signature == "" || signature != expected {
		t.Fatalf("expected signature %q, got %q", expected, signature)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL, Retries: 2, Backoff: time.Millisecond})
	if err := w.Send(context.Background(), payload(1)); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL, Retries: 3, Backoff: time.Millisecond})
	if err := w.Send(context.Background(), payload(1)); err == nil {
		t.Fatalf("expected error for 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestNewWriterRequiresURL(t *testing.T) {
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
