package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/esotraders/exchange-bot/internal/models"
)

func testListing() models.Listing {
	return models.Listing{
		Trader:   "Coizado",
		Item:     models.DefaultItem,
		Quantity: 16000,
		Rate:     1050,
		Gold:     16800000,
		TimeInfo: "12PM - 8PM",
		TimeZone: "EST",
	}
}

func newTestClient(url string) *Client {
	client := New(url)
	// Override rate limiter and backoff for tests to run fast
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	client.retryBase = time.Millisecond
	return client
}

func TestFormatListingToEmbed(t *testing.T) {
	l := testListing()
	embed := formatListingToEmbed(l)

	if embed.Title != "Coizado is trading 16000 Crowns" {
		t.Errorf("Title incorrect. Got: %s", embed.Title)
	}
	if embed.Color != colorStandardListing {
		t.Errorf("Expected standard color, got %d", embed.Color)
	}
	if embed.Description != l.String() {
		t.Errorf("Description should be the listing line, got %s", embed.Description)
	}

	foundCopy := false
	for _, field := range embed.Fields {
		switch field.Name {
		case "Gold":
			if field.Value != "16800000 (1050 per Crowns)" {
				t.Errorf("Gold field value incorrect. Got: %s", field.Value)
			}
		case "Copy":
			foundCopy = true
			if !strings.Contains(field.Value, l.Line()) {
				t.Errorf("Copy field should carry the canonical line, got %s", field.Value)
			}
		}
	}
	if !foundCopy {
		t.Error("Copy field not found")
	}
}

func TestFormatListingToEmbed_Priority(t *testing.T) {
	l := testListing()
	l.DaysLeft = 2
	embed := formatListingToEmbed(l)
	if embed.Color != colorPriorityListing {
		t.Errorf("Expected priority color, got %d", embed.Color)
	}
	if !strings.HasSuffix(embed.Title, "(2 days left)") {
		t.Errorf("Expected days left in title, got %s", embed.Title)
	}
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Errorf("Expected wait=true query param")
		}

		var payload discordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if len(payload.Embeds) != 1 {
			t.Errorf("Expected 1 embed, got %d", len(payload.Embeds))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "12345", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.Send(context.Background(), testListing())
	if err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	if id != "12345" {
		t.Errorf("Expected ID 12345, got %s", id)
	}
}

func TestClient_SendWithoutWebhook(t *testing.T) {
	client := New("")
	id, err := client.Send(context.Background(), testListing())
	if err != nil || id != "" {
		t.Errorf("Expected silent no-op, got %q, %v", id, err)
	}
	if err := client.Removed(context.Background(), "Coizado", 2); err != nil {
		t.Errorf("Expected silent no-op, got %v", err)
	}
}

func TestClient_Removed(t *testing.T) {
	var got discordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.Removed(context.Background(), "Coizado", 2); err != nil {
		t.Fatalf("Removed() returned error: %v", err)
	}
	if len(got.Embeds) != 1 || !strings.Contains(got.Embeds[0].Description, "2 listing(s) for **Coizado**") {
		t.Errorf("Unexpected payload %+v", got)
	}
}

func TestClient_Send_RetriesOn5xx(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := atomic.AddInt32(&attempts, 1)
		if attempt <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "server error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "retry-success", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.Send(context.Background(), testListing())
	if err != nil {
		t.Fatalf("Send() should have succeeded after retries, got error: %v", err)
	}
	if id != "retry-success" {
		t.Errorf("Expected ID 'retry-success', got %s", id)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("Expected 3 attempts (2 failures + 1 success), got %d", atomic.LoadInt32(&attempts))
	}
}

func TestClient_Send_RetriesOn429(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := atomic.AddInt32(&attempts, 1)
		if attempt == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "rate limited"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "429-success", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.Send(context.Background(), testListing())
	if err != nil {
		t.Fatalf("Send() should have succeeded after 429 retry, got error: %v", err)
	}
	if id != "429-success" {
		t.Errorf("Expected ID '429-success', got %s", id)
	}
}

func TestClient_Send_NoRetryOn4xx(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "invalid embed"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Send(context.Background(), testListing()); err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("Expected a single attempt, got %d", atomic.LoadInt32(&attempts))
	}
}
