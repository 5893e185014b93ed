package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeQuery(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode query: %v", err)
	}
	return payload
}

func TestClient_AllMids(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeQuery(t, r)
		if payload["type"] != "allMids" {
			t.Errorf("query type = %v, want allMids", payload["type"])
		}
		json.NewEncoder(w).Encode(map[string]string{"BTC": "65000.5", "ETH": "3000.0"})
	}))
	defer server.Close()

	c := NewClient(server.URL, WithLogger(testLogger()))
	mids, err := c.AllMids(context.Background())
	if err != nil {
		t.Fatalf("AllMids failed: %v", err)
	}
	if mids["BTC"] != "65000.5" {
		t.Errorf("BTC mid = %q, want 65000.5", mids["BTC"])
	}
}

func TestClient_L2Book(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeQuery(t, r)
		if payload["type"] != "l2Book" || payload["coin"] != "BTC" {
			t.Errorf("unexpected query: %v", payload)
		}
		json.NewEncoder(w).Encode(L2Book{
			Coin: "BTC",
			Time: 1705328200000,
			Levels: [][]Level{
				{{Px: "64999.0", Sz: "1.5", N: 3}},
				{{Px: "65001.0", Sz: "2.0", N: 5}},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, WithLogger(testLogger()))
	book, err := c.L2Book(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("L2Book failed: %v", err)
	}
	if book.Coin != "BTC" {
		t.Errorf("Coin = %q, want BTC", book.Coin)
	}
	if len(book.Levels) != 2 || book.Levels[0][0].Px != "64999.0" {
		t.Errorf("unexpected levels: %v", book.Levels)
	}
}

func TestClient_CandleSnapshot(t *testing.T) {
	start := time.UnixMilli(1705320000000)
	end := time.UnixMilli(1705330000000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeQuery(t, r)
		req, _ := payload["req"].(map[string]any)
		if req == nil || req["coin"] != "ETH" || req["interval"] != "1m" {
			t.Errorf("unexpected query: %v", payload)
		}
		json.NewEncoder(w).Encode([]Candle{
			{OpenTime: 1705320000000, Coin: "ETH", Interval: "1m", Open: "3000", Close: "3010"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, WithLogger(testLogger()))
	candles, err := c.CandleSnapshot(context.Background(), "ETH", "1m", start, end)
	if err != nil {
		t.Fatalf("CandleSnapshot failed: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != "3010" {
		t.Errorf("unexpected candles: %v", candles)
	}
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"BTC": "65000.5"})
	}))
	defer server.Close()

	c := NewClient(server.URL,
		WithLogger(testLogger()),
		WithRetries(2, 10*time.Millisecond),
	)
	if _, err := c.AllMids(context.Background()); err != nil {
		t.Fatalf("AllMids failed after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one failure, one retry)", calls.Load())
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewClient(server.URL,
		WithLogger(testLogger()),
		WithRetries(3, 10*time.Millisecond),
	)
	_, err := c.AllMids(context.Background())
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (client errors are not retried)", calls.Load())
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v does not wrap *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.IsRetryable() {
		t.Error("422 should not be retryable")
	}
}
