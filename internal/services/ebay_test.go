package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const ebaySample = `{"findItemsByKeywordsResponse":[{"searchResult":[{"item":[
	{"sellingStatus":[{"currentPrice":[{"__value__":"10.00"}]}]},
	{"sellingStatus":[{"currentPrice":[{"__value__":"20.02"}]}]},
	{"sellingStatus":[{"currentPrice":[{"__value__":"n/a"}]}]},
	{"sellingStatus":[]}
]}]}]}`

func newTestEbay(t *testing.T, limit int, handler http.HandlerFunc) *EbayPriceService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	s := NewEbayPriceService("app-id", limit)
	s.baseURL = server.URL
	return s
}

func TestEbayAveragePrice(t *testing.T) {
	s := newTestEbay(t, 10, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("keywords") != "Pikachu ETB EV1" || q.Get("SECURITY-APPNAME") != "app-id" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(ebaySample))
	})

	got, ok, err := s.AveragePrice(context.Background(), "Pikachu ETB EV1")
	if err != nil {
		t.Fatalf("AveragePrice() error = %v", err)
	}
	if !ok || got != 15.01 {
		t.Errorf("got %v (found %v), want 15.01", got, ok)
	}
	if s.GetRequestsRemaining() != 9 {
		t.Errorf("remaining = %d, want 9", s.GetRequestsRemaining())
	}
}

func TestEbayNoListings(t *testing.T) {
	s := newTestEbay(t, 10, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"findItemsByKeywordsResponse":[{"searchResult":[{}]}]}`))
	})
	_, ok, err := s.AveragePrice(context.Background(), "rien")
	if err != nil || ok {
		t.Errorf("got found=%v err=%v, want not found", ok, err)
	}
}

func TestEbayHTTPError(t *testing.T) {
	s := newTestEbay(t, 10, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, _, err := s.AveragePrice(context.Background(), "x"); err == nil {
		t.Error("expected an error")
	}
}

func TestEbayDailyQuota(t *testing.T) {
	calls := 0
	s := newTestEbay(t, 2, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(ebaySample))
	})
	now := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, _, err := s.AveragePrice(context.Background(), "x"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, _, err := s.AveragePrice(context.Background(), "x"); err == nil {
		t.Error("expected the quota to be exhausted")
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}

	now = now.Add(2 * time.Hour)
	if s.GetRequestsRemaining() != 2 {
		t.Errorf("quota not reset on a new day: %d", s.GetRequestsRemaining())
	}
}

func TestEbayEnabled(t *testing.T) {
	if NewEbayPriceService("", 0).Enabled() {
		t.Error("service without app id should be disabled")
	}
	var nilService *EbayPriceService
	if nilService.Enabled() {
		t.Error("nil service should be disabled")
	}
}
