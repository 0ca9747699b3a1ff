package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pokstore/backend/internal/metrics"
)

const (
	ebayFindingURL     = "https://svcs.ebay.com/services/search/FindingService/v1"
	ebayDefaultTimeout = 10 * time.Second
	ebayEntriesPerPage = 5
)

// EbayPriceService looks up market prices with the eBay Finding API
type EbayPriceService struct {
	client     *http.Client
	appID      string
	baseURL    string
	dailyLimit int

	// Rate limiting
	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
	now            func() time.Time
}

// ebayFindResponse is the JSON shape of findItemsByKeywords. Every level
// is wrapped in a one-element array.
type ebayFindResponse struct {
	FindItemsByKeywordsResponse []struct {
		SearchResult []struct {
			Item []ebayItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findItemsByKeywordsResponse"`
}

type ebayItem struct {
	SellingStatus []struct {
		CurrentPrice []struct {
			Value string `json:"__value__"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
}

func (i ebayItem) price() (float64, bool) {
	if len(i.SellingStatus) == 0 || len(i.SellingStatus[0].CurrentPrice) == 0 {
		return 0, false
	}
	p, err := strconv.ParseFloat(i.SellingStatus[0].CurrentPrice[0].Value, 64)
	if err != nil || math.IsNaN(p) {
		return 0, false
	}
	return p, true
}

// NewEbayPriceService creates a new eBay API service
func NewEbayPriceService(appID string, dailyLimit int) *EbayPriceService {
	if dailyLimit <= 0 {
		dailyLimit = 100
	}

	return &EbayPriceService{
		client: &http.Client{
			Timeout: ebayDefaultTimeout,
		},
		appID:      appID,
		baseURL:    ebayFindingURL,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// Enabled reports whether an application id is configured
func (s *EbayPriceService) Enabled() bool {
	return s != nil && s.appID != ""
}

// checkDailyLimit counts a request against today's quota.
// Returns true if request can proceed, false if rate limited
func (s *EbayPriceService) checkDailyLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Reset counter if new day
	if s.lastRequestDay.Before(today) {
		s.requestsToday = 0
		s.lastRequestDay = today
	}

	if s.requestsToday >= s.dailyLimit {
		return false
	}

	s.requestsToday++
	metrics.MarketQuotaRemaining.Set(float64(s.dailyLimit - s.requestsToday))
	return true
}

// GetRequestsRemaining returns the number of requests remaining today
func (s *EbayPriceService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if s.lastRequestDay.Before(today) {
		return s.dailyLimit
	}

	remaining := s.dailyLimit - s.requestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetDailyLimit returns the configured daily quota
func (s *EbayPriceService) GetDailyLimit() int {
	return s.dailyLimit
}

// AveragePrice returns the mean current price of the first listings matching
// query, rounded to cents. ok is false when nothing was found.
func (s *EbayPriceService) AveragePrice(ctx context.Context, query string) (price float64, ok bool, err error) {
	if !s.checkDailyLimit() {
		metrics.MarketPriceLookupsTotal.WithLabelValues("quota").Inc()
		return 0, false, fmt.Errorf("eBay daily rate limit exceeded")
	}

	params := url.Values{}
	params.Set("OPERATION-NAME", "findItemsByKeywords")
	params.Set("SERVICE-VERSION", "1.0.0")
	params.Set("SECURITY-APPNAME", s.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("REST-PAYLOAD", "")
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(ebayEntriesPerPage))
	params.Set("keywords", query)

	reqURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.MarketPriceLookupsTotal.WithLabelValues("error").Inc()
		return 0, false, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.MarketPriceLookupsTotal.WithLabelValues("error").Inc()
		return 0, false, fmt.Errorf("eBay API error: status %d", resp.StatusCode)
	}

	var found ebayFindResponse
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		metrics.MarketPriceLookupsTotal.WithLabelValues("error").Inc()
		return 0, false, fmt.Errorf("failed to decode response: %w", err)
	}

	var sum float64
	var n int
	if len(found.FindItemsByKeywordsResponse) > 0 && len(found.FindItemsByKeywordsResponse[0].SearchResult) > 0 {
		for _, item := range found.FindItemsByKeywordsResponse[0].SearchResult[0].Item {
			if p, ok := item.price(); ok {
				sum += p
				n++
			}
		}
	}
	if n == 0 {
		metrics.MarketPriceLookupsTotal.WithLabelValues("empty").Inc()
		return 0, false, nil
	}

	metrics.MarketPriceLookupsTotal.WithLabelValues("found").Inc()
	return math.Round(sum/float64(n)*100) / 100, true, nil
}
