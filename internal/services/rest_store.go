package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

const (
	restDefaultTimeout = 10 * time.Second
	restProbeTimeout   = 3 * time.Second
)

type accessTokenKey struct{}

// WithAccessToken attaches the caller's session token to ctx. The REST store
// sends it so row-level security applies to the signed-in user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// RESTStore talks to a hosted Supabase project: PostgREST for the item
// table and GoTrue for accounts.
type RESTStore struct {
	client  *http.Client
	baseURL string
	apiKey  string
	table   string
	limiter *rate.Limiter
}

// NewRESTStore creates a store for the project at baseURL. requestsPerSecond
// paces outgoing calls; zero or less disables pacing.
func NewRESTStore(baseURL, apiKey, table string, requestsPerSecond float64) *RESTStore {
	if table == "" {
		table = "cards"
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RESTStore{
		client:  &http.Client{Timeout: restDefaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ScopeKey names the rows visible from ctx: the subject of the caller's
// token, the token itself when it carries no subject, or "" for the anon key.
// Row-level security makes every scope see its own rows.
func (s *RESTStore) ScopeKey(ctx context.Context) string {
	token := accessToken(ctx)
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return "sub:" + sub
		}
	}
	return "token:" + token
}

// restError is the error body of PostgREST and GoTrue
type restError struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
}

func (e restError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	var s string
	if json.Unmarshal(e.Code, &s) == nil {
		return s
	}
	return strings.Trim(string(e.Code), `"`)
}

func (e restError) message() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

// do sends a request and decodes a JSON response into out (if not nil)
func (s *RESTStore) do(ctx context.Context, method, path string, query url.Values, body any, out any, headers map[string]string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := s.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	bearer := accessToken(ctx)
	if bearer == "" {
		bearer = s.apiKey
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &StoreError{Code: StoreCodeNetwork, Message: "Failed to fetch", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &StoreError{Code: StoreCodeNetwork, Message: "failed to read response", Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode >= 400 {
		var re restError
		_ = json.Unmarshal(data, &re)
		se := &StoreError{Code: re.code(), Message: re.message(), Status: resp.StatusCode}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		if se.Code == "" && resp.StatusCode >= 500 {
			se.Code = StoreCodeServer
		}
		return se
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (s *RESTStore) tablePath() string {
	return "/rest/v1/" + url.PathEscape(s.table)
}

var returnRepresentation = map[string]string{"Prefer": "return=representation"}

func (s *RESTStore) ListItems(ctx context.Context) ([]models.Item, error) {
	var rows []restItem
	q := url.Values{"select": {"*"}, "order": {"created_at.asc"}}
	if err := s.do(ctx, http.MethodGet, s.tablePath(), q, nil, &rows, nil); err != nil {
		return nil, err
	}
	return decodeRows(rows), nil
}

func (s *RESTStore) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	created, err := s.CreateItems(ctx, []models.Item{item})
	if err != nil {
		return models.Item{}, err
	}
	if len(created) == 0 {
		return models.Item{}, &StoreError{Code: StoreCodeServer, Message: "insert returned no row"}
	}
	return created[0], nil
}

// CreateItems inserts all items with one bulk request
func (s *RESTStore) CreateItems(ctx context.Context, items []models.Item) ([]models.Item, error) {
	if len(items) == 0 {
		return []models.Item{}, nil
	}
	payload := make([]restInsert, len(items))
	for i := range items {
		payload[i] = newRestInsert(&items[i])
	}
	var rows []restItem
	if err := s.do(ctx, http.MethodPost, s.tablePath(), nil, payload, &rows, returnRepresentation); err != nil {
		return nil, err
	}
	return decodeRows(rows), nil
}

func (s *RESTStore) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	var rows []restItem
	q := url.Values{"id": {"eq." + id}}
	if err := s.do(ctx, http.MethodPatch, s.tablePath(), q, patch, &rows, returnRepresentation); err != nil {
		return models.Item{}, err
	}
	if len(rows) == 0 {
		return models.Item{}, itemNotFound(id)
	}
	return decodeRows(rows)[0], nil
}

func (s *RESTStore) DeleteItem(ctx context.Context, id string) error {
	var rows []restItem
	q := url.Values{"id": {"eq." + id}}
	if err := s.do(ctx, http.MethodDelete, s.tablePath(), q, nil, &rows, returnRepresentation); err != nil {
		return err
	}
	if len(rows) == 0 {
		return itemNotFound(id)
	}
	return nil
}

// authResponse is GoTrue's token response
type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	// signup without auto-confirm returns the bare user
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *authResponse) session(now time.Time) *models.Session {
	s := &models.Session{Token: r.AccessToken, UserID: r.User.ID, Email: r.User.Email}
	if s.UserID == "" {
		s.UserID, s.Email = r.ID, r.Email
	}
	if r.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return s
}

func (s *RESTStore) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var resp authResponse
	q := url.Values{"grant_type": {"password"}}
	err := s.do(ctx, http.MethodPost, "/auth/v1/token", q, creds, &resp, nil)
	if err != nil {
		return nil, authError(err, apperrors.KeyInvalidLogin)
	}
	return resp.session(time.Now()), nil
}

func (s *RESTStore) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var resp authResponse
	err := s.do(ctx, http.MethodPost, "/auth/v1/signup", nil, creds, &resp, nil)
	if err != nil {
		var se *StoreError
		if errors.As(err, &se) && (se.Status == http.StatusUnprocessableEntity || se.Code == "user_already_exists") {
			return nil, apperrors.Wrap(apperrors.CodeConflict, apperrors.KeyEmailTaken, err)
		}
		return nil, authError(err, apperrors.KeyInvalidLogin)
	}
	return resp.session(time.Now()), nil
}

func (s *RESTStore) SignOut(ctx context.Context, token string) error {
	return s.do(WithAccessToken(ctx, token), http.MethodPost, "/auth/v1/logout", nil, nil, nil, nil)
}

// authError turns 400/401 answers of the auth endpoints into AuthErrors.
// Expired sessions and transport failures are left for the Retrier.
func authError(err error, key string) error {
	var se *StoreError
	if errors.As(err, &se) && se.Code != StoreCodeSessionExpired &&
		(se.Status == http.StatusBadRequest || se.Status == http.StatusUnauthorized) {
		return apperrors.Wrap(apperrors.CodeAuth, key, err)
	}
	return err
}

// Online probes the auth health endpoint
func (s *RESTStore) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, restProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("apikey", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// restInsert is the row written on insert. The id is assigned by the database.
type restInsert struct {
	Name         string              `json:"name"`
	Set          string              `json:"set"`
	Condition    models.Condition    `json:"condition"`
	Quantity     int                 `json:"quantity"`
	Price        *float64            `json:"price"`
	Notes        string              `json:"notes"`
	ImageURL     string              `json:"imageUrl"`
	Tags         []string            `json:"tags"`
	PriceHistory []models.PricePoint `json:"priceHistory"`
}

func newRestInsert(item *models.Item) restInsert {
	return restInsert{
		Name:         item.Name,
		Set:          item.Set,
		Condition:    item.Condition,
		Quantity:     item.Quantity,
		Price:        item.Price,
		Notes:        item.Notes,
		ImageURL:     item.ImageURL,
		Tags:         models.NormalizeTags(item.Tags),
		PriceHistory: append([]models.PricePoint{}, item.PriceHistory...),
	}
}

// restItem is a row as stored by the front end. Numbers may come back as
// numbers, strings or null, and ids as numbers or uuids.
type restItem struct {
	ID           json.RawMessage  `json:"id"`
	Name         string           `json:"name"`
	Set          string           `json:"set"`
	Condition    string           `json:"condition"`
	Quantity     flexFloat        `json:"quantity"`
	Price        flexFloat        `json:"price"`
	Notes        *string          `json:"notes"`
	ImageURL     *string          `json:"imageUrl"`
	Tags         []string         `json:"tags"`
	PriceHistory []restPricePoint `json:"priceHistory"`
	CreatedAt    string           `json:"created_at"`
}

type restPricePoint struct {
	Price flexFloat `json:"price"`
	Date  string    `json:"date"`
}

// flexFloat accepts a JSON number, a numeric string or null
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = flexFloat{}
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = flexFloat{}
		return nil
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

func parseRestTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (r *restItem) toItem() models.Item {
	id := strings.Trim(string(r.ID), `"`)
	if id == "null" {
		id = ""
	}
	item := models.Item{
		ID:        id,
		Name:      r.Name,
		Set:       r.Set,
		Condition: models.Condition(r.Condition),
		Tags:      r.Tags,
		CreatedAt: parseRestTime(r.CreatedAt),
	}
	if r.Quantity.Valid {
		item.Quantity = int(r.Quantity.Value)
	} else {
		item.Quantity = 1
	}
	if r.Price.Valid {
		p := r.Price.Value
		item.Price = &p
	}
	if r.Notes != nil {
		item.Notes = *r.Notes
	}
	if r.ImageURL != nil {
		item.ImageURL = *r.ImageURL
	}
	item.PriceHistory = make([]models.PricePoint, 0, len(r.PriceHistory))
	for _, p := range r.PriceHistory {
		item.PriceHistory = append(item.PriceHistory, models.PricePoint{
			Price: p.Price.Value,
			Date:  parseRestTime(p.Date),
		})
	}
	item.UpdatedAt = item.CreatedAt
	item.Normalize()
	return item
}

func decodeRows(rows []restItem) []models.Item {
	items := make([]models.Item, len(rows))
	for i := range rows {
		items[i] = rows[i].toItem()
	}
	return items
}
