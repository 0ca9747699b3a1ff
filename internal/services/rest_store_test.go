package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

func newTestRESTStore(t *testing.T, handler http.HandlerFunc) *RESTStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRESTStore(server.URL, "anon-key", "cards", 0)
}

func TestRESTStoreListItemsDecodesLooseRows(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/cards" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("order") != "created_at.asc" {
			t.Errorf("order = %s", r.URL.Query().Get("order"))
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("Authorization = %q, want the user token", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`[
			{"id": 7, "name": "Pikachu ETB", "set": "EV1", "condition": "Neuf", "quantity": "2", "price": 49.9,
			 "notes": null, "imageUrl": null, "tags": ["vitrine", "vitrine", " "],
			 "priceHistory": [{"price": "45", "date": "2024-03-01T12:00:00.000Z"}, {"price": 49.9, "date": "2024-03-02"}],
			 "created_at": "2024-03-01T12:00:00.123456+00:00"},
			{"id": "b2c1", "name": "Display", "set": "151", "quantity": null, "price": null, "tags": null, "priceHistory": null}
		]`))
	})

	items, err := store.ListItems(WithAccessToken(context.Background(), "user-token"))
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}

	first := items[0]
	if first.ID != "7" || first.Quantity != 2 || first.Price == nil || *first.Price != 49.9 {
		t.Errorf("unexpected first item %+v", first)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "vitrine" {
		t.Errorf("tags = %v, want deduplicated", first.Tags)
	}
	if len(first.PriceHistory) != 2 || first.PriceHistory[0].Price != 45 || first.PriceHistory[1].Date.IsZero() {
		t.Errorf("price history = %+v", first.PriceHistory)
	}
	if first.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}

	second := items[1]
	if second.ID != "b2c1" || second.Quantity != 1 || second.Price != nil {
		t.Errorf("unexpected second item %+v", second)
	}
	if second.Tags == nil || second.PriceHistory == nil {
		t.Error("missing collections should decode as empty, not nil")
	}
}

func TestRESTStoreCreateItems(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		body, _ := io.ReadAll(r.Body)
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 2 {
			t.Errorf("body = %s (%v), want 2 rows", body, err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, hasID := rows[0]["id"]; hasID {
			t.Error("insert must let the database assign ids")
		}
		for i := range rows {
			rows[i]["id"] = i + 1
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rows)
	})

	created, err := store.CreateItems(context.Background(), []models.Item{
		{Name: "a", Set: "s", Quantity: 1},
		{Name: "b", Set: "s", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("CreateItems() error = %v", err)
	}
	if len(created) != 2 || created[0].ID != "1" || created[1].ID != "2" || created[1].Quantity != 3 {
		t.Errorf("unexpected created items %+v", created)
	}
}

func TestRESTStoreUpdateAndDeleteNotFound(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "eq.42" {
			t.Errorf("id filter = %q", r.URL.Query().Get("id"))
		}
		w.Write([]byte(`[]`))
	})

	notes := "x"
	if _, err := store.UpdateItem(context.Background(), "42", models.ItemPatch{Notes: &notes}); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("update err = %v, want NOT_FOUND", err)
	}
	if err := store.DeleteItem(context.Background(), "42"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("delete err = %v, want NOT_FOUND", err)
	}
}

func TestRESTStoreErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"duplicate", http.StatusConflict, `{"code":"23505","message":"duplicate key value violates unique constraint"}`, StoreCodeDuplicate},
		{"jwt expired", http.StatusUnauthorized, `{"code":"PGRST301","message":"JWT expired"}`, StoreCodeSessionExpired},
		{"server", http.StatusBadGateway, `bad gateway`, StoreCodeServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := store.ListItems(context.Background())
			var se *StoreError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StoreError", err)
			}
			if se.Code != tt.wantCode || se.Status != tt.status {
				t.Errorf("got code %q status %d, want %q %d", se.Code, se.Status, tt.wantCode, tt.status)
			}
		})
	}
}

func TestRESTStoreTransportErrorIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	store := NewRESTStore(server.URL, "k", "cards", 0)
	server.Close()

	_, err := store.ListItems(context.Background())
	if err == nil || !isTransient(err) {
		t.Errorf("err = %v, want a transient network error", err)
	}
	if store.Online(context.Background()) {
		t.Error("closed server should be offline")
	}
}

func TestRESTStoreSignIn(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s", r.URL)
		}
		var creds models.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret123" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok","expires_in":3600,"user":{"id":"u1","email":"a@pokstore.fr"}}`))
	})

	session, err := store.SignIn(context.Background(), models.Credentials{Email: "a@pokstore.fr", Password: "secret123"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if session.Token != "tok" || session.UserID != "u1" || session.ExpiresAt.IsZero() {
		t.Errorf("unexpected session %+v", session)
	}

	_, err = store.SignIn(context.Background(), models.Credentials{Email: "a@pokstore.fr", Password: "bad"})
	if !apperrors.IsCode(err, apperrors.CodeAuth) {
		t.Errorf("err = %v, want AUTH", err)
	}
}

func TestRESTStoreSignUpTaken(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`))
	})

	_, err := store.SignUp(context.Background(), models.Credentials{Email: "a@pokstore.fr", Password: "secret123"})
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("err = %v, want CONFLICT", err)
	}
}

func TestRESTStoreOnline(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"name":"GoTrue"}`))
	})
	if !store.Online(context.Background()) {
		t.Error("expected online")
	}
}

func TestRESTStoreScopeKey(t *testing.T) {
	store := NewRESTStore("http://localhost", "anon-key", "", 0)
	sign := func(claims jwt.MapClaims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatal(err)
		}
		return signed
	}
	first := sign(jwt.MapClaims{"sub": "user-1", "iat": 1})
	refreshed := sign(jwt.MapClaims{"sub": "user-1", "iat": 2})
	service := sign(jwt.MapClaims{"role": "service_role"})

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"anon key", "", ""},
		{"jwt subject", first, "sub:user-1"},
		{"refreshed token of the same user", refreshed, "sub:user-1"},
		{"jwt without subject", service, "token:" + service},
		{"opaque token", "opaque", "token:opaque"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.ScopeKey(WithAccessToken(context.Background(), tt.token))
			if got != tt.want {
				t.Errorf("ScopeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRESTStoreUpdateClearsPrice(t *testing.T) {
	store := newTestRESTStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		price, sent := body["price"]
		if !sent || price != nil {
			t.Errorf("body = %v, want an explicit null price", body)
		}
		w.Write([]byte(`[{"id": 42, "name": "Display", "set": "151", "quantity": 1, "price": null}]`))
	})

	item, err := store.UpdateItem(context.Background(), "42", models.ItemPatch{ClearPrice: true})
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if item.Price != nil {
		t.Errorf("price = %v, want nil", *item.Price)
	}
}
