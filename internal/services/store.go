package services

import (
	"context"
	"fmt"

	"github.com/pokstore/backend/internal/models"
)

// Raw error codes reported by the item stores. They mirror the codes of the
// hosted PostgREST backend so both stores can be handled the same way.
const (
	StoreCodeSessionExpired = "PGRST301"
	StoreCodeDuplicate      = "23505"
	StoreCodeNetwork        = "network"
	StoreCodeServer         = "server"
)

// StoreError is a failure reported by an item store, before translation
// into an application error.
type StoreError struct {
	Code    string
	Message string
	Status  int
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// ItemStore is CRUD over the shop collection
type ItemStore interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	CreateItem(ctx context.Context, item models.Item) (models.Item, error)
	CreateItems(ctx context.Context, items []models.Item) ([]models.Item, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Authenticator signs users in and out
type Authenticator interface {
	SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
}

// Prober reports whether the store can currently be reached
type Prober interface {
	Online(ctx context.Context) bool
}

// RemoteStore is everything the inventory needs from a backend
type RemoteStore interface {
	ItemStore
	Authenticator
	Prober
}
