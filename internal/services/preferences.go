package services

import (
	"errors"
	"log"
	"sync"

	"github.com/pokstore/backend/internal/models"
	"github.com/pokstore/backend/internal/storage"
)

// DarkModeKey is the key the dark-mode flag is stored under
const DarkModeKey = "darkMode"

// PreferenceService holds the client preferences. They are read once at
// startup and written on every change.
type PreferenceService struct {
	store *storage.JSONStore
	mu    sync.RWMutex
	prefs models.Preferences
}

// NewPreferenceService creates the service and loads the stored values
func NewPreferenceService(store *storage.JSONStore) *PreferenceService {
	s := &PreferenceService{store: store}
	s.Load()
	return s
}

// Load reads the stored preferences. A missing or unreadable value keeps the
// default.
func (s *PreferenceService) Load() {
	var dark bool
	err := s.store.Get(DarkModeKey, &dark)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		log.Printf("Preferences: could not read %s from %s: %v", DarkModeKey, s.store.Path(), err)
	}

	s.mu.Lock()
	s.prefs.DarkMode = err == nil && dark
	s.mu.Unlock()
}

// Get returns the current preferences
func (s *PreferenceService) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// DarkMode reports whether dark mode is on
func (s *PreferenceService) DarkMode() bool {
	return s.Get().DarkMode
}

// SetDarkMode updates the flag and persists it
func (s *PreferenceService) SetDarkMode(enabled bool) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(DarkModeKey, enabled); err != nil {
		return s.prefs, err
	}
	s.prefs.DarkMode = enabled
	return s.prefs, nil
}
