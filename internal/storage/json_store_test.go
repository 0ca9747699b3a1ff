package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONStoreSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	var missing bool
	if err := store.Get("darkMode", &missing); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() on empty store err = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set("darkMode", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("lang", "fr"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// a second store over the same file sees both keys
	reopened, _ := NewJSONStore(path)
	var dark bool
	if err := reopened.Get("darkMode", &dark); err != nil || !dark {
		t.Errorf("darkMode = %v, %v", dark, err)
	}
	var lang string
	if err := reopened.Get("lang", &lang); err != nil || lang != "fr" {
		t.Errorf("lang = %q, %v", lang, err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	store, _ := NewJSONStore(path)

	var v bool
	if err := store.Get("darkMode", &v); err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() err = %v, want a decode error", err)
	}
	if err := store.Set("darkMode", true); err == nil {
		t.Error("Set() should refuse to overwrite a corrupt file")
	}
}
