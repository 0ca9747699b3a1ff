package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestItemPatchUnmarshalPrice(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantPrice *float64
		wantClear bool
	}{
		{"absent", `{"notes":"x"}`, nil, false},
		{"value", `{"price":12.5}`, ptr(12.5), false},
		{"explicit null", `{"price":null}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ItemPatch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.ClearPrice != tt.wantClear {
				t.Errorf("ClearPrice = %v, want %v", p.ClearPrice, tt.wantClear)
			}
			if (p.Price == nil) != (tt.wantPrice == nil) || (p.Price != nil && *p.Price != *tt.wantPrice) {
				t.Errorf("Price = %v, want %v", p.Price, tt.wantPrice)
			}
		})
	}

	var p ItemPatch
	if err := json.Unmarshal([]byte(`{"price":"cher"}`), &p); err == nil {
		t.Error("expected an error for a non-numeric price")
	}
}

func TestItemPatchMarshalClearPrice(t *testing.T) {
	notes := "vendu"
	data, err := json.Marshal(ItemPatch{Notes: &notes, ClearPrice: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, `"price":null`) || !strings.Contains(got, `"notes":"vendu"`) {
		t.Errorf("Marshal() = %s", got)
	}

	data, _ = json.Marshal(ItemPatch{Notes: &notes})
	if strings.Contains(string(data), "price") {
		t.Errorf("untouched price was sent: %s", data)
	}
}

func TestItemPatchApplyClearPrice(t *testing.T) {
	item := Item{Price: ptr(10)}
	if (ItemPatch{ClearPrice: true}).IsEmpty() {
		t.Error("a clearing patch is not empty")
	}
	ItemPatch{ClearPrice: true}.Apply(&item)
	if item.Price != nil {
		t.Errorf("price = %v, want nil", *item.Price)
	}
}

func ptr(f float64) *float64 { return &f }
