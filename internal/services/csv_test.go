package services

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

func TestExportCSV(t *testing.T) {
	items := []models.Item{
		{Name: "Pikachu ETB", Set: "EV1", Condition: models.ConditionNew, Quantity: 2, Price: price(49.9), Notes: "vitrine"},
		{Name: "Display", Set: "151", Quantity: 0},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, items); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	want := "Nom,Édition,État,Quantité,Prix,Notes\n" +
		`"Pikachu ETB","EV1","Neuf","2","49.9","vitrine"` + "\n" +
		`"Display","151","","","",""`
	if got := buf.String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, nil); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if got := buf.String(); got != "Nom,Édition,État,Quantité,Prix,Notes" {
		t.Errorf("got %q", got)
	}
}

func TestParseCSV(t *testing.T) {
	input := "name,set,condition,quantity,price,notes,imageurl\n" +
		`"Dracaufeu","Base","Excellent","3","120.5","rare","/images/a.png"` + "\n" +
		"\n" +
		"Évoli,XY,,abc,12€,,\n" +
		"Mew,Promo,Neuf,1,,,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	first := rows[0]
	if first.Line != 2 {
		t.Errorf("line = %d, want 2", first.Line)
	}
	in := first.Input
	if in.Name != "Dracaufeu" || in.Set != "Base" || in.Condition != models.ConditionExcellent || in.Notes != "rare" || in.ImageURL != "/images/a.png" {
		t.Errorf("unexpected first row %+v", in)
	}
	if in.Quantity == nil || *in.Quantity != 3 {
		t.Errorf("quantity = %v, want 3", in.Quantity)
	}
	if in.Price == nil || *in.Price != 120.5 {
		t.Errorf("price = %v, want 120.5", in.Price)
	}

	second := rows[1]
	if second.Line != 4 {
		t.Errorf("line = %d, want 4", second.Line)
	}
	if second.Input.Quantity == nil || *second.Input.Quantity != 0 {
		t.Errorf("unparsable quantity should be 0, got %v", second.Input.Quantity)
	}
	if second.Input.Price == nil || *second.Input.Price != 12 {
		t.Errorf("price = %v, want 12", second.Input.Price)
	}

	if rows[2].Input.Price != nil {
		t.Errorf("empty price should stay unset, got %v", *rows[2].Input.Price)
	}
}

func TestParseCSVFrenchHeaderWithBOM(t *testing.T) {
	input := "\ufeffNom,Édition,État,Quantité,Prix,Notes\n" +
		`"Pikachu","EV1","Bon","1","5",""`

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Input.Name != "Pikachu" || rows[0].Input.Condition != models.ConditionGood {
		t.Errorf("unexpected row %+v", rows[0].Input)
	}
}

func TestParseCSVInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown columns", "foo,bar\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			if !apperrors.IsCode(err, apperrors.CodeValidation) {
				t.Errorf("err = %v, want VALIDATION", err)
			}
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	items := []models.Item{
		{Name: "Pikachu ETB", Set: "EV1", Condition: models.ConditionNew, Quantity: 2, Price: price(49.99), Notes: "vitrine"},
		{Name: "Coffret Mew", Set: "151", Condition: models.ConditionDamaged, Quantity: 1, Price: price(0.5)},
		{Name: "Tripack", Set: "XY", Quantity: 7, Price: price(12)},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, items); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	rows, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != len(items) {
		t.Fatalf("got %d rows, want %d", len(rows), len(items))
	}

	for i, want := range items {
		got := rows[i].Input
		if got.Name != want.Name || got.Set != want.Set || got.Condition != want.Condition || got.Notes != want.Notes {
			t.Errorf("row %d = %+v, want %+v", i, got, want)
		}
		if got.Quantity == nil || *got.Quantity != want.Quantity {
			t.Errorf("row %d quantity = %v, want %d", i, got.Quantity, want.Quantity)
		}
		if got.Price == nil || math.Abs(*got.Price-*want.Price) > 1e-9 {
			t.Errorf("row %d price = %v, want %v", i, got.Price, *want.Price)
		}
	}
}
