package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Condition is the wear grade of an inventory item.
// Values are stored exactly as the shop front end writes them.
type Condition string

const (
	ConditionUnset     Condition = ""
	ConditionNew       Condition = "Neuf"
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Bon"
	ConditionDamaged   Condition = "Abîmé"
)

// UnspecifiedLabel is used as the group key for items with no condition or edition.
const UnspecifiedLabel = "Non spécifié"

// AllConditions returns the selectable conditions in display order
func AllConditions() []Condition {
	return []Condition{
		ConditionNew,
		ConditionExcellent,
		ConditionGood,
		ConditionDamaged,
	}
}

// IsValid reports whether c is unset or one of the known conditions
func (c Condition) IsValid() bool {
	if c == ConditionUnset {
		return true
	}
	for _, known := range AllConditions() {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the grouping label for the condition
func (c Condition) Label() string {
	if c == ConditionUnset {
		return UnspecifiedLabel
	}
	return string(c)
}

// Item is one inventory entry (a "card": a single card or a sealed product).
type Item struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"not null;index"`
	Set          string       `json:"set" gorm:"column:set_name;not null;index"`
	Condition    Condition    `json:"condition"`
	Quantity     int          `json:"quantity"`
	Price        *float64     `json:"price"`
	Notes        string       `json:"notes"`
	ImageURL     string       `json:"imageUrl" gorm:"column:image_url"`
	Tags         []string     `json:"tags" gorm:"serializer:json;type:text"`
	PriceHistory []PricePoint `json:"priceHistory" gorm:"serializer:json;type:text"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// EffectiveQuantity is the quantity used by every aggregate: an unset or
// non-positive quantity counts as one unit.
func (i *Item) EffectiveQuantity() int {
	if i.Quantity <= 0 {
		return 1
	}
	return i.Quantity
}

// EffectivePrice returns the unit price, or 0 when it is missing or not a number.
func (i *Item) EffectivePrice() float64 {
	if i.Price == nil {
		return 0
	}
	return SanitizePrice(*i.Price)
}

// Value is price times quantity
func (i *Item) Value() float64 {
	return i.EffectivePrice() * float64(i.EffectiveQuantity())
}

// HasTag reports whether the item carries tag
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't alias tags or history.
func (i Item) Clone() Item {
	out := i
	if i.Price != nil {
		p := *i.Price
		out.Price = &p
	}
	out.Tags = append([]string{}, i.Tags...)
	out.PriceHistory = append([]PricePoint{}, i.PriceHistory...)
	return out
}

// Normalize repairs a freshly decoded item: missing collections become empty,
// tags are trimmed and de-duplicated keeping first occurrence, and invalid
// numbers are cleared.
func (i *Item) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Set = strings.TrimSpace(i.Set)
	i.Tags = NormalizeTags(i.Tags)
	if i.PriceHistory == nil {
		i.PriceHistory = []PricePoint{}
	}
	if i.Price != nil && (math.IsNaN(*i.Price) || math.IsInf(*i.Price, 0)) {
		i.Price = nil
	}
	if i.Quantity < 0 {
		i.Quantity = 0
	}
}

// NormalizeTags trims tags, drops blanks and removes duplicates while keeping
// insertion order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SanitizePrice maps NaN, infinities and negatives to 0.
func SanitizePrice(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// ItemInput is the payload for creating an item
type ItemInput struct {
	Name      string    `json:"name"`
	Set       string    `json:"set"`
	Condition Condition `json:"condition"`
	Quantity  *int      `json:"quantity"`
	Price     *float64  `json:"price"`
	Notes     string    `json:"notes"`
	ImageURL  string    `json:"imageUrl"`
	Tags      []string  `json:"tags"`
}

// ItemPatch is a partial update. Nil fields are left untouched. An explicit
// "price": null sets ClearPrice, which removes the price.
type ItemPatch struct {
	Name         *string       `json:"name,omitempty"`
	Set          *string       `json:"set,omitempty"`
	Condition    *Condition    `json:"condition,omitempty"`
	Quantity     *int          `json:"quantity,omitempty"`
	Price        *float64      `json:"price,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
	ImageURL     *string       `json:"imageUrl,omitempty"`
	Tags         *[]string     `json:"tags,omitempty"`
	PriceHistory *[]PricePoint `json:"priceHistory,omitempty"`
	ClearPrice   bool          `json:"-"`
}

// IsEmpty reports whether the patch changes nothing
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Set == nil && p.Condition == nil && p.Quantity == nil &&
		p.Price == nil && !p.ClearPrice && p.Notes == nil && p.ImageURL == nil && p.Tags == nil &&
		p.PriceHistory == nil
}

// MarshalJSON writes "price": null for a patch that clears the price
func (p ItemPatch) MarshalJSON() ([]byte, error) {
	type plain ItemPatch
	if !p.ClearPrice {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		Price *float64 `json:"price"`
	}{plain: plain(p)})
}

func (p *ItemPatch) UnmarshalJSON(data []byte) error {
	type plain ItemPatch
	var raw struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ItemPatch(raw.plain)
	switch {
	case raw.Price == nil:
	case string(raw.Price) == "null":
		p.ClearPrice = true
	default:
		var price float64
		if err := json.Unmarshal(raw.Price, &price); err != nil {
			return err
		}
		p.Price = &price
	}
	return nil
}

// Apply copies the non-nil patch fields onto item.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Set != nil {
		item.Set = *p.Set
	}
	if p.Condition != nil {
		item.Condition = *p.Condition
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Price != nil {
		price := *p.Price
		item.Price = &price
	} else if p.ClearPrice {
		item.Price = nil
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Tags != nil {
		item.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.PriceHistory != nil {
		item.PriceHistory = append([]PricePoint{}, (*p.PriceHistory)...)
	}
}
