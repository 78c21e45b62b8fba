// Package domain defines the core business types for stocksentry.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DeliveryKind classifies how a store can fulfil an item. The set is
// closed: snapshots carrying any other value fail at decode time via
// ParseDeliveryKind rather than silently falling through.
type DeliveryKind string

// Delivery kind constants.
const (
	DeliveryInStore     DeliveryKind = "IN_STORE"
	DeliveryInWarehouse DeliveryKind = "IN_WAREHOUSE"
	DeliveryLongTail    DeliveryKind = "LONG_TAIL"
	DeliveryNone        DeliveryKind = "NONE"
)

// ParseDeliveryKind validates a raw delivery kind string. An empty string
// maps to DeliveryNone (absent descriptors are treated as not available);
// anything else outside the closed set is an error.
func ParseDeliveryKind(s string) (DeliveryKind, error) {
	switch DeliveryKind(s) {
	case DeliveryInStore, DeliveryInWarehouse, DeliveryLongTail, DeliveryNone:
		return DeliveryKind(s), nil
	}
	if s == "" {
		return DeliveryNone, nil
	}
	return "", fmt.Errorf("unknown delivery kind %q", s)
}

// Delivery describes physical stock for an item.
type Delivery struct {
	Kind     DeliveryKind `json:"kind"`
	Quantity int          `json:"quantity"`
}

// UnmarshalJSON enforces the closed DeliveryKind set on decode.
func (d *Delivery) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind     string `json:"kind"`
		Quantity int    `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseDeliveryKind(raw.Kind)
	if err != nil {
		return err
	}
	if raw.Quantity < 0 {
		return fmt.Errorf("negative delivery quantity %d", raw.Quantity)
	}
	d.Kind = kind
	d.Quantity = raw.Quantity
	return nil
}

// Product identifies a store product within an item snapshot.
type Product struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url,omitempty"`
	OnlineStatus *bool  `json:"online_status,omitempty"`
}

// ProductControl carries commercial eligibility flags that arrive
// separately from the product record.
type ProductControl struct {
	InAssortment *bool `json:"in_assortment,omitempty"`
}

// Price is a currency-tagged amount.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Availability wraps the optional delivery descriptor of a snapshot.
type Availability struct {
	Delivery *Delivery `json:"delivery,omitempty"`
}

// Item is one read-only product-stock snapshot supplied by an external
// store adapter. Optional fields stay pointers so "absent" is distinct
// from a zero value; gating policy lives with the caller.
type Item struct {
	Product      *Product        `json:"product,omitempty"`
	Control      *ProductControl `json:"control,omitempty"`
	Availability Availability    `json:"availability"`
	Price        *Price          `json:"price,omitempty"`
	SeenAt       time.Time       `json:"seen_at,omitempty"`
}

// PriceAmount returns the snapshot price, or NaN when the snapshot
// carries no usable price. Zero and negative amounts count as unusable.
func (it *Item) PriceAmount() float64 {
	if it.Price == nil || it.Price.Amount <= 0 {
		return math.NaN()
	}
	return it.Price.Amount
}

// ValidPrice reports whether p is a usable price value.
func ValidPrice(p float64) bool {
	return !math.IsNaN(p) && p > 0
}

// BoolOr returns the value of an optional flag, or def when absent.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// StoreInfo describes the retail store whose snapshots are being
// evaluated. Used for product URL resolution and display.
type StoreInfo struct {
	Name         string `json:"name"          yaml:"name"`
	ShortCode    string `json:"short_code"    yaml:"short_code"`
	BaseURL      string `json:"base_url"      yaml:"base_url"`
	LanguageCode string `json:"language_code" yaml:"language_code"`
}
