// Package classify holds the pure verdict functions that turn a raw item
// snapshot into availability, buyability, and basket-eligibility signals.
//
// The three signals are deliberately distinct: IsAvailable is the broad
// "worth telling anyone about" check (it tolerates in-store-only stock),
// IsBuyable is the narrow "can a customer purchase this online right now"
// check, and CanAddToBasket is a purely commercial gate independent of
// physical stock.
package classify

import (
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Gates are the caller-supplied per-store gating flags. When a gate is
// enabled and the corresponding snapshot field is absent, the gate fails
// (absent means false under an enabled gate).
type Gates struct {
	CheckOnlineStatus bool
	CheckInAssortment bool
}

// pass evaluates both commercial gates against the snapshot. A disabled
// gate always passes.
func (g Gates) pass(it *domain.Item) bool {
	online := true
	if g.CheckOnlineStatus {
		online = false
		if it.Product != nil {
			online = domain.BoolOr(it.Product.OnlineStatus, false)
		}
	}

	inAssortment := true
	if g.CheckInAssortment {
		inAssortment = false
		if it.Control != nil {
			inAssortment = domain.BoolOr(it.Control.InAssortment, false)
		}
	}

	return online && inAssortment
}

// IsAvailable reports whether the item is in a state worth alerting
// about. Passing gates decide outright; otherwise availability falls back
// to the delivery descriptor, so in-store or stocked warehouse items stay
// visible even when they cannot be bought online.
func IsAvailable(it *domain.Item, gates Gates) bool {
	if gates.pass(it) {
		return true
	}
	return deliveryInStock(it.Availability.Delivery)
}

// IsBuyable reports whether the item can presently be purchased through
// the online channel: the gates must pass and the delivery descriptor
// must show stock.
func IsBuyable(it *domain.Item, gates Gates) bool {
	if !gates.pass(it) {
		return false
	}
	return deliveryInStock(it.Availability.Delivery)
}

// CanAddToBasket reports commercial eligibility only, ignoring physical
// stock entirely. It gates checkout-queue admission.
func CanAddToBasket(it *domain.Item, gates Gates) bool {
	return gates.pass(it)
}

// deliveryInStock maps the closed delivery-kind set to a stock verdict.
// Unknown kinds are rejected at decode time (domain.ParseDeliveryKind),
// so the switch here is exhaustive over the parsed set; a nil descriptor
// counts as no stock.
func deliveryInStock(d *domain.Delivery) bool {
	if d == nil {
		return false
	}
	switch d.Kind {
	case domain.DeliveryInStore:
		return true
	case domain.DeliveryInWarehouse, domain.DeliveryLongTail:
		return d.Quantity > 0
	case domain.DeliveryNone:
		return false
	}
	return false
}
