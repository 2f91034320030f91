// Package pricing normalizes prices out of the catalog's mixed offer
// schemas and computes the variation between observations.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
)

// Quote is the normalized reading of one catalog match: the tracked price,
// if one could be extracted, and the display name. A nil Price means no
// usable price, not a free product.
type Quote struct {
	Price *decimal.Decimal
	Name  string
}

// Extract reads the price and name from a match. The price lives at the
// first seller of the first SKU; anything missing along that path yields a
// Quote without a price but keeps whatever name was found. Prices are only
// valid when strictly positive and come back rounded to two decimals.
func Extract(match catalog.Match) Quote {
	if match.Product == nil {
		return Quote{}
	}
	name := match.Product.DisplayName()

	items := match.Product.Items
	if len(items) == 0 {
		return Quote{Name: name}
	}
	sellers := items[0].Sellers
	if len(sellers) == 0 {
		return Quote{Name: name}
	}
	offer := sellers[0].Offer
	if offer == nil {
		return Quote{Name: name}
	}

	raw := offer.EffectivePrice()
	if raw <= 0 {
		return Quote{Name: name}
	}
	price := decimal.NewFromFloat(raw).Round(2)
	return Quote{Price: &price, Name: name}
}

// Variation is the percent change from old to new, rounded to two
// decimals. It is undefined until a previous price exists and is nonzero;
// undefined is nil, never zero.
func Variation(newPrice decimal.Decimal, oldPrice *decimal.Decimal) *decimal.Decimal {
	if oldPrice == nil || oldPrice.IsZero() {
		return nil
	}
	v := newPrice.Sub(*oldPrice).
		Div(*oldPrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return &v
}
