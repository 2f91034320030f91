package catalog

// Wire types for the retailer's catalog payloads. The upstream mixes two
// schema generations, so price fields exist in both lowercase and
// capitalized casings; both are held explicitly and read through the
// ordered helpers below.

type Product struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Name        string `json:"name"`
	ReleaseDate string `json:"releaseDate"`
	Items       []Item `json:"items"`
}

type Item struct {
	ItemID       string      `json:"itemId"`
	Name         string      `json:"name"`
	NameComplete string      `json:"nameComplete"`
	EAN          string      `json:"ean"`
	ReferenceID  []Reference `json:"referenceId"`
	Images       []Image     `json:"images"`
	Sellers      []Seller    `json:"sellers"`
}

type Reference struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type Image struct {
	ImageURL string `json:"imageUrl"`
}

type Seller struct {
	SellerID string `json:"sellerId"`
	Offer    *Offer `json:"commertialOffer"`
}

// Offer carries both casings of each price field. AvailableQuantity stays a
// pointer: absence and zero mean different things for availability.
type Offer struct {
	Price             float64  `json:"price"`
	PriceLegacy       float64  `json:"Price"`
	ListPrice         float64  `json:"listPrice"`
	ListPriceLegacy   float64  `json:"ListPrice"`
	AvailableQuantity *int     `json:"AvailableQuantity"`
	Teasers           []Teaser `json:"teasers"`
}

type Teaser struct {
	Name string `json:"name"`
}

// DisplayName prefers the short name over the catalog product name.
func (p *Product) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.ProductName
}

// SalePrice is the advertised price in either casing, without list fallback.
func (o *Offer) SalePrice() float64 {
	if o == nil {
		return 0
	}
	return firstPositive(o.Price, o.PriceLegacy)
}

// OriginalPrice is the list price in either casing, falling back to the
// sale price when the upstream omits it.
func (o *Offer) OriginalPrice() float64 {
	if o == nil {
		return 0
	}
	return firstPositive(o.ListPrice, o.ListPriceLegacy, o.SalePrice())
}

// EffectivePrice is the best price for tracking: sale price first, list
// price when the sale fields are empty.
func (o *Offer) EffectivePrice() float64 {
	if o == nil {
		return 0
	}
	return firstPositive(o.Price, o.PriceLegacy, o.ListPrice, o.ListPriceLegacy)
}

// Available reports whether the offer can be bought. A missing quantity
// field counts as available when the offer carries a positive price.
func (o *Offer) Available() bool {
	if o == nil {
		return false
	}
	if o.AvailableQuantity == nil {
		return o.SalePrice() > 0
	}
	return *o.AvailableQuantity > 0
}

// OfferType is the first teaser label, if any.
func (o *Offer) OfferType() string {
	if o == nil || len(o.Teasers) == 0 {
		return ""
	}
	return o.Teasers[0].Name
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// MatchSource states which heuristic resolved a code.
type MatchSource string

const (
	SourceDirectEAN   MatchSource = "direct-ean"
	SourceImageURL    MatchSource = "image-url"
	SourceReferenceID MatchSource = "reference-id"
	SourceSection     MatchSource = "section-scan"
	SourceUnresolved  MatchSource = "unresolved"
)

// Match ties one input code to its catalog record. Product is nil when the
// code could not be resolved. Context labels the search that produced the
// record, e.g. "ean-search:7891000100103".
type Match struct {
	Code    string
	Product *Product
	Source  MatchSource
	Context string
}

// Resolved reports whether the match carries a catalog record.
func (m Match) Resolved() bool {
	return m.Product != nil
}
