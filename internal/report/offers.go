// Package report builds the XLSX workbooks served by the export endpoints.
package report

import (
	"math"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
)

const (
	notFoundMarker = "NOT FOUND"
	noPriceMarker  = "no price"
	naMarker       = "N/A"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

var offerHeaders = []any{"EAN", "Category", "Name", "Original Price", "Offer Price", "Offer Type", "Valid Until"}

// Offers renders one row per SKU of every resolved match, and a NOT FOUND
// marker row per unresolved code.
func Offers(matches []catalog.Match) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &offerHeaders); err != nil {
		return nil, err
	}

	rowIndex := 2
	for _, match := range matches {
		for _, row := range offerRows(match) {
			cell, err := excelize.CoordinatesToCellName(1, rowIndex)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, err
			}
			rowIndex++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// offerRows flattens one match. Resolved products yield one row per SKU;
// a product without SKUs yields nothing.
func offerRows(match catalog.Match) [][]any {
	if !match.Resolved() {
		return [][]any{{match.Code, notFoundMarker, "", "", "", "", ""}}
	}

	product := match.Product
	validUntil := formatReleaseDate(product.ReleaseDate)

	rows := make([][]any, 0, len(product.Items))
	for _, item := range product.Items {
		name := item.Name
		if name == "" {
			name = item.NameComplete
		}
		if name == "" {
			name = product.DisplayName()
		}
		if name == "" {
			name = naMarker
		}
		name = htmlTagPattern.ReplaceAllString(name, "")

		ean := item.EAN
		if ean == "" {
			ean = naMarker
		}

		var offerPrice, originalPrice float64
		offerType := naMarker
		if offer := sellerOffer(item); offer != nil {
			offerPrice = round2(offer.SalePrice())
			originalPrice = round2(offer.OriginalPrice())
			if originalPrice < offerPrice {
				originalPrice = offerPrice
			}
			if len(offer.Teasers) > 0 {
				if offerType = offer.OfferType(); offerType == "" {
					offerType = "Oferta"
				}
			}
		}

		rows = append(rows, []any{
			ean,
			match.Context,
			name,
			priceCell(originalPrice),
			priceCell(offerPrice),
			offerType,
			validUntil,
		})
	}
	return rows
}

// sellerOffer picks the first seller that carries an offer at all, then
// keeps it only if the offer is buyable. Later sellers are never consulted.
func sellerOffer(item catalog.Item) *catalog.Offer {
	for _, seller := range item.Sellers {
		if seller.Offer == nil {
			continue
		}
		if seller.Offer.Available() {
			return seller.Offer
		}
		return nil
	}
	return nil
}

// priceCell writes zero prices as a literal marker instead of a number.
func priceCell(value float64) any {
	if value == 0 {
		return noPriceMarker
	}
	return value
}

// formatReleaseDate renders an epoch-milliseconds string as dd/mm/yyyy.
// Anything else, ISO dates included, comes out as N/A.
func formatReleaseDate(raw string) string {
	if raw == "" {
		return naMarker
	}
	var ms int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return naMarker
		}
		ms = ms*10 + int64(r-'0')
	}
	return time.UnixMilli(ms).UTC().Format("02/01/2006")
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
