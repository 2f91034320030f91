package report

import (
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
)

var trackedHeaders = []any{"Code", "Name", "Current Price", "Previous Price", "Variation %", "Last Checked", "Status"}

// Tracked renders the tracked list, one row per product. Unset prices and
// timestamps stay as empty cells.
func Tracked(products []tracker.TrackedProduct) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &trackedHeaders); err != nil {
		return nil, err
	}

	for i, product := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		var lastChecked string
		if product.LastCheckedAt != nil {
			lastChecked = product.LastCheckedAt.Format("2006-01-02 15:04:05")
		}

		row := []any{
			product.Code,
			product.Name,
			decimalCell(product.CurrentPrice),
			decimalCell(product.PreviousPrice),
			decimalCell(product.VariationPercent),
			lastChecked,
			string(product.Status),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decimalCell(value *decimal.Decimal) any {
	if value == nil {
		return ""
	}
	return value.InexactFloat64()
}
