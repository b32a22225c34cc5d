package export

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
)

// ValuationRow is one line of an inventory valuation export: on-hand quantity
// priced at the weighted average cost.
type ValuationRow struct {
	ItemID uuid.UUID
	SKU    string
	Qty    decimal.Decimal
	Wac    decimal.Decimal
	Value  decimal.Decimal
}

// WriteValuationCSV serialises a valuation report to CSV.
func WriteValuationCSV(w io.Writer, rows []ValuationRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item ID", "SKU", "Qty", "WAC", "Value"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.ItemID.String(),
			row.SKU,
			row.Qty.String(),
			row.Wac.String(),
			row.Value.String(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLedgerCSV serialises movement entries to CSV in their stored order.
func WriteLedgerCSV(w io.Writer, entries []ledger.Entry) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"ID", "Item ID", "Location ID", "Lot ID", "Qty", "Reason", "Source Type", "Source ID", "Created At"}); err != nil {
		return err
	}
	for _, e := range entries {
		lotID := ""
		if e.LotID != nil {
			lotID = e.LotID.String()
		}
		if err := writer.Write([]string{
			e.ID.String(),
			e.ItemID.String(),
			e.LocationID.String(),
			lotID,
			e.Qty.String(),
			string(e.Reason),
			e.SourceType,
			e.SourceID.String(),
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// RenderValuationCSV renders the report into a bundle file.
func RenderValuationCSV(name string, rows []ValuationRow) (File, error) {
	var buf bytes.Buffer
	if err := WriteValuationCSV(&buf, rows); err != nil {
		return File{}, err
	}
	return File{Name: name, Content: buf.Bytes()}, nil
}

// RenderLedgerCSV renders the entries into a bundle file.
func RenderLedgerCSV(name string, entries []ledger.Entry) (File, error) {
	var buf bytes.Buffer
	if err := WriteLedgerCSV(&buf, entries); err != nil {
		return File{}, err
	}
	return File{Name: name, Content: buf.Bytes()}, nil
}
