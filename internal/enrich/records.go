// Package enrich turns fetched orders into flat enrichment records and
// serializes them into the tabular payload consumed downstream.
package enrich

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"shipenrich/internal/shipstation"
)

const (
	// SerialNotFound is the sentinel serial for orders whose notes yielded
	// no extractable serial. The record is kept so no order is silently
	// dropped from the payload.
	SerialNotFound = "NOT FOUND"

	// Retailer is fixed for this channel.
	Retailer = "shopify"

	// StatusUnassigned is the initial device status. This pipeline reports
	// it but never advances it; status transitions belong to the console's
	// own bulk-update flow.
	StatusUnassigned = "unassigned"

	rawNotesLimit = 200
)

// Record is one enrichment row: one per extracted serial, or exactly one
// sentinel per order with no serials. IMEI, ICCID and SIMProvider start
// empty and are filled in exactly once by the console lookup phase.
type Record struct {
	SKU         string
	Serial      string
	IMEI        string
	ICCID       string
	SIMProvider string
	Retailer    string
	Status      string
	OrderNumber string
	RawNotes    string
}

// Resolved reports whether the lookup phase recovered any device identifier.
func (r Record) Resolved() bool {
	return r.IMEI != "" || r.ICCID != ""
}

// Sentinel reports whether this record is the no-serial placeholder.
func (r Record) Sentinel() bool {
	return r.Serial == SerialNotFound
}

// Serials are short 5-7 digit device identifiers. Token boundaries exclude
// runs embedded in longer numbers such as phone numbers.
var serialPattern = regexp.MustCompile(`\b\d{5,7}\b`)

// ExtractSerials scans free text for serial numbers, preserving discovery
// order. Duplicates are kept: a multi-quantity order can legitimately list
// the same serial-shaped token for distinct units.
func ExtractSerials(text string) []string {
	if text == "" {
		return nil
	}
	return serialPattern.FindAllString(text, -1)
}

// BuildRecords flattens orders into records. Every order produces at least
// one record. Serial i is aligned with line-item SKU i when available,
// falling back to the first SKU; the source order of serials in free text is
// not guaranteed to match line-item order, so this alignment is a heuristic.
func BuildRecords(orders []shipstation.Order, logger *zap.Logger) []Record {
	var records []Record

	for _, order := range orders {
		skus := make([]string, 0, len(order.Items))
		for _, item := range order.Items {
			skus = append(skus, item.SKU)
		}

		serials := ExtractSerials(order.InternalNotes)
		if len(serials) == 0 {
			notes := order.InternalNotes
			excerpt := truncate(notes, rawNotesLimit)
			logger.Warn("no serial numbers found in notes",
				zap.String("order", order.OrderNumber),
				zap.String("notes", truncate(notes, 100)))
			records = append(records, Record{
				SKU:         strings.Join(skus, ", "),
				Serial:      SerialNotFound,
				Retailer:    Retailer,
				Status:      StatusUnassigned,
				OrderNumber: order.OrderNumber,
				RawNotes:    excerpt,
			})
			continue
		}

		for i, serial := range serials {
			var sku string
			switch {
			case i < len(skus):
				sku = skus[i]
			case len(skus) > 0:
				sku = skus[0]
			}
			records = append(records, Record{
				SKU:         sku,
				Serial:      serial,
				Retailer:    Retailer,
				Status:      StatusUnassigned,
				OrderNumber: order.OrderNumber,
			})
		}
	}

	logger.Info("built enrichment records",
		zap.Int("records", len(records)),
		zap.Int("orders", len(orders)))
	return records
}

// truncate bounds s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
