package enrich

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Column layout matches the destination sheet exactly: two deliberately
// blank columns, header always present.
var payloadHeader = []string{"SKU", "", "Serial", "IMEI", "ICCID", "", "SIM Provider", "Retailer", "Status"}

// Payload renders records into the tabular CSV consumed by both the
// document store and the console bulk update. One data row per record, in
// record order.
func Payload(records []Record) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write(payloadHeader)
	for _, r := range records {
		_ = w.Write([]string{
			"", "", r.Serial, r.IMEI, r.ICCID,
			"", r.SIMProvider, r.Retailer, r.Status,
		})
	}
	w.Flush()
	return buf.Bytes()
}

// SheetName formats a date as M.DD.YY: no leading zero on the month,
// two-digit day and year. 2026-02-26 renders as "2.26.26".
func SheetName(date time.Time) string {
	return fmt.Sprintf("%d.%02d.%02d", int(date.Month()), date.Day(), date.Year()%100)
}

// SheetTitle is the destination file title for one run date.
func SheetTitle(date time.Time) string {
	return "Shopify Shipment - " + SheetName(date)
}
