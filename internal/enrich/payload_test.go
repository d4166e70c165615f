package enrich

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_ColumnContract(t *testing.T) {
	records := []Record{
		{Serial: "263384", IMEI: "862601768000477", ICCID: "8901176000000000001", Retailer: "shopify", Status: "unassigned"},
		{Serial: SerialNotFound, Retailer: "shopify", Status: "unassigned"},
	}

	rows, err := csv.NewReader(strings.NewReader(string(Payload(records)))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per record")

	assert.Equal(t, []string{"SKU", "", "Serial", "IMEI", "ICCID", "", "SIM Provider", "Retailer", "Status"}, rows[0])
	assert.Equal(t, []string{"", "", "263384", "862601768000477", "8901176000000000001", "", "", "shopify", "unassigned"}, rows[1])
	assert.Equal(t, "NOT FOUND", rows[2][2], "sentinel records are serialized, never dropped")
}

func TestPayload_HeaderAlwaysPresent(t *testing.T) {
	rows, err := csv.NewReader(strings.NewReader(string(Payload(nil)))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU", rows[0][0])
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2026-02-26", "2.26.26"},
		{"2026-12-01", "12.01.26"},
		{"2025-01-09", "1.09.25"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			date, err := time.Parse("2006-01-02", tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SheetName(date))
		})
	}
}

func TestSheetTitle(t *testing.T) {
	date, _ := time.Parse("2006-01-02", "2026-02-26")
	assert.Equal(t, "Shopify Shipment - 2.26.26", SheetTitle(date))
}
