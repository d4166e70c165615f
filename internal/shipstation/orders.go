package shipstation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// ShipmentEvent is one row of the paginated shipment listing. It exists only
// long enough to compute the set of order IDs to fetch.
type ShipmentEvent struct {
	OrderID  int64  `json:"orderId"`
	ShipDate string `json:"shipDate"`
}

// Order is the full order detail. Immutable once fetched.
type Order struct {
	OrderNumber   string `json:"orderNumber"`
	InternalNotes string `json:"internalNotes"`
	Items         []Item `json:"items"`
}

// Item is one order line item.
type Item struct {
	SKU string `json:"sku"`
}

// Store identifies one order source.
type Store struct {
	StoreID         int64  `json:"storeId"`
	StoreName       string `json:"storeName"`
	MarketplaceName string `json:"marketplaceName"`
}

type shipmentsPage struct {
	Shipments []ShipmentEvent `json:"shipments"`
	Pages     int             `json:"pages"`
}

// ListStores returns all configured stores so the operator can find the
// store ID for the target channel.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	raw, err := c.get(ctx, "/stores", nil)
	if err != nil {
		return nil, err
	}
	var stores []Store
	if err := json.Unmarshal(raw, &stores); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}
	return stores, nil
}

// ShippedOrders returns the full detail of every order shipped on the given
// date (YYYY-MM-DD) for one store.
//
// The shipment listing is the only endpoint that filters reliably by date,
// so ingestion pages through it first, deduplicates to order IDs, then
// fetches each order individually for its internal notes. A failed order
// fetch is logged and skipped; it never aborts the batch. An empty result
// is a valid outcome meaning nothing shipped that day.
func (c *Client) ShippedOrders(ctx context.Context, date, storeID string) ([]Order, error) {
	c.logger.Info("fetching shipments",
		zap.String("date", date),
		zap.String("store", storeID))

	var events []ShipmentEvent
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("shipDateStart", date+"T00:00:00")
		params.Set("shipDateEnd", date+"T23:59:59")
		params.Set("storeId", storeID)
		params.Set("pageSize", strconv.Itoa(c.pageSize))
		params.Set("page", strconv.Itoa(page))

		raw, err := c.get(ctx, "/shipments", params)
		if err != nil {
			return nil, fmt.Errorf("list shipments page %d: %w", page, err)
		}

		var pg shipmentsPage
		if err := json.Unmarshal(raw, &pg); err != nil {
			return nil, fmt.Errorf("decode shipments page %d: %w", page, err)
		}
		events = append(events, pg.Shipments...)

		c.logger.Info("shipments page",
			zap.Int("page", page),
			zap.Int("count", len(pg.Shipments)),
			zap.Int("total", len(events)))

		// Stop on the reported page count, not on an empty page: the final
		// page may legitimately contain zero shipments.
		pages := pg.Pages
		if pages < 1 {
			pages = 1
		}
		if page >= pages {
			break
		}
	}

	if len(events) == 0 {
		return nil, nil
	}

	// Multiple shipments can reference the same order; dedupe at the order
	// level, keeping first-seen order for determinism.
	seen := make(map[int64]bool, len(events))
	var orderIDs []int64
	for _, ev := range events {
		if ev.OrderID == 0 || seen[ev.OrderID] {
			continue
		}
		seen[ev.OrderID] = true
		orderIDs = append(orderIDs, ev.OrderID)
	}
	c.logger.Info("deduplicated shipments",
		zap.Int("shipments", len(events)),
		zap.Int("orders", len(orderIDs)))

	var orders []Order
	for _, id := range orderIDs {
		raw, err := c.get(ctx, fmt.Sprintf("/orders/%d", id), nil)
		if err != nil {
			c.logger.Warn("could not fetch order, skipping",
				zap.Int64("orderId", id),
				zap.Error(err))
			continue
		}
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			c.logger.Warn("could not decode order, skipping",
				zap.Int64("orderId", id),
				zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}

	c.logger.Info("fetched order details", zap.Int("orders", len(orders)))
	return orders, nil
}
