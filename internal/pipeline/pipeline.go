// Package pipeline sequences ingestion, extraction, console lookup, and
// payload delivery for one run, enforcing the partial-failure policy: one
// bad order or one failed lookup never aborts the whole run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"shipenrich/internal/config"
	"shipenrich/internal/console"
	"shipenrich/internal/enrich"
	"shipenrich/internal/shipstation"
)

// OrderSource yields the shipped orders for one date and store.
type OrderSource interface {
	ShippedOrders(ctx context.Context, date, storeID string) ([]shipstation.Order, error)
}

// LookupSession is one authenticated console session. The orchestrator owns
// it exclusively across both the lookup phase and the bulk-update phase so
// authentication happens once.
type LookupSession interface {
	Lookup(serial string) console.Result
	BulkUpdate(csvPath string) error
	Close() error
}

// SessionOpener opens an authenticated session. Separated out so the
// orchestrator only pays for browser startup when there is something to
// look up.
type SessionOpener func(ctx context.Context) (LookupSession, error)

// DocStore accepts the finished tabular payload and returns a file handle.
type DocStore interface {
	UploadCSV(ctx context.Context, name string, payload []byte) (string, error)
}

// Orchestrator drives one enrichment run.
type Orchestrator struct {
	orders      OrderSource
	openSession SessionOpener
	store       DocStore
	storeID     string
	lookupDelay time.Duration
	logger      *zap.Logger
}

// New wires an orchestrator from its collaborators.
func New(orders OrderSource, opener SessionOpener, store DocStore, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		orders:      orders,
		openSession: opener,
		store:       store,
		storeID:     cfg.ShipStation.StoreID,
		lookupDelay: cfg.Run.GetLookupDelay(),
		logger:      logger,
	}
}

// Run executes the full pipeline for one date.
//
// Failure policy: ingestion and authentication failures abort the run;
// per-serial lookup failures are absorbed by the session; a document-store
// failure aborts (the payload is the run's whole point); a console
// bulk-update failure is downgraded to an actionable warning because the
// payload has already reached the store. The session, once opened, is
// released exactly once on every exit path.
func (o *Orchestrator) Run(ctx context.Context, date time.Time, dryRun bool) error {
	dateStr := date.Format("2006-01-02")
	o.logger.Info("run started",
		zap.String("date", dateStr),
		zap.Bool("dryRun", dryRun))

	orders, err := o.orders.ShippedOrders(ctx, dateStr, o.storeID)
	if err != nil {
		return fmt.Errorf("ingest shipped orders: %w", err)
	}
	if len(orders) == 0 {
		o.logger.Info("no shipped orders for date, nothing to do", zap.String("date", dateStr))
		return nil
	}

	records := enrich.BuildRecords(orders, o.logger)

	toLookup := 0
	for _, r := range records {
		if !r.Sentinel() {
			toLookup++
		}
	}

	var session LookupSession
	if toLookup > 0 {
		session, err = o.openSession(ctx)
		if err != nil {
			return fmt.Errorf("open console session: %w", err)
		}
		defer func() {
			_ = session.Close()
		}()

		for i := range records {
			if records[i].Sentinel() {
				continue
			}
			res := session.Lookup(records[i].Serial)
			records[i].IMEI = res.IMEI
			records[i].ICCID = res.ICCID
			records[i].SIMProvider = res.SIMProvider

			// Polite pacing between lookups against the third-party console.
			if err := sleepCtx(ctx, o.lookupDelay); err != nil {
				return err
			}
		}

		resolved := 0
		for _, r := range records {
			if r.Resolved() {
				resolved++
			}
		}
		o.logger.Info("console enrichment complete",
			zap.Int("resolved", resolved),
			zap.Int("lookedUp", toLookup))
	} else {
		o.logger.Warn("no serial numbers to look up")
	}

	payload := enrich.Payload(records)

	if dryRun {
		return o.finishDryRun(dateStr, records, payload)
	}
	return o.finishLive(ctx, date, session, payload)
}

// finishDryRun persists the payload locally and reports each record's
// resolution without touching any external system.
func (o *Orchestrator) finishDryRun(dateStr string, records []enrich.Record, payload []byte) error {
	path := dateStr + "_dry_run.csv"
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write dry-run payload: %w", err)
	}
	o.logger.Info("dry run, skipping uploads", zap.String("payload", path))

	for _, r := range records {
		o.logger.Info("record",
			zap.String("order", r.OrderNumber),
			zap.String("serial", r.Serial),
			zap.String("imei", orDash(r.IMEI)),
			zap.String("iccid", orDash(r.ICCID)))
	}
	return nil
}

// finishLive uploads the payload to the document store (hard dependency),
// then pushes it back into the console (soft dependency).
func (o *Orchestrator) finishLive(ctx context.Context, date time.Time, session LookupSession, payload []byte) error {
	name := enrich.SheetTitle(date) + ".csv"
	fileID, err := o.store.UploadCSV(ctx, name, payload)
	if err != nil {
		return fmt.Errorf("upload payload to document store: %w", err)
	}
	o.logger.Info("payload stored", zap.String("file", name), zap.String("id", fileID))

	if session == nil {
		o.logger.Warn("console session not available, skipping retailer update",
			zap.String("recovery", "upload the stored CSV manually: Devices > Actions > Update Retailer"))
		return nil
	}

	tmp, err := os.CreateTemp("", "shopify_shipment_*.csv")
	if err != nil {
		return fmt.Errorf("stage payload for console upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("stage payload for console upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage payload for console upload: %w", err)
	}

	if err := session.BulkUpdate(tmp.Name()); err != nil {
		// Non-fatal: the enrichment data already reached the store.
		o.logger.Warn("console bulk update failed",
			zap.Error(err),
			zap.String("recovery", "upload the stored CSV manually: Devices > Actions > Update Retailer"))
		return nil
	}

	o.logger.Info("run complete")
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
