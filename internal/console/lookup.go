package console

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// searchLocators rank the ways of finding the device search control. Shared
// by login verification, lookup, and search reset.
var searchLocators = []locator{
	{css: `input[placeholder*="IMEI or Serial"]`},
	{css: `input[placeholder*="Type Name"]`},
	{css: `input[placeholder*="Serial number"]`},
	{css: `input[placeholder*="IMEI"]`},
}

// Lookup searches the console for one serial and extracts its device
// identifiers from the result surface. Unresolved lookups and interaction
// failures both yield an empty Result with a diagnostic screenshot; they
// never abort the batch. After every lookup the search state is reset so
// lookups stay independent and order-insensitive.
func (s *Session) Lookup(serial string) Result {
	s.logger.Info("looking up serial", zap.String("serial", serial))

	res, err := s.lookup(serial)
	if err != nil {
		s.screenshot("lookup_error_" + serial)
		s.logger.Error("lookup failed, recovering session",
			zap.String("serial", serial),
			zap.Error(err))
		s.recoverHome()
		return Result{}
	}
	return res
}

func (s *Session) lookup(serial string) (Result, error) {
	search, err := findFirst(s.page, findTimeout, searchLocators...)
	if err != nil {
		return Result{}, fmt.Errorf("locate search control: %w", err)
	}

	// Replace any previous query wholesale.
	if err := search.SelectAllText(); err != nil {
		s.logger.Debug("could not select existing query", zap.Error(err))
	}
	if err := search.Input(serial); err != nil {
		return Result{}, fmt.Errorf("type query: %w", err)
	}
	if err := search.Type(input.Enter); err != nil {
		return Result{}, fmt.Errorf("submit query: %w", err)
	}
	s.settle()

	body, err := s.page.Timeout(findTimeout).Element("body")
	if err != nil {
		return Result{}, fmt.Errorf("read result surface: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return Result{}, fmt.Errorf("read result text: %w", err)
	}

	res, serialSeen := parseLookup(serial, text)
	switch {
	case res.Resolved():
		s.logger.Info("serial resolved",
			zap.String("serial", serial),
			zap.String("imei", res.IMEI),
			zap.String("iccid", res.ICCID))
	case serialSeen:
		s.screenshot("search_" + serial)
		s.logger.Warn("serial found but no identifiers nearby", zap.String("serial", serial))
	default:
		s.screenshot("search_" + serial)
		s.logger.Warn("serial not found in results", zap.String("serial", serial))
	}

	s.resetSearch(search)
	return res, nil
}

// resetSearch returns the console to a clean query state: close the detail
// overlay when one is open, otherwise clear the input directly.
func (s *Session) resetSearch(search *rod.Element) {
	if closeBtn, err := findFirst(s.page, shortTimeout,
		locator{css: `[aria-label="Close"]`},
		locator{css: "button", text: "×"},
	); err == nil {
		if err := closeBtn.Click(proto.InputMouseButtonLeft, 1); err == nil {
			s.settle()
			return
		}
	}

	if err := search.SelectAllText(); err == nil {
		if err := search.Type(input.Backspace); err != nil {
			s.logger.Debug("could not clear search input", zap.Error(err))
		}
	}
	s.settle()
}
