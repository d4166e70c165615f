package console

import (
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// BulkUpdate pushes the enrichment payload back into the console's own
// records: Devices → Actions → Update Retailer → attach file → Verify Data
// → Update Devices. Every step is bounded; any failure captures a
// diagnostic screenshot and returns a BulkUpdateError. Uses the already
// authenticated session.
func (s *Session) BulkUpdate(csvPath string) error {
	s.logger.Info("uploading payload to console", zap.String("file", csvPath))

	step := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			s.screenshot("upload_" + name)
			return &BulkUpdateError{Step: name, Err: err}
		}
		return nil
	}

	if err := step("open-devices", func() error {
		el, err := findFirst(s.page, findTimeout,
			locator{css: `a, button, [role="button"], div, span`, text: "Devices"},
		)
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		s.settle()
		return nil
	}); err != nil {
		return err
	}

	if err := step("open-actions", func() error {
		el, err := findFirst(s.page, findTimeout,
			locator{css: "button", text: "Actions"},
			locator{css: `a, [role="button"], div, span`, text: "Actions"},
		)
		if err != nil {
			return err
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	}); err != nil {
		return err
	}

	if err := step("select-update-retailer", func() error {
		el, err := findFirst(s.page, findTimeout,
			locator{css: `a, button, [role="menuitem"], li, div, span`, text: "Update Retailer"},
		)
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		s.settle()
		return nil
	}); err != nil {
		return err
	}

	if err := step("attach-file", func() error {
		// The drag-and-drop area backs onto a hidden file input.
		el, err := s.page.Timeout(findTimeout).Element(`input[type="file"]`)
		if err != nil {
			return err
		}
		if err := el.SetFiles([]string{csvPath}); err != nil {
			return err
		}
		s.settle()
		return nil
	}); err != nil {
		return err
	}

	if err := step("verify", func() error {
		el, err := findFirst(s.page, findTimeout,
			locator{css: "button", text: "Verify Data"},
			locator{css: `a, [role="button"], div, span`, text: "Verify Data"},
		)
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		s.settle()
		return nil
	}); err != nil {
		return err
	}

	if err := step("commit", func() error {
		el, err := findFirst(s.page, findTimeout,
			locator{css: "button", text: "Update Devices"},
			locator{css: `a, [role="button"], div, span`, text: "Update Devices"},
		)
		if err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			return fmt.Errorf("scroll to commit control: %w", err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		s.settle()
		return nil
	}); err != nil {
		return err
	}

	s.logger.Info("console devices updated")
	return nil
}
