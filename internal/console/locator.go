package console

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// locator is one way of finding a control on the page. The admin console is
// unversioned and its DOM drifts, so every interaction point is described as
// a ranked list of alternative locators rather than a single selector.
type locator struct {
	// css is the selector to match. Required.
	css string
	// text, when set, additionally requires the element's text to match
	// this pattern (regex, case-sensitive unless the pattern says otherwise).
	text string
}

func (l locator) String() string {
	if l.text != "" {
		return fmt.Sprintf("%s[text~%q]", l.css, l.text)
	}
	return l.css
}

// findFirst tries each locator in rank order and returns the first element
// found. The total wait is bounded by timeout, split evenly across the
// alternatives so a missing control fails within the budget instead of
// hanging on the first selector.
func findFirst(page *rod.Page, timeout time.Duration, locs ...locator) (*rod.Element, error) {
	per := timeout / time.Duration(len(locs))
	if per < 250*time.Millisecond {
		per = 250 * time.Millisecond
	}

	var lastErr error
	for _, loc := range locs {
		scoped := page.Timeout(per)
		var (
			el  *rod.Element
			err error
		)
		if loc.text != "" {
			el, err = scoped.ElementR(loc.css, loc.text)
		} else {
			el, err = scoped.Element(loc.css)
		}
		if err == nil {
			return el, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no locator matched %v: %w", locs, lastErr)
}
