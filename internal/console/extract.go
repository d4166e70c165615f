package console

import (
	"fmt"
	"regexp"
)

// Result is the device data recovered for one serial. Any or all fields may
// be empty; empty means unresolved, never an error.
type Result struct {
	IMEI        string
	ICCID       string
	SIMProvider string
}

// Resolved reports whether any identifier was recovered.
func (r Result) Resolved() bool {
	return r.IMEI != "" || r.ICCID != "" || r.SIMProvider != ""
}

var (
	imeiPattern  = regexp.MustCompile(`IMEI:\s*(\d{14,15})`)
	iccidPattern = regexp.MustCompile(`ICCID:\s*(\d{19,22})`)
)

// fallbackWindow bounds how far past the serial token the fallback tier
// searches for identifiers.
const fallbackWindow = 300

// parseLookup extracts device identifiers for serial from the rendered
// result-surface text. Two tiers:
//
//  1. Primary: one combined pattern requiring serial, IMEI, and ICCID to
//     co-occur in the console's fixed card ordering.
//  2. Fallback: locate the serial token alone, then scan only a bounded
//     window of following text for IMEI and ICCID independently.
//
// The second return reports whether the serial token appeared at all, which
// distinguishes "device not in results" from "device found but fields
// missing" for diagnostics.
func parseLookup(serial, text string) (Result, bool) {
	quoted := regexp.QuoteMeta(serial)

	primary := regexp.MustCompile(fmt.Sprintf(
		`Serial:\s*%s\s+IMEI:\s*(\d{14,15})\s+ICCID:\s*(\d{19,22})`, quoted))
	if m := primary.FindStringSubmatch(text); m != nil {
		return Result{IMEI: m[1], ICCID: m[2]}, true
	}

	serialToken := regexp.MustCompile(`Serial:\s*` + quoted)
	loc := serialToken.FindStringIndex(text)
	if loc == nil {
		return Result{}, false
	}

	end := loc[0] + fallbackWindow
	if end > len(text) {
		end = len(text)
	}
	nearby := text[loc[0]:end]

	var res Result
	if m := imeiPattern.FindStringSubmatch(nearby); m != nil {
		res.IMEI = m[1]
	}
	if m := iccidPattern.FindStringSubmatch(nearby); m != nil {
		res.ICCID = m[1]
	}
	return res, true
}
