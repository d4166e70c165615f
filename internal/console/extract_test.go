package console

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLookup_PrimaryPattern(t *testing.T) {
	text := "GPX Devices\n274341\nID: 337927 Serial: 274341 IMEI: 862601768000477 ICCID: 8901176000000000001\nfooter"

	res, seen := parseLookup("274341", text)
	assert.True(t, seen)
	assert.Equal(t, "862601768000477", res.IMEI)
	assert.Equal(t, "8901176000000000001", res.ICCID)
	assert.True(t, res.Resolved())
}

func TestParseLookup_FallbackWithinWindow(t *testing.T) {
	// Fields out of the fixed ordering, so only the fallback tier matches.
	text := "Serial: 274341\nStatus: active\nICCID: 8901176000000000001\nIMEI: 862601768000477"

	res, seen := parseLookup("274341", text)
	assert.True(t, seen)
	assert.Equal(t, "862601768000477", res.IMEI)
	assert.Equal(t, "8901176000000000001", res.ICCID)
}

func TestParseLookup_FallbackPartialFields(t *testing.T) {
	text := "Serial: 274341 some card text IMEI: 86260176800047 no sim data"

	res, seen := parseLookup("274341", text)
	assert.True(t, seen)
	assert.Equal(t, "86260176800047", res.IMEI, "14-digit IMEI accepted")
	assert.Empty(t, res.ICCID)
	assert.True(t, res.Resolved())
}

func TestParseLookup_SerialAloneIsUnresolved(t *testing.T) {
	text := "Serial: 274341\nno identifiers anywhere near"

	res, seen := parseLookup("274341", text)
	assert.True(t, seen, "serial token was present")
	assert.False(t, res.Resolved())
	assert.Empty(t, res.IMEI)
	assert.Empty(t, res.ICCID)
}

func TestParseLookup_FieldsBeyondWindowIgnored(t *testing.T) {
	text := "Serial: 274341 " + strings.Repeat("pad ", 100) + "IMEI: 862601768000477"
	require.Greater(t, len(text), fallbackWindow)

	res, seen := parseLookup("274341", text)
	assert.True(t, seen)
	assert.False(t, res.Resolved(), "identifiers outside the bounded window do not count")
}

func TestParseLookup_SerialAbsent(t *testing.T) {
	res, seen := parseLookup("274341", "Serial: 999999 IMEI: 862601768000477 ICCID: 8901176000000000001")
	assert.False(t, seen)
	assert.False(t, res.Resolved())
}

func TestParseLookup_WrongLengthIdentifiersRejected(t *testing.T) {
	// 13-digit IMEI and 18-digit ICCID are both out of range.
	text := "Serial: 274341 IMEI: 8626017680004 ICCID: 890117600000000001"

	res, seen := parseLookup("274341", text)
	assert.True(t, seen)
	assert.Empty(t, res.IMEI)
	assert.Empty(t, res.ICCID)
}

func TestParseLookup_SerialWithRegexMetacharacters(t *testing.T) {
	// Serials are numeric today, but the search term is quoted defensively;
	// a metacharacter in the term must not panic or mismatch.
	res, seen := parseLookup("27.341", "Serial: 27x341 IMEI: 86260176800047")
	assert.False(t, seen)
	assert.False(t, res.Resolved())
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("no form")
	err := &AuthError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestBulkUpdateError_IncludesStep(t *testing.T) {
	cause := errors.New("timeout")
	err := &BulkUpdateError{Step: "verify", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"verify"`)
}
