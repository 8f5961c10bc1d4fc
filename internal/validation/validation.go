// Package validation provides input validation helpers for the verification API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxCodeLength caps submitted batch codes; anything longer cannot be a
// printed batch identifier and is truncated before lookup.
const MaxCodeLength = 64

// batchCodeRegex matches the printed batch ID format: alphanumeric, already
// uppercased. Used only for a soft well-formedness signal; malformed codes
// still go through lookup and simply come back not-found.
var batchCodeRegex = regexp.MustCompile(`^[A-Z0-9-]+$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// NormalizeBatchCode trims surrounding whitespace, uppercases, and caps the
// length of a submitted batch code. Codes differing only by case or
// surrounding whitespace normalize to the same value.
func NormalizeBatchCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) > MaxCodeLength {
		code = code[:MaxCodeLength]
	}
	return strings.ToUpper(code)
}

// IsWellFormedCode reports whether a normalized code looks like a printed
// batch identifier.
func IsWellFormedCode(code string) bool {
	return code != "" && batchCodeRegex.MatchString(code)
}

// ValidCoordinates reports whether both coordinates are present and in range.
// A location is only attached to a verification when both are valid.
func ValidCoordinates(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lng >= -180 && *lng <= 180
}
