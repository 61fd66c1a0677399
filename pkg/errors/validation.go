package errors

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the calendar date format used by the simulation backend.
const DateLayout = "2006-01-02"

// maxRangeDays bounds the simulation window a caller may request.
const maxRangeDays = 5 * 365

// tickerRegex matches exchange symbols such as AAPL, BRK.B or RDS-A.
var tickerRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}([.-][A-Z0-9]{1,4})?$`)

// ValidateTicker validates a ticker symbol before it is used in URLs,
// cache keys or database queries. Tickers are expected in upper case;
// callers should normalize with [NormalizeTicker] first.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return New(ErrCodeInvalidTicker, "ticker cannot be empty")
	}

	for _, r := range ticker {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTicker, "ticker contains invalid control characters")
		}
	}

	if !tickerRegex.MatchString(ticker) {
		return New(ErrCodeInvalidTicker, "invalid ticker: %q", ticker)
	}
	return nil
}

// NormalizeTicker trims whitespace and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateDateRange parses start and end as YYYY-MM-DD dates and checks that
// start is not after end. Either bound may be empty, in which case the
// backend picks its default window.
func ValidateDateRange(start, end string) error {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse(DateLayout, start); err != nil {
			return Wrap(ErrCodeInvalidDate, err, "invalid start date %q (want YYYY-MM-DD)", start)
		}
	}
	if end != "" {
		if e, err = time.Parse(DateLayout, end); err != nil {
			return Wrap(ErrCodeInvalidDate, err, "invalid end date %q (want YYYY-MM-DD)", end)
		}
	}
	if start == "" || end == "" {
		return nil
	}
	if s.After(e) {
		return New(ErrCodeInvalidDate, "start date %s is after end date %s", start, end)
	}
	if e.Sub(s) > maxRangeDays*24*time.Hour {
		return New(ErrCodeInvalidDate, "date range too long (max %d days)", maxRangeDays)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
