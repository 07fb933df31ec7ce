package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidExpiry = errors.New("invalid expiry format")

var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseExpiry converts an "<integer><unit>" window such as "15m" or "7d"
// into a duration. Units are s, m, h and d.
func ParseExpiry(s string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, s)
	}

	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, s)
	}

	switch m[2] {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	default:
		return time.Duration(value) * 24 * time.Hour, nil
	}
}
