package server

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var errInvalidDate = errors.New("invalid_date")

// queryBool parses an optional boolean filter; empty means unset.
func queryBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryDate accepts RFC 3339 or a bare date. A bare date is widened to the
// first or last instant of that UTC day so date_to includes the whole day.
func queryDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return nil, errInvalidDate
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}
