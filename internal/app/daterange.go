/**
 * @description
 * This file parses the date-range inputs accepted by the transaction history
 * surface: relative phrases such as "last week" or "last 3 months", and
 * explicit YYYY-MM-DD start/end dates. The parsed range is validated against
 * the retention cap before any query runs.
 *
 * @notes
 * - A month is treated as 30 days for range arithmetic.
 * - The default range, used when the caller gives nothing, is the last 30
 *   days.
 */

package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

// DefaultHistoryDays is the range applied when no period is requested.
const DefaultHistoryDays = 30

var relativeRangePattern = regexp.MustCompile(`^last\s*(\d*)\s*(day|week|month)s?$`)

// ResolveDateRange turns the caller's period inputs into a concrete range
// ending now. Explicit dates win over a relative phrase; an empty request
// falls back to the last 30 days. The result is checked against the 90-day
// retention cap.
func ResolveDateRange(phrase, startDate, endDate string, now time.Time) (domain.DateRange, error) {
	var r domain.DateRange
	var err error
	switch {
	case startDate != "" || endDate != "":
		r, err = explicitRange(startDate, endDate, now)
	case strings.TrimSpace(phrase) != "":
		r, err = relativeRange(phrase, now)
	default:
		r = lastDays(DefaultHistoryDays, now)
	}
	if err != nil {
		return domain.DateRange{}, err
	}
	if days := r.Days(); days > domain.HistoryRangeCapDays {
		return domain.DateRange{}, &RangeTooWideError{RequestedDays: days}
	}
	return r, nil
}

func relativeRange(phrase string, now time.Time) (domain.DateRange, error) {
	m := relativeRangePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(phrase)))
	if m == nil {
		return domain.DateRange{}, fmt.Errorf("%w: unrecognized period %q", ErrInvalidRange, phrase)
	}
	n := 1
	if m[1] != "" {
		parsed, err := strconv.Atoi(m[1])
		if err != nil || parsed <= 0 {
			return domain.DateRange{}, fmt.Errorf("%w: unrecognized period %q", ErrInvalidRange, phrase)
		}
		n = parsed
	}
	days := n
	switch m[2] {
	case "week":
		days = n * 7
	case "month":
		days = n * 30
	}
	return lastDays(days, now), nil
}

func explicitRange(startDate, endDate string, now time.Time) (domain.DateRange, error) {
	end := now
	if endDate != "" {
		parsed, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrInvalidRange)
		}
		// Include the whole end day.
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if startDate == "" {
		return domain.DateRange{}, fmt.Errorf("%w: start date is required with an end date", ErrInvalidRange)
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidRange)
	}
	if start.After(end) {
		return domain.DateRange{}, fmt.Errorf("%w: start date is after end date", ErrInvalidRange)
	}
	return domain.DateRange{Start: start, End: end}, nil
}

func lastDays(days int, now time.Time) domain.DateRange {
	return domain.DateRange{Start: now.AddDate(0, 0, -days), End: now}
}
