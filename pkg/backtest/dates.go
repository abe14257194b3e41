package backtest

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ReferenceDates expands run configuration into the reference dates to
// process: either a single date, or the first day of every month between
// start and end inclusive. Exactly one of the two modes must be given.
func ReferenceDates(single, start, end string) ([]time.Time, error) {
	switch {
	case single != "":
		d, err := time.Parse(dateLayout, single)
		if err != nil {
			return nil, fmt.Errorf("invalid backtest date %q: %w", single, err)
		}
		return []time.Time{d}, nil

	case start != "" && end != "":
		from, err := time.Parse(dateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		to, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		if from.After(to) {
			return nil, fmt.Errorf("start date %s is after end date %s", start, end)
		}

		var dates []time.Time
		current := monthStart(from)
		last := monthStart(to)
		for !current.After(last) {
			dates = append(dates, current)
			current = current.AddDate(0, 1, 0)
		}
		return dates, nil

	default:
		return nil, errors.New("either a single date or both start and end dates are required")
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
