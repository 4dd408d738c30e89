package reconcile

import "time"

const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketLastWeek  = "Last 7 days"
	BucketLastMonth = "Last 30 days"
	BucketOlder     = "Older"
)

const (
	BucketModeNone     = "none"
	BucketModeRelative = "relative"
)

// Bucketer maps a timestamp to a time-bucket label. A nil Bucketer produces
// no headers.
type Bucketer func(ts time.Time) string

// RelativeDayBuckets buckets timestamps relative to the calendar day of now,
// in now's location. Future timestamps count as today.
func RelativeDayBuckets(now time.Time) Bucketer {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	lastMonth := today.AddDate(0, 0, -30)
	return func(ts time.Time) string {
		if ts.IsZero() {
			return BucketOlder
		}
		ts = ts.In(loc)
		switch {
		case !ts.Before(today):
			return BucketToday
		case !ts.Before(yesterday):
			return BucketYesterday
		case !ts.Before(lastWeek):
			return BucketLastWeek
		case !ts.Before(lastMonth):
			return BucketLastMonth
		default:
			return BucketOlder
		}
	}
}

// BucketerForMode resolves the configured bucket mode.
func BucketerForMode(mode string, now time.Time) Bucketer {
	if mode == BucketModeNone {
		return nil
	}
	return RelativeDayBuckets(now)
}
