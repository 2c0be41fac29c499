package sitemap

import (
	"math"
	"time"
)

type Frequency string

const (
	Always  Frequency = "always"
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Age thresholds in seconds, checked from the longest down.
const (
	yearlyAfter  = 25401600 // 42 weeks
	monthlyAfter = 4838400  // 8 weeks
	weeklyAfter  = 1296000  // 15 days
	dailyAfter   = 172800   // 2 days
	hourlyAfter  = 43200    // 12 hours
)

const continuationFactor = 0.95

// ClassifyAge maps seconds since the last modification to a change
// frequency. Negative ages (timestamps in the future) are "always".
func ClassifyAge(seconds int64) Frequency {
	switch {
	case seconds > yearlyAfter:
		return Yearly
	case seconds > monthlyAfter:
		return Monthly
	case seconds > weeklyAfter:
		return Weekly
	case seconds > dailyAfter:
		return Daily
	case seconds > hourlyAfter:
		return Hourly
	default:
		return Always
	}
}

func FrequencyAt(lastModified, now time.Time) Frequency {
	return ClassifyAge(ageSeconds(lastModified, now))
}

// Priority weights freshness against the number of pages of a listing:
// now / (now + age*42/pages). The result is in (0, 1] for any age >= 0.
func Priority(lastModified time.Time, pages int, now time.Time) float64 {
	if pages < 1 {
		pages = 1
	}
	age := ageSeconds(lastModified, now)
	if age < 0 {
		age = 0
	}
	n := float64(now.Unix())
	return n / (n + float64(age)*42/float64(pages))
}

// RoundPriority rounds to one decimal place, halves away from zero.
func RoundPriority(p float64) float64 {
	return math.Round(p*10) / 10
}

// ContinuationPriority is the rounded priority of pages 2..n of a listing
// whose first page has the unrounded priority p.
func ContinuationPriority(p float64) float64 {
	return RoundPriority(p * continuationFactor)
}

// PageCount is ceil(items / perPage).
func PageCount(items uint, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	per := uint(perPage)
	return int((items + per - 1) / per)
}

// ageSeconds treats a missing timestamp as the Unix epoch.
func ageSeconds(lastModified, now time.Time) int64 {
	var last int64
	if !lastModified.IsZero() {
		last = lastModified.Unix()
	}
	return now.Unix() - last
}
