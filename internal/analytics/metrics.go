package analytics

import "time"

const week = 7 * 24 * time.Hour

// Window is a half-open time range [From, To). A nil bound is open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// CurrentWeek is the last seven days up to now.
func CurrentWeek(now time.Time) Window {
	from := now.Add(-week)
	return Window{From: &from}
}

// LastWeek is the seven days before CurrentWeek.
func LastWeek(now time.Time) Window {
	from, to := now.Add(-2*week), now.Add(-week)
	return Window{From: &from, To: &to}
}

// PercentageIncrease is the change from before to current relative to current. It is 0 when current is 0.
func PercentageIncrease(current, before float64) float64 {
	if current == 0 {
		return 0
	}
	return (current - before) / current * 100
}

// Point is one bucket of a time series.
type Point struct {
	Period time.Time `json:"period"`
	Value  float64   `json:"value"`
}
