package booking

import "time"

// UrgentThreshold is the remaining time below which the countdown is
// reported as urgent so the client can switch to its warning styling.
const UrgentThreshold = 120 * time.Second

// Countdown is a snapshot of the time left on a hold.  It carries no
// authoritative state: expiry enforcement happens in the database
// sweep, and a countdown is always recomputed from (now, expiry).
type Countdown struct {
	Remaining time.Duration `json:"-"`
	Seconds   int64         `json:"seconds_left"`
	Urgent    bool          `json:"urgent"`
	Expired   bool          `json:"expired"`
}

// Remaining computes the countdown for a hold expiring at expiresAt as
// of now.  Remaining time is clamped at zero; a lapsed hold reports
// Expired with zero seconds left.
func Remaining(now, expiresAt time.Time) Countdown {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return Countdown{Expired: true}
	}
	return Countdown{
		Remaining: left,
		Seconds:   int64(left / time.Second),
		Urgent:    left < UrgentThreshold,
	}
}
