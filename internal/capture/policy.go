package capture

import "time"

// Profile selects the platform tuning for restart behavior. Mobile
// engines end sessions far more often, so they get a larger retry budget
// and a longer settle delay.
type Profile string

const (
	ProfileMobile  Profile = "mobile"
	ProfileDesktop Profile = "desktop"
)

// RetryPolicy is the platform-tuned auto-restart policy. It is a plain
// value so tests can inject arbitrary bounds.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Profile    Profile
}

// PolicyFor returns the default policy for a platform profile.
func PolicyFor(p Profile) RetryPolicy {
	if p == ProfileMobile {
		return RetryPolicy{MaxRetries: 5, Delay: 300 * time.Millisecond, Profile: ProfileMobile}
	}
	return RetryPolicy{MaxRetries: 3, Delay: 100 * time.Millisecond, Profile: ProfileDesktop}
}

// shouldRestart decides whether an ended engine session is restarted.
// Pure so it can be tested without a real engine.
func shouldRestart(desired, speaking bool, perm Permission, retries, maxRetries int) bool {
	return desired && !speaking && perm == PermissionGranted && retries < maxRetries
}

// nextDelay returns the settle delay before a restart attempt.
func nextDelay(p RetryPolicy) time.Duration { return p.Delay }
