package service

import (
	"context"
	"time"
)

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// RunDailyRollover calls ResetDaily at every midnight in loc until ctx is
// cancelled.
func (t *ConversationTracker) RunDailyRollover(ctx context.Context, loc *time.Location) {
	for {
		wait := time.Until(NextMidnight(time.Now(), loc))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			t.ResetDaily()
		}
	}
}
