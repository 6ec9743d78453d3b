package services

import "time"

// StreakWindow is the largest gap between two completions that still extends a streak.
const StreakWindow = 24 * time.Hour

// StreakState is the streak-bearing part of a user record.
type StreakState struct {
	Streak         int
	LongestStreak  int
	LastSession    *time.Time
	TotalStudyTime int
}

// AdvanceStreak applies one session completion of minutes at now.
func AdvanceStreak(s StreakState, now time.Time, minutes int) StreakState {
	next := s
	switch {
	case s.LastSession == nil:
		next.Streak = 1
	case now.Sub(*s.LastSession) <= StreakWindow:
		next.Streak = s.Streak + 1
	default:
		next.Streak = 1
	}
	if next.Streak > next.LongestStreak {
		next.LongestStreak = next.Streak
	}
	at := now
	next.LastSession = &at
	if minutes > 0 {
		next.TotalStudyTime += minutes
	}
	return next
}
