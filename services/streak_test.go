package services

import (
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAdvanceStreak_FirstCompletion(t *testing.T) {
	got := AdvanceStreak(StreakState{}, t0, 25)
	if got.Streak != 1 || got.LongestStreak != 1 {
		t.Fatalf("streak: want=1/1 got=%d/%d", got.Streak, got.LongestStreak)
	}
	if got.TotalStudyTime != 25 {
		t.Fatalf("total: want=25 got=%d", got.TotalStudyTime)
	}
	if got.LastSession == nil || !got.LastSession.Equal(t0) {
		t.Fatalf("last session: want=%v got=%v", t0, got.LastSession)
	}
}

func TestAdvanceStreak_WithinWindowIncrements(t *testing.T) {
	s := AdvanceStreak(StreakState{}, t0, 10)
	s = AdvanceStreak(s, t0.Add(23*time.Hour), 10)
	s = AdvanceStreak(s, t0.Add(23*time.Hour+StreakWindow), 10)
	if s.Streak != 3 || s.LongestStreak != 3 {
		t.Fatalf("streak: want=3/3 got=%d/%d", s.Streak, s.LongestStreak)
	}
	if s.TotalStudyTime != 30 {
		t.Fatalf("total: want=30 got=%d", s.TotalStudyTime)
	}
}

func TestAdvanceStreak_GapResetsButKeepsLongest(t *testing.T) {
	last := t0
	s := StreakState{Streak: 4, LongestStreak: 6, LastSession: &last, TotalStudyTime: 100}
	s = AdvanceStreak(s, t0.Add(StreakWindow+time.Second), 0)
	if s.Streak != 1 {
		t.Fatalf("streak: want=1 got=%d", s.Streak)
	}
	if s.LongestStreak != 6 {
		t.Fatalf("longest: want=6 got=%d", s.LongestStreak)
	}
	if s.TotalStudyTime != 100 {
		t.Fatalf("total: want=100 got=%d", s.TotalStudyTime)
	}
}

func TestAdvanceStreak_LongestCatchesUpWithStreak(t *testing.T) {
	last := t0
	// stored longest lagging behind streak is repaired on the next completion
	s := StreakState{Streak: 5, LongestStreak: 2, LastSession: &last}
	s = AdvanceStreak(s, t0.Add(time.Hour), 1)
	if s.Streak != 6 || s.LongestStreak != 6 {
		t.Fatalf("streak: want=6/6 got=%d/%d", s.Streak, s.LongestStreak)
	}
}

func TestAdvanceStreak_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		var s StreakState
		now := t0
		prevLongest := 0
		total := 0
		for i := 0; i < 50; i++ {
			now = now.Add(time.Duration(rng.Int63n(int64(60 * time.Hour))))
			minutes := rng.Intn(120)
			s = AdvanceStreak(s, now, minutes)
			total += minutes
			if s.Streak < 1 {
				t.Fatalf("run %d step %d: streak below one: %d", run, i, s.Streak)
			}
			if s.LongestStreak < s.Streak {
				t.Fatalf("run %d step %d: longest=%d < streak=%d", run, i, s.LongestStreak, s.Streak)
			}
			if s.LongestStreak < prevLongest {
				t.Fatalf("run %d step %d: longest decreased %d -> %d", run, i, prevLongest, s.LongestStreak)
			}
			if s.TotalStudyTime != total {
				t.Fatalf("run %d step %d: total want=%d got=%d", run, i, total, s.TotalStudyTime)
			}
			prevLongest = s.LongestStreak
		}
	}
}
