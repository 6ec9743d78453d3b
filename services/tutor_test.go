package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cppla/studytutor/models"
)

type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	preamble string
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, preamble string) (string, error) {
	g.calls++
	g.preamble = preamble
	return g.reply, g.err
}

func TestTutor_ChatStoresTurn(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()
	u := createUser(t, tr.db, "a@example.com")
	if _, err := tr.UpdateProgress(ctx, u.ID, "algebra", 90); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := tr.SetLearningGoals(ctx, u.ID, []string{"calculus"}); err != nil {
		t.Fatalf("goals: %v", err)
	}

	gen := &fakeGenerator{reply: "What do you already know about limits?"}
	tutor := NewTutor(tr.db, tr, gen)
	tutor.now = clock.Now

	turn, err := tutor.Chat(ctx, u.ID, "  explain limits  ")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if turn.Response != gen.reply || turn.Message != "explain limits" {
		t.Fatalf("turn: %+v", turn)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls: want=1 got=%d", gen.calls)
	}
	for _, want := range []string{"advanced", "algebra", "calculus", "Socratic"} {
		if !strings.Contains(gen.preamble, want) {
			t.Fatalf("preamble missing %q: %s", want, gen.preamble)
		}
	}

	clock.Advance(time.Minute)
	if _, err := tutor.Chat(ctx, u.ID, "and derivatives?"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	history, err := tutor.History(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Message != "explain limits" || history[1].Message != "and derivatives?" {
		t.Fatalf("history order: %+v", history)
	}
}

func TestTutor_ChatValidation(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	u := createUser(t, tr.db, "a@example.com")
	gen := &fakeGenerator{reply: "ok"}
	tutor := NewTutor(tr.db, tr, gen)

	if _, err := tutor.Chat(ctx, u.ID, "   "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank: want ErrInvalidArgument got %v", err)
	}
	if _, err := tutor.Chat(ctx, u.ID, strings.Repeat("x", maxMessageLength+1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("long: want ErrInvalidArgument got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called on invalid input")
	}
}

func TestTutor_GenerationFailureStoresNothing(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	u := createUser(t, tr.db, "a@example.com")
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	tutor := NewTutor(tr.db, tr, gen)

	if _, err := tutor.Chat(ctx, u.ID, "hello"); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("want ErrGenerationFailed got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls: want=1 got=%d", gen.calls)
	}
	var count int64
	tr.db.Model(&models.ConversationTurn{}).Count(&count)
	if count != 0 {
		t.Fatalf("turns stored: %d", count)
	}
}

func TestBuildTutorContext_EmptyProgress(t *testing.T) {
	got := BuildTutorContext(models.NewProgressRecord(1))
	if !strings.Contains(got, "beginner") || !strings.Contains(got, "none yet") {
		t.Fatalf("context: %s", got)
	}
}
