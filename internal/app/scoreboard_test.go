package app_test

import (
	"testing"

	"elearning-quiz/internal/app"
	"elearning-quiz/internal/domain"
)

func TestScoreboardFiltersAndRanks(t *testing.T) {
	score := func(v int) *int { return &v }
	users := []domain.User{
		{Name: "root", Role: domain.RoleAdmin, Score: score(900)},
		{Name: "Carol", Role: domain.RoleUser, Score: score(100)},
		{Name: "Dave", Role: domain.RoleUser, Score: score(0)},
		{Name: "Alice", Role: domain.RoleUser, Score: score(150)},
		{Name: "Bob", Role: domain.RoleUser, Score: score(100)},
		{Name: "Eve", Role: domain.RoleUser},
	}

	entries := app.Scoreboard(users)
	if len(entries) != 3 {
		t.Fatalf("expected 3 ranked players, got %+v", entries)
	}
	wantNames := []string{"Alice", "Bob", "Carol"}
	for i, entry := range entries {
		if entry.Name != wantNames[i] || entry.Rank != i+1 {
			t.Fatalf("entry %d: got %+v, want %s at rank %d", i, entry, wantNames[i], i+1)
		}
	}
	if entries[0].Score != 150 {
		t.Fatalf("expected leader with 150, got %d", entries[0].Score)
	}
}

func TestScoreboardEmpty(t *testing.T) {
	if entries := app.Scoreboard(nil); len(entries) != 0 {
		t.Fatalf("expected empty scoreboard, got %+v", entries)
	}
}
