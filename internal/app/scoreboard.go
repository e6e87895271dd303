package app

import (
	"sort"

	"elearning-quiz/internal/domain"
)

// Scoreboard ranks players by their best saved score. Admins and players without points are
// left out.
func Scoreboard(users []domain.User) []domain.ScoreboardEntry {
	players := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.IsAdmin() || u.ScoreValue() <= 0 {
			continue
		}
		players = append(players, u)
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].ScoreValue() != players[j].ScoreValue() {
			return players[i].ScoreValue() > players[j].ScoreValue()
		}
		return players[i].Name < players[j].Name
	})

	entries := make([]domain.ScoreboardEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, domain.ScoreboardEntry{
			Rank:  i + 1,
			Name:  p.Name,
			Score: p.ScoreValue(),
		})
	}
	return entries
}
