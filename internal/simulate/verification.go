package simulate

import (
	"github.com/okian/duel/internal/adapters/repository"
)

// verify compares the committed leaderboard with the hidden strengths and
// fills the agreement fields of stats.
func verify(board []repository.Entry, truth Truth, stats *Stats) error {
	stats.LeaderboardSize = len(board)
	if len(board) == 0 {
		return ErrNoRankings
	}
	stats.Agreement = Agreement(board, truth)

	strongest := board[0]
	for _, e := range board[1:] {
		if truth[e.Name] > truth[strongest.Name] {
			strongest = e
		}
	}
	stats.TopMatches = strongest.ID == board[0].ID
	return nil
}

// Agreement returns the fraction of entry pairs whose leaderboard order
// matches their hidden strength order. Pairs tied in either order are
// ignored. A board with no comparable pair scores 1.
func Agreement(board []repository.Entry, truth Truth) float64 {
	var concordant, total int
	for i := range board {
		for j := i + 1; j < len(board); j++ {
			hi, lo := board[i], board[j]
			if hi.Rating == lo.Rating || truth[hi.Name] == truth[lo.Name] {
				continue
			}
			total++
			if truth[hi.Name] > truth[lo.Name] {
				concordant++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(concordant) / float64(total)
}
