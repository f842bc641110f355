package lupaus

import (
	"fmt"
	"sort"
)

// RoundScore is one seat's result for one round.
type RoundScore struct {
	Round   int  `json:"round"`
	Bid     int  `json:"bid"`
	Tricks  int  `json:"tricks"`
	Success bool `json:"success"`
	Points  int  `json:"points"`
}

// FinalScore is one seat's ranking entry at game end.
type FinalScore struct {
	PlayerIndex int          `json:"playerIndex"`
	PlayerName  string       `json:"playerName"`
	Total       int          `json:"total"`
	Rounds      []RoundScore `json:"rounds"`
}

// Statistics summarizes one seat's score history.
type Statistics struct {
	RoundsPlayed          int    `json:"roundsPlayed"`
	Successes             int    `json:"successes"`
	Failures              int    `json:"failures"`
	TotalPoints           int    `json:"totalPoints"`
	SuccessRatePercent    string `json:"successRatePercent"`
	AveragePointsPerRound string `json:"averagePointsPerRound"`
}

// CalcRoundScore scores a single seat's round: 10 + bid on an exact match,
// zero otherwise.
func CalcRoundScore(bid, tricks int) (success bool, points int) {
	success = bid == tricks
	if success {
		points = 10 + bid
	}
	return
}

// RoundResults scores every seat for the given round. bids and tricks are
// indexed by seat.
func RoundResults(bids, tricks []int, round int) []RoundScore {
	results := make([]RoundScore, len(bids))
	for i := range bids {
		success, points := CalcRoundScore(bids[i], tricks[i])
		results[i] = RoundScore{
			Round:   round,
			Bid:     bids[i],
			Tricks:  tricks[i],
			Success: success,
			Points:  points,
		}
	}
	return results
}

// TotalScore sums a seat's points over its score history.
func TotalScore(history []RoundScore) int {
	total := 0
	for _, entry := range history {
		total += entry.Points
	}
	return total
}

// CalcFinalScores ranks seats by total points, descending. Ties keep the
// seats' relative order; there is no further tie-break.
func CalcFinalScores(playerNames []string, histories [][]RoundScore) []FinalScore {
	scores := make([]FinalScore, len(playerNames))
	for i, name := range playerNames {
		scores[i] = FinalScore{
			PlayerIndex: i,
			PlayerName:  name,
			Total:       TotalScore(histories[i]),
			Rounds:      histories[i],
		}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Total > scores[b].Total
	})
	return scores
}

// CalcStatistics summarizes one seat's history. Rate and average are
// formatted to one decimal, matching what the score screen shows.
func CalcStatistics(history []RoundScore) Statistics {
	stats := Statistics{
		RoundsPlayed:          len(history),
		TotalPoints:           TotalScore(history),
		SuccessRatePercent:    "0",
		AveragePointsPerRound: "0",
	}

	for _, entry := range history {
		if entry.Success {
			stats.Successes++
		} else {
			stats.Failures++
		}
	}

	if stats.RoundsPlayed > 0 {
		stats.SuccessRatePercent = fmt.Sprintf("%.1f", float64(stats.Successes)/float64(stats.RoundsPlayed)*100)
		stats.AveragePointsPerRound = fmt.Sprintf("%.1f", float64(stats.TotalPoints)/float64(stats.RoundsPlayed))
	}
	return stats
}
