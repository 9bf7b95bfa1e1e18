// Package simulate drives the ranking service with a synthetic collection
// and a noisy voter, then checks how well the committed leaderboard recovers
// the hidden order.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	ContextID   string  // collection to seed and rank
	Items       int     // established items seeded before the first session
	Challengers int     // catalog items offered as challengers
	Sessions    int     // sessions played
	Rounds      int     // rounds per session, 0 plays until exhausted
	Noise       float64 // voter temperature, 0 always picks the stronger item
	SkipRate    float64 // probability of skipping a round
	Seed        int64   // seeds strengths and voter choices
	TopN        int     // leaderboard entries logged at the end
	Verbose     bool    // log every round
}

// DefaultConfig returns a small, quick configuration.
func DefaultConfig() Config {
	return Config{
		ContextID:   "simulation",
		Items:       12,
		Challengers: 4,
		Sessions:    20,
		Noise:       0.5,
		Seed:        1,
		TopN:        10,
	}
}

// Stats holds run statistics.
type Stats struct {
	SessionsPlayed  int
	RoundsVoted     int
	RoundsSkipped   int
	Promotions      int
	CommitsApplied  int
	CommitsEmpty    int
	CommitsFailed   int
	LeaderboardSize int
	Agreement       float64 // fraction of concordant item pairs, 1 is a perfect order
	TopMatches      bool    // leader is the strongest committed item
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
