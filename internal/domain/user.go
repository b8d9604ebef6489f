package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a users row. The balance is held in integer toman and is
// never allowed below zero by any wallet operation.
type User struct {
	ID         uuid.UUID `json:"id"`
	UserName   string    `json:"user_name"`
	Balance    int64     `json:"balance"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	TotalScore int       `json:"total_score"`
	Rank       int       `json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Rank ladder thresholds, inclusive lower bounds. Index i holds the minimum
// total score for rank i+2; scores below 100 are rank 1.
var rankThresholds = [...]int{100, 300, 600, 1000, 1500, 2200, 3000}

// RankForScore maps a cumulative total score onto the 1..8 ladder.
// Recomputed every time the score changes.
func RankForScore(totalScore int) int {
	rank := 1
	for _, min := range rankThresholds {
		if totalScore < min {
			break
		}
		rank++
	}
	return rank
}
