package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RewardRepository is the only component writing durable game state: pax
// balances, inventory items and leaderboard scores. Every method is a single
// statement, so each call commits or changes nothing.
type RewardRepository struct {
	db *pgxpool.Pool
}

func NewRewardRepository(db *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{db: db}
}

// CreditCurrency applies a pax delta and returns the new balance.
func (r *RewardRepository) CreditCurrency(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx,
		`UPDATE users SET pax = pax + $1 WHERE id = $2 RETURNING pax`,
		amount, userID,
	).Scan(&balance)
	return balance, err
}

// CreditItem adds qty of an item kind to the user's inventory.
func (r *RewardRepository) CreditItem(ctx context.Context, userID uuid.UUID, itemKind string, qty int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_inventory (user_id, item_kind, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, item_kind)
		 DO UPDATE SET quantity = user_inventory.quantity + EXCLUDED.quantity`,
		userID, itemKind, qty,
	)
	return err
}

// RecordScore keeps the user's best score per game kind.
func (r *RewardRepository) RecordScore(ctx context.Context, userID uuid.UUID, gameKind string, score int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO game_scores (user_id, game_kind, best_score, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, game_kind)
		 DO UPDATE SET best_score = GREATEST(game_scores.best_score, EXCLUDED.best_score),
		               updated_at = now()`,
		userID, gameKind, score,
	)
	return err
}

// TopScores returns the leaderboard for a game kind.
func (r *RewardRepository) TopScores(ctx context.Context, gameKind string, limit int) ([]ScoreRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.username, s.best_score
		 FROM game_scores s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.game_kind = $1
		 ORDER BY s.best_score DESC
		 LIMIT $2`,
		gameKind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRow
	for rows.Next() {
		var row ScoreRow
		if err := rows.Scan(&row.Username, &row.Score); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

type ScoreRow struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}
