package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, experience_points, total_level, streak_data
		FROM users WHERE user_id = ?
	`, userID)

	var (
		p         UserProfile
		streakRaw sql.NullString
	)
	if err := row.Scan(&p.UserID, &p.Username, &p.ExperiencePoints, &p.TotalLevel, &streakRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	if streakRaw.Valid && streakRaw.String != "" {
		if err := json.Unmarshal([]byte(streakRaw.String), &p.Streak); err != nil {
			return nil, fmt.Errorf("unmarshal streak: %w", err)
		}
	}
	return &p, nil
}

func (r *UserRepo) GetOrCreate(ctx context.Context, userID string) (*UserProfile, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO users (user_id) VALUES (?)`, userID); err != nil {
		return nil, fmt.Errorf("user insert: %w", err)
	}
	return r.Get(ctx, userID)
}

func (r *UserRepo) Update(ctx context.Context, p *UserProfile) error {
	streakJSON, err := json.Marshal(p.Streak)
	if err != nil {
		return fmt.Errorf("marshal streak: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, experience_points = ?, total_level = ?, streak_data = ?
		WHERE user_id = ?
	`, p.Username, p.ExperiencePoints, p.TotalLevel, string(streakJSON), p.UserID)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	return nil
}
