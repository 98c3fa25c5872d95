package store

import (
	"context"
	"database/sql"

	"bountyline/internal/domain"
)

// Skills owns the skill catalog, an independent lookup table.
type Skills struct {
	DB *sql.DB
}

func scanSkill(scan func(dest ...any) error) (domain.Skill, error) {
	var sk domain.Skill
	err := scan(&sk.ID, &sk.Name, &sk.CreatedAt)
	if err == sql.ErrNoRows {
		return sk, ErrNotFound
	}
	return sk, err
}

func (s Skills) Insert(ctx context.Context, sk domain.Skill) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO skills(id,name,created_at) VALUES (?,?,?)`, sk.ID, sk.Name, sk.CreatedAt)
	return translateInsertErr(err)
}

func (s Skills) Get(ctx context.Context, id string) (domain.Skill, error) {
	return scanSkill(s.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM skills WHERE id=?`, id).Scan)
}

func (s Skills) GetByName(ctx context.Context, name string) (domain.Skill, error) {
	return scanSkill(s.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM skills WHERE name=?`, name).Scan)
}

func (s Skills) List(ctx context.Context) ([]domain.Skill, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,name,created_at FROM skills ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Skill
	for rows.Next() {
		sk, err := scanSkill(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, sk)
	}
	return res, rows.Err()
}

// Delete removes the skill and returns it.
func (s Skills) Delete(ctx context.Context, id string) (domain.Skill, error) {
	return scanSkill(s.DB.QueryRowContext(ctx, `DELETE FROM skills WHERE id=? RETURNING id,name,created_at`, id).Scan)
}
