package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bountyline/internal/domain"
)

// Contributors owns the contributors collection, including skill id
// references in contributor_skills. Skill names are resolved elsewhere.
type Contributors struct {
	DB *sql.DB
}

const contributorCols = `email,COALESCE(name,''),COALESCE(wallet_address,''),COALESCE(bio,''),reputation,password_hash,created_at,updated_at`

func scanContributor(scan func(dest ...any) error) (domain.Contributor, error) {
	var c domain.Contributor
	err := scan(&c.Email, &c.Name, &c.WalletAddress, &c.Bio, &c.Reputation, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (s Contributors) Insert(ctx context.Context, c domain.Contributor) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO contributors(email,name,wallet_address,bio,reputation,password_hash,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.Email, nullable(c.Name), nullable(c.WalletAddress), nullable(c.Bio), c.Reputation, c.PasswordHash, c.CreatedAt, c.UpdatedAt)
	return translateInsertErr(err)
}

func (s Contributors) Get(ctx context.Context, email string) (domain.Contributor, error) {
	c, err := scanContributor(s.DB.QueryRowContext(ctx, `SELECT `+contributorCols+` FROM contributors WHERE email=?`, email).Scan)
	if err != nil {
		return c, err
	}
	c.Skills, err = s.skills(ctx, email)
	return c, err
}

func (s Contributors) List(ctx context.Context) ([]domain.Contributor, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+contributorCols+` FROM contributors ORDER BY created_at DESC, email DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contributor
	for rows.Next() {
		c, err := scanContributor(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ContributorPatch carries owner-scoped profile updates; nil fields are
// left untouched. Skills, when set, replaces the whole skill list.
type ContributorPatch struct {
	Name          *string
	WalletAddress *string
	Bio           *string
	Reputation    *int
	Skills        []domain.ContributorSkill
	SkillsSet     bool
}

func (s Contributors) Update(ctx context.Context, email string, patch ContributorPatch, now string) (domain.Contributor, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, nullableStringPtr(patch.Name))
	}
	if patch.WalletAddress != nil {
		fields = append(fields, "wallet_address=?")
		args = append(args, nullableStringPtr(patch.WalletAddress))
	}
	if patch.Bio != nil {
		fields = append(fields, "bio=?")
		args = append(args, nullableStringPtr(patch.Bio))
	}
	if patch.Reputation != nil {
		fields = append(fields, "reputation=?")
		args = append(args, *patch.Reputation)
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, email)
		res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE contributors SET %s WHERE email=?`, strings.Join(fields, ",")), args...)
		if err != nil {
			return domain.Contributor{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Contributor{}, ErrNotFound
		}
	}
	if patch.SkillsSet {
		if err := s.setSkills(ctx, email, patch.Skills); err != nil {
			return domain.Contributor{}, err
		}
	}
	return s.Get(ctx, email)
}

// Delete removes the contributor document and returns it.
func (s Contributors) Delete(ctx context.Context, email string) (domain.Contributor, error) {
	skills, err := s.skills(ctx, email)
	if err != nil {
		return domain.Contributor{}, err
	}
	c, err := scanContributor(s.DB.QueryRowContext(ctx, `DELETE FROM contributors WHERE email=? RETURNING `+contributorCols, email).Scan)
	if err != nil {
		return c, err
	}
	c.Skills = skills
	_, err = s.DB.ExecContext(ctx, `DELETE FROM contributor_skills WHERE email=?`, email)
	return c, err
}

func (s Contributors) setSkills(ctx context.Context, email string, skills []domain.ContributorSkill) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM contributor_skills WHERE email=?`, email); err != nil {
		return err
	}
	for _, sk := range skills {
		if _, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO contributor_skills(email, skill_id, level) VALUES (?,?,?)`,
			email, sk.SkillID, nullable(sk.Level)); err != nil {
			return err
		}
	}
	return nil
}

func (s Contributors) skills(ctx context.Context, email string) ([]domain.ContributorSkill, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT skill_id, COALESCE(level,'') FROM contributor_skills WHERE email=?`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ContributorSkill
	for rows.Next() {
		var sk domain.ContributorSkill
		if err := rows.Scan(&sk.SkillID, &sk.Level); err != nil {
			return nil, err
		}
		res = append(res, sk)
	}
	return res, rows.Err()
}
