package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bountyline/internal/domain"
)

// Sponsors owns the sponsors collection, including the denormalized
// task-id list stored in sponsor_task_ids.
type Sponsors struct {
	DB *sql.DB
}

const sponsorCols = `wallet_address,COALESCE(name,''),COALESCE(bio,''),COALESCE(website,''),password_hash,created_at,updated_at`

func scanSponsor(scan func(dest ...any) error) (domain.Sponsor, error) {
	var sp domain.Sponsor
	err := scan(&sp.WalletAddress, &sp.Name, &sp.Bio, &sp.Website, &sp.PasswordHash, &sp.CreatedAt, &sp.UpdatedAt)
	if err == sql.ErrNoRows {
		return sp, ErrNotFound
	}
	return sp, err
}

func (s Sponsors) Insert(ctx context.Context, sp domain.Sponsor) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO sponsors(wallet_address,name,bio,website,password_hash,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		sp.WalletAddress, nullable(sp.Name), nullable(sp.Bio), nullable(sp.Website), sp.PasswordHash, sp.CreatedAt, sp.UpdatedAt)
	return translateInsertErr(err)
}

func (s Sponsors) Get(ctx context.Context, wallet string) (domain.Sponsor, error) {
	sp, err := scanSponsor(s.DB.QueryRowContext(ctx, `SELECT `+sponsorCols+` FROM sponsors WHERE wallet_address=?`, wallet).Scan)
	if err != nil {
		return sp, err
	}
	sp.TaskIDs, err = s.TaskIDs(ctx, wallet)
	return sp, err
}

func (s Sponsors) List(ctx context.Context) ([]domain.Sponsor, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+sponsorCols+` FROM sponsors ORDER BY created_at DESC, wallet_address DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sponsor
	for rows.Next() {
		sp, err := scanSponsor(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, sp)
	}
	return res, rows.Err()
}

// SponsorPatch carries owner-scoped profile updates; nil fields are left
// untouched.
type SponsorPatch struct {
	Name    *string
	Bio     *string
	Website *string
}

func (s Sponsors) Update(ctx context.Context, wallet string, patch SponsorPatch, now string) (domain.Sponsor, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, nullableStringPtr(patch.Name))
	}
	if patch.Bio != nil {
		fields = append(fields, "bio=?")
		args = append(args, nullableStringPtr(patch.Bio))
	}
	if patch.Website != nil {
		fields = append(fields, "website=?")
		args = append(args, nullableStringPtr(patch.Website))
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, wallet)
		res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE sponsors SET %s WHERE wallet_address=?`, strings.Join(fields, ",")), args...)
		if err != nil {
			return domain.Sponsor{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Sponsor{}, ErrNotFound
		}
	}
	return s.Get(ctx, wallet)
}

// Delete removes the sponsor document and returns it so callers can read
// its reverse-reference fields before they are gone.
func (s Sponsors) Delete(ctx context.Context, wallet string) (domain.Sponsor, error) {
	taskIDs, err := s.TaskIDs(ctx, wallet)
	if err != nil {
		return domain.Sponsor{}, err
	}
	sp, err := scanSponsor(s.DB.QueryRowContext(ctx, `DELETE FROM sponsors WHERE wallet_address=? RETURNING `+sponsorCols, wallet).Scan)
	if err != nil {
		return sp, err
	}
	sp.TaskIDs = taskIDs
	_, err = s.DB.ExecContext(ctx, `DELETE FROM sponsor_task_ids WHERE wallet_address=?`, wallet)
	return sp, err
}

// AddTaskID is an atomic set-union: duplicate calls leave a single entry.
func (s Sponsors) AddTaskID(ctx context.Context, wallet, taskID string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO sponsor_task_ids(wallet_address, task_id) VALUES (?,?)`, wallet, taskID)
	return err
}

// RemoveTaskID is an atomic set-removal, a no-op when the entry is absent.
func (s Sponsors) RemoveTaskID(ctx context.Context, wallet, taskID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sponsor_task_ids WHERE wallet_address=? AND task_id=?`, wallet, taskID)
	return err
}

func (s Sponsors) TaskIDs(ctx context.Context, wallet string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT task_id FROM sponsor_task_ids WHERE wallet_address=?`, wallet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
