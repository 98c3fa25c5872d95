package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bountyline/internal/domain"
)

// Submissions owns the submissions collection.
type Submissions struct {
	DB *sql.DB
}

const submissionCols = `id,task_id,wallet_address,COALESCE(content,''),status,is_accepted,rating,feedback,created_at,updated_at`

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var sub domain.Submission
	var rating sql.NullInt64
	var feedback sql.NullString
	err := scan(&sub.ID, &sub.TaskID, &sub.WalletAddress, &sub.Content, &sub.Status, &sub.IsAccepted, &rating, &feedback, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, err
	}
	if rating.Valid {
		r := int(rating.Int64)
		sub.Rating = &r
	}
	if feedback.Valid {
		sub.Feedback = &feedback.String
	}
	return sub, nil
}

func (s Submissions) Insert(ctx context.Context, sub domain.Submission) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO submissions(id,task_id,wallet_address,content,status,is_accepted,rating,feedback,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		sub.ID, sub.TaskID, sub.WalletAddress, nullable(sub.Content), sub.Status, sub.IsAccepted, nullableIntPtr(sub.Rating), nullableStringPtr(sub.Feedback), sub.CreatedAt, sub.UpdatedAt)
	return translateInsertErr(err)
}

func (s Submissions) Get(ctx context.Context, id string) (domain.Submission, error) {
	return scanSubmission(s.DB.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=?`, id).Scan)
}

// SubmissionFilters narrows List results; zero values match everything.
type SubmissionFilters struct {
	TaskID        string
	WalletAddress string
	Status        string
}

func (s Submissions) List(ctx context.Context, f SubmissionFilters) ([]domain.Submission, error) {
	var clauses []string
	var args []any
	if f.TaskID != "" {
		clauses = append(clauses, "task_id=?")
		args = append(args, f.TaskID)
	}
	if f.WalletAddress != "" {
		clauses = append(clauses, "wallet_address=?")
		args = append(args, f.WalletAddress)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+submissionCols+` FROM submissions `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, sub)
	}
	return res, rows.Err()
}

// SubmissionPatch carries review updates; nil fields are left untouched.
type SubmissionPatch struct {
	Status     *string
	IsAccepted *bool
	Rating     *int
	Feedback   *string
}

func (s Submissions) Update(ctx context.Context, id string, patch SubmissionPatch, now string) (domain.Submission, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *patch.Status)
	}
	if patch.IsAccepted != nil {
		fields = append(fields, "is_accepted=?")
		args = append(args, *patch.IsAccepted)
	}
	if patch.Rating != nil {
		fields = append(fields, "rating=?")
		args = append(args, *patch.Rating)
	}
	if patch.Feedback != nil {
		fields = append(fields, "feedback=?")
		args = append(args, nullableStringPtr(patch.Feedback))
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, id)
		res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE submissions SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
		if err != nil {
			return domain.Submission{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Submission{}, ErrNotFound
		}
	}
	return s.Get(ctx, id)
}

// Delete removes the submission document and returns it.
func (s Submissions) Delete(ctx context.Context, id string) (domain.Submission, error) {
	return scanSubmission(s.DB.QueryRowContext(ctx, `DELETE FROM submissions WHERE id=? RETURNING `+submissionCols, id).Scan)
}
