package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bountyline/internal/domain"
)

// Tasks owns the tasks collection, including the denormalized submission-id
// list stored in task_submission_ids.
type Tasks struct {
	DB *sql.DB
}

const taskCols = `id,sponsor_id,title,COALESCE(description,''),COALESCE(reward,''),status,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	err := scan(&t.ID, &t.SponsorID, &t.Title, &t.Description, &t.Reward, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (s Tasks) Insert(ctx context.Context, t domain.Task) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO tasks(id,sponsor_id,title,description,reward,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.SponsorID, t.Title, nullable(t.Description), nullable(t.Reward), t.Status, t.CreatedAt, t.UpdatedAt)
	return translateInsertErr(err)
}

func (s Tasks) Get(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTask(s.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id).Scan)
	if err != nil {
		return t, err
	}
	t.Submissions, err = s.SubmissionIDs(ctx, id)
	return t, err
}

// TaskFilters narrows List results; zero values match everything.
type TaskFilters struct {
	SponsorID string
	Status    string
}

func (s Tasks) List(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.SponsorID != "" {
		clauses = append(clauses, "sponsor_id=?")
		args = append(args, f.SponsorID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		t.Submissions, err = s.SubmissionIDs(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TaskPatch carries task updates; nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Reward      *string
	Status      *string
}

func (s Tasks) Update(ctx context.Context, id string, patch TaskPatch, now string) (domain.Task, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullableStringPtr(patch.Description))
	}
	if patch.Reward != nil {
		fields = append(fields, "reward=?")
		args = append(args, nullableStringPtr(patch.Reward))
	}
	if patch.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *patch.Status)
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, id)
		res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
		if err != nil {
			return domain.Task{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Task{}, ErrNotFound
		}
	}
	return s.Get(ctx, id)
}

// Delete removes the task document and returns it with its submission-id
// list still attached.
func (s Tasks) Delete(ctx context.Context, id string) (domain.Task, error) {
	subIDs, err := s.SubmissionIDs(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := scanTask(s.DB.QueryRowContext(ctx, `DELETE FROM tasks WHERE id=? RETURNING `+taskCols, id).Scan)
	if err != nil {
		return t, err
	}
	t.Submissions = subIDs
	_, err = s.DB.ExecContext(ctx, `DELETE FROM task_submission_ids WHERE task_id=?`, id)
	return t, err
}

// AddSubmissionID is an atomic set-union: duplicate calls leave one entry.
func (s Tasks) AddSubmissionID(ctx context.Context, taskID, submissionID string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO task_submission_ids(task_id, submission_id) VALUES (?,?)`, taskID, submissionID)
	return err
}

// RemoveSubmissionID is an atomic set-removal, a no-op when absent.
func (s Tasks) RemoveSubmissionID(ctx context.Context, taskID, submissionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM task_submission_ids WHERE task_id=? AND submission_id=?`, taskID, submissionID)
	return err
}

func (s Tasks) SubmissionIDs(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT submission_id FROM task_submission_ids WHERE task_id=?`, taskID)
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
