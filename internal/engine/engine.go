// Package engine is the integrity coordinator: the only place permitted to
// touch two stores in one logical operation. There is no multi-document
// transaction; cross-store consistency comes from atomic set updates at the
// store layer plus best-effort forward compensation.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bountyline/internal/auth"
	"bountyline/internal/domain"
	"bountyline/internal/store"
)

// ValidationError indicates malformed or policy-violating input.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// SponsorStore is the sponsor collection as the coordinator sees it.
type SponsorStore interface {
	Insert(ctx context.Context, sp domain.Sponsor) error
	Get(ctx context.Context, wallet string) (domain.Sponsor, error)
	List(ctx context.Context) ([]domain.Sponsor, error)
	Update(ctx context.Context, wallet string, patch store.SponsorPatch, now string) (domain.Sponsor, error)
	Delete(ctx context.Context, wallet string) (domain.Sponsor, error)
	AddTaskID(ctx context.Context, wallet, taskID string) error
	RemoveTaskID(ctx context.Context, wallet, taskID string) error
}

type ContributorStore interface {
	Insert(ctx context.Context, c domain.Contributor) error
	Get(ctx context.Context, email string) (domain.Contributor, error)
	List(ctx context.Context) ([]domain.Contributor, error)
	Update(ctx context.Context, email string, patch store.ContributorPatch, now string) (domain.Contributor, error)
	Delete(ctx context.Context, email string) (domain.Contributor, error)
}

type TaskStore interface {
	Insert(ctx context.Context, t domain.Task) error
	Get(ctx context.Context, id string) (domain.Task, error)
	List(ctx context.Context, f store.TaskFilters) ([]domain.Task, error)
	Update(ctx context.Context, id string, patch store.TaskPatch, now string) (domain.Task, error)
	Delete(ctx context.Context, id string) (domain.Task, error)
	AddSubmissionID(ctx context.Context, taskID, submissionID string) error
	RemoveSubmissionID(ctx context.Context, taskID, submissionID string) error
}

type SubmissionStore interface {
	Insert(ctx context.Context, sub domain.Submission) error
	Get(ctx context.Context, id string) (domain.Submission, error)
	List(ctx context.Context, f store.SubmissionFilters) ([]domain.Submission, error)
	Update(ctx context.Context, id string, patch store.SubmissionPatch, now string) (domain.Submission, error)
	Delete(ctx context.Context, id string) (domain.Submission, error)
}

type SkillStore interface {
	Insert(ctx context.Context, sk domain.Skill) error
	Get(ctx context.Context, id string) (domain.Skill, error)
	GetByName(ctx context.Context, name string) (domain.Skill, error)
	List(ctx context.Context) ([]domain.Skill, error)
	Delete(ctx context.Context, id string) (domain.Skill, error)
}

type Engine struct {
	Sponsors     SponsorStore
	Contributors ContributorStore
	Tasks        TaskStore
	Submissions  SubmissionStore
	Skills       SkillStore
	Logger       *log.Logger
	Now          func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		Sponsors:     store.Sponsors{DB: db},
		Contributors: store.Contributors{DB: db},
		Tasks:        store.Tasks{DB: db},
		Submissions:  store.Submissions{DB: db},
		Skills:       store.Skills{DB: db},
		Now:          time.Now,
	}
}

func (e Engine) now() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// --- registration and login ---

type SponsorRegistration struct {
	WalletAddress string
	Name          string
	Bio           string
	Website       string
	Password      string
}

func (e Engine) RegisterSponsor(ctx context.Context, reg SponsorRegistration) (domain.Sponsor, error) {
	if reg.WalletAddress == "" {
		return domain.Sponsor{}, ValidationError{Msg: "wallet_address is required"}
	}
	if reg.Password == "" {
		return domain.Sponsor{}, ValidationError{Msg: "password is required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Sponsor{}, err
	}
	now := e.now()
	sp := domain.Sponsor{
		WalletAddress: reg.WalletAddress,
		Name:          reg.Name,
		Bio:           reg.Bio,
		Website:       reg.Website,
		PasswordHash:  string(hash),
		TaskIDs:       []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Sponsors.Insert(ctx, sp); err != nil {
		return domain.Sponsor{}, err
	}
	return sp, nil
}

// AuthenticateSponsor verifies wallet+password. Bad credentials surface as
// UnauthorizedError without revealing which half was wrong.
func (e Engine) AuthenticateSponsor(ctx context.Context, wallet, password string) (domain.Sponsor, error) {
	sp, err := e.Sponsors.Get(ctx, wallet)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Sponsor{}, auth.UnauthorizedError{}
		}
		return domain.Sponsor{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(sp.PasswordHash), []byte(password)) != nil {
		return domain.Sponsor{}, auth.UnauthorizedError{}
	}
	return sp, nil
}

type ContributorRegistration struct {
	Email         string
	Name          string
	WalletAddress string
	Bio           string
	Password      string
}

func (e Engine) RegisterContributor(ctx context.Context, reg ContributorRegistration) (domain.Contributor, error) {
	if reg.Email == "" {
		return domain.Contributor{}, ValidationError{Msg: "email is required"}
	}
	if reg.Password == "" {
		return domain.Contributor{}, ValidationError{Msg: "password is required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Contributor{}, err
	}
	now := e.now()
	c := domain.Contributor{
		Email:         reg.Email,
		Name:          reg.Name,
		WalletAddress: reg.WalletAddress,
		Bio:           reg.Bio,
		PasswordHash:  string(hash),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Contributors.Insert(ctx, c); err != nil {
		return domain.Contributor{}, err
	}
	return c, nil
}

func (e Engine) AuthenticateContributor(ctx context.Context, email, password string) (domain.Contributor, error) {
	c, err := e.Contributors.Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Contributor{}, auth.UnauthorizedError{}
		}
		return domain.Contributor{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return domain.Contributor{}, auth.UnauthorizedError{}
	}
	return c, nil
}

// --- task lifecycle ---

type TaskCreateOptions struct {
	SponsorID   string
	Title       string
	Description string
	Reward      string
}

// CreateTask inserts a task and mirrors its id into the sponsor's task-id
// set. If the mirror step fails the inserted task is deleted again
// (forward compensation, not rollback) and the link failure is surfaced.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions, callerSubject string) (domain.Task, error) {
	if opts.SponsorID != callerSubject {
		return domain.Task{}, auth.ForbiddenError{Reason: "caller does not own this sponsor account"}
	}
	if opts.Title == "" {
		return domain.Task{}, ValidationError{Msg: "title is required"}
	}
	if _, err := e.Sponsors.Get(ctx, opts.SponsorID); err != nil {
		return domain.Task{}, err
	}
	now := e.now()
	t := domain.Task{
		ID:          "task_" + uuid.NewString(),
		SponsorID:   opts.SponsorID,
		Title:       opts.Title,
		Description: opts.Description,
		Reward:      opts.Reward,
		Status:      domain.TaskOpen,
		Submissions: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Tasks.Insert(ctx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Sponsors.AddTaskID(ctx, opts.SponsorID, t.ID); err != nil {
		if _, delErr := e.Tasks.Delete(ctx, t.ID); delErr != nil {
			e.logger().Printf("WARNING: compensation failed, task %s may be orphaned: %v", t.ID, delErr)
		}
		return domain.Task{}, fmt.Errorf("link task to sponsor: %w", err)
	}
	return t, nil
}

// SetTaskStatus moves an open task to completed or cancelled. The
// transition is one-directional; non-open states are terminal.
func (e Engine) SetTaskStatus(ctx context.Context, taskID, status, callerSubject string) (domain.Task, error) {
	t, err := e.Tasks.Get(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.SponsorID != callerSubject {
		return domain.Task{}, auth.ForbiddenError{Reason: "caller does not own this task"}
	}
	if err := ensureTaskTransition(t.Status, status); err != nil {
		return domain.Task{}, err
	}
	return e.Tasks.Update(ctx, taskID, store.TaskPatch{Status: &status}, e.now())
}

func ensureTaskTransition(oldStatus, newStatus string) error {
	if oldStatus == domain.TaskOpen && (newStatus == domain.TaskCompleted || newStatus == domain.TaskCancelled) {
		return nil
	}
	return ValidationError{Msg: fmt.Sprintf("invalid task status transition %s -> %s", oldStatus, newStatus)}
}

// DeleteTask removes a task after repairing the sponsor's task-id set. The
// back-reference is removed first so the worst failure mode is a missing
// forward reference, never a dangling one.
func (e Engine) DeleteTask(ctx context.Context, taskID, callerSubject string) (domain.Task, error) {
	t, err := e.Tasks.Get(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.SponsorID != callerSubject {
		return domain.Task{}, auth.ForbiddenError{Reason: "caller does not own this task"}
	}
	if len(t.Submissions) > 0 {
		return domain.Task{}, ValidationError{Msg: "cannot delete task with existing submissions"}
	}
	if err := e.Sponsors.RemoveTaskID(ctx, t.SponsorID, taskID); err != nil {
		return domain.Task{}, fmt.Errorf("unlink task from sponsor: %w", err)
	}
	return e.Tasks.Delete(ctx, taskID)
}

// LinkSponsorTask is the service-to-service linkage path. It re-verifies
// ownership independently of the user-facing path: the caller's verified
// subject, whether it came from a token or from the trusted internal wallet
// header, must match the sponsor wallet being mutated. The internal-header
// path is a weaker boundary and is kept deliberately, not strengthened.
func (e Engine) LinkSponsorTask(ctx context.Context, wallet, taskID string, id *auth.Identity) error {
	if err := auth.RequireAuthenticated(id); err != nil {
		return err
	}
	switch id.Source {
	case auth.SourceInternalHeader:
		if id.Claims.Subject != wallet {
			return auth.ForbiddenError{Reason: "internal caller wallet does not match sponsor"}
		}
	default:
		if id.Claims.Subject != wallet {
			return auth.ForbiddenError{Reason: "caller does not own this sponsor account"}
		}
	}
	t, err := e.Tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.SponsorID != wallet {
		return ValidationError{Msg: "task does not belong to sponsor"}
	}
	return e.Sponsors.AddTaskID(ctx, wallet, taskID)
}

// --- submission lifecycle ---

type SubmissionCreateOptions struct {
	TaskID        string
	WalletAddress string
	Content       string
}

// CreateSubmission inserts a submission against an open task and mirrors
// its id into the task's submission set, compensating like CreateTask.
func (e Engine) CreateSubmission(ctx context.Context, opts SubmissionCreateOptions) (domain.Submission, error) {
	if opts.WalletAddress == "" {
		return domain.Submission{}, ValidationError{Msg: "wallet_address is required"}
	}
	t, err := e.Tasks.Get(ctx, opts.TaskID)
	if err != nil {
		return domain.Submission{}, err
	}
	if t.Status != domain.TaskOpen {
		return domain.Submission{}, ValidationError{Msg: "Task is not open for submissions"}
	}
	now := e.now()
	sub := domain.Submission{
		ID:            "sub_" + uuid.NewString(),
		TaskID:        opts.TaskID,
		WalletAddress: opts.WalletAddress,
		Content:       opts.Content,
		Status:        domain.SubmissionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Submissions.Insert(ctx, sub); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Tasks.AddSubmissionID(ctx, opts.TaskID, sub.ID); err != nil {
		if _, delErr := e.Submissions.Delete(ctx, sub.ID); delErr != nil {
			e.logger().Printf("WARNING: compensation failed, submission %s may be orphaned: %v", sub.ID, delErr)
		}
		return domain.Submission{}, fmt.Errorf("link submission to task: %w", err)
	}
	return sub, nil
}

// DeleteSubmission removes a submission after repairing the owning task's
// submission set. Authorization is settled before anything is written: a
// refused delete leaves both collections untouched. A task that is already
// gone is a no-op, never an error: deleting a submission must not be
// blocked by a missing parent.
func (e Engine) DeleteSubmission(ctx context.Context, submissionID, callerSubject string) (domain.Submission, error) {
	sub, err := e.Submissions.Get(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	allowed := sub.WalletAddress == callerSubject
	taskExists := false
	t, err := e.Tasks.Get(ctx, sub.TaskID)
	switch {
	case err == nil:
		taskExists = true
		allowed = allowed || t.SponsorID == callerSubject
	case errors.Is(err, store.ErrNotFound):
		// parent already deleted
	default:
		return domain.Submission{}, err
	}
	if !allowed {
		return domain.Submission{}, auth.ForbiddenError{Reason: "caller may not delete this submission"}
	}
	if taskExists {
		if err := e.Tasks.RemoveSubmissionID(ctx, sub.TaskID, submissionID); err != nil {
			return domain.Submission{}, fmt.Errorf("unlink submission from task: %w", err)
		}
	}
	return e.Submissions.Delete(ctx, submissionID)
}

type ReviewOptions struct {
	SubmissionID string
	Status       string
	Rating       *int
	Feedback     *string
}

// ReviewSubmission accepts or rejects a submission on behalf of the task's
// sponsor, keeping IsAccepted in lockstep with the status string.
func (e Engine) ReviewSubmission(ctx context.Context, opts ReviewOptions, callerSubject string) (domain.Submission, error) {
	if opts.Status != domain.SubmissionAccepted && opts.Status != domain.SubmissionRejected {
		return domain.Submission{}, ValidationError{Msg: "status must be accepted or rejected"}
	}
	if opts.Rating != nil && (*opts.Rating < 0 || *opts.Rating > 5) {
		return domain.Submission{}, ValidationError{Msg: "rating must be between 0 and 5"}
	}
	sub, err := e.Submissions.Get(ctx, opts.SubmissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	t, err := e.Tasks.Get(ctx, sub.TaskID)
	if err != nil {
		return domain.Submission{}, err
	}
	if t.SponsorID != callerSubject {
		return domain.Submission{}, auth.ForbiddenError{Reason: "caller does not own the reviewed task"}
	}
	accepted := opts.Status == domain.SubmissionAccepted
	return e.Submissions.Update(ctx, opts.SubmissionID, store.SubmissionPatch{
		Status:     &opts.Status,
		IsAccepted: &accepted,
		Rating:     opts.Rating,
		Feedback:   opts.Feedback,
	}, e.now())
}

// --- profiles ---

// UpdateSponsorProfile is a self-service mutation: the verified subject
// must match the record's owning wallet.
func (e Engine) UpdateSponsorProfile(ctx context.Context, wallet string, patch store.SponsorPatch, callerSubject string) (domain.Sponsor, error) {
	if wallet != callerSubject {
		return domain.Sponsor{}, auth.ForbiddenError{Reason: "caller does not own this sponsor profile"}
	}
	return e.Sponsors.Update(ctx, wallet, patch, e.now())
}

// DeleteSponsor removes a sponsor account. Deletion is refused while the
// sponsor still owns tasks, mirroring the task-with-submissions rule.
func (e Engine) DeleteSponsor(ctx context.Context, wallet, callerSubject, callerRole string) (domain.Sponsor, error) {
	if wallet != callerSubject && callerRole != domain.RoleAdmin {
		return domain.Sponsor{}, auth.ForbiddenError{Reason: "caller may not delete this sponsor"}
	}
	sp, err := e.Sponsors.Get(ctx, wallet)
	if err != nil {
		return domain.Sponsor{}, err
	}
	if len(sp.TaskIDs) > 0 {
		return domain.Sponsor{}, ValidationError{Msg: "cannot delete sponsor with existing tasks"}
	}
	return e.Sponsors.Delete(ctx, wallet)
}

// UpdateContributorProfile is a self-service mutation keyed by email. Skill
// references must resolve against the catalog before they are stored.
func (e Engine) UpdateContributorProfile(ctx context.Context, email string, patch store.ContributorPatch, callerSubject string) (domain.Contributor, error) {
	if email != callerSubject {
		return domain.Contributor{}, auth.ForbiddenError{Reason: "caller does not own this contributor profile"}
	}
	if patch.SkillsSet {
		for _, sk := range patch.Skills {
			if _, err := e.Skills.Get(ctx, sk.SkillID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.Contributor{}, ValidationError{Msg: fmt.Sprintf("unknown skill id %s", sk.SkillID)}
				}
				return domain.Contributor{}, err
			}
		}
	}
	c, err := e.Contributors.Update(ctx, email, patch, e.now())
	if err != nil {
		return domain.Contributor{}, err
	}
	return e.enrichSkills(ctx, c)
}

func (e Engine) DeleteContributor(ctx context.Context, email, callerSubject, callerRole string) (domain.Contributor, error) {
	if email != callerSubject && callerRole != domain.RoleAdmin {
		return domain.Contributor{}, auth.ForbiddenError{Reason: "caller may not delete this contributor"}
	}
	return e.Contributors.Delete(ctx, email)
}

// ContributorProfile loads a contributor with skill ids resolved to display
// names. The join happens at read time; names are never persisted.
func (e Engine) ContributorProfile(ctx context.Context, email string) (domain.Contributor, error) {
	c, err := e.Contributors.Get(ctx, email)
	if err != nil {
		return domain.Contributor{}, err
	}
	return e.enrichSkills(ctx, c)
}

func (e Engine) enrichSkills(ctx context.Context, c domain.Contributor) (domain.Contributor, error) {
	for i, ref := range c.Skills {
		sk, err := e.Skills.Get(ctx, ref.SkillID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return c, err
		}
		c.Skills[i].SkillName = sk.Name
	}
	return c, nil
}

// --- skill catalog ---

func (e Engine) CreateSkill(ctx context.Context, name string) (domain.Skill, error) {
	if name == "" {
		return domain.Skill{}, ValidationError{Msg: "name is required"}
	}
	sk := domain.Skill{
		ID:        "skill_" + uuid.NewString(),
		Name:      name,
		CreatedAt: e.now(),
	}
	if err := e.Skills.Insert(ctx, sk); err != nil {
		return domain.Skill{}, err
	}
	return sk, nil
}

func (e Engine) DeleteSkill(ctx context.Context, id string) (domain.Skill, error) {
	return e.Skills.Delete(ctx, id)
}
