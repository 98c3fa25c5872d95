// Package server exposes the HTTP API. Handlers validate input shape, gate
// access through the authorization guard, and delegate every mutation to
// the engine or a single store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"bountyline/internal/auth"
	"bountyline/internal/config"
	"bountyline/internal/domain"
	"bountyline/internal/engine"
	"bountyline/internal/store"
	"bountyline/internal/token"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	App      *config.Config
	Codec    *token.Codec
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"forbidden"`
	Message string         `json:"message" example:"caller does not own this task"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Bountyline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema validation failures map to 400.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(cfg.Auth))
	hcfg := huma.DefaultConfig("Bountyline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerSponsors(group, cfg)
	registerContributors(group, cfg)
	registerSkills(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerSubmissions(group, cfg.Engine)
	registerInternal(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy becomes a generic 500 without leaking internal state.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", ve.Error(), nil)
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", fe.Error(), nil)
	}
	var ue auth.UnauthorizedError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusUnauthorized, "unauthorized", ue.Error(), nil)
	}
	if errors.Is(err, token.ErrInvalidToken) {
		return newAPIError(http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	if errors.Is(err, store.ErrDuplicateKey) {
		return newAPIError(http.StatusConflict, "conflict", "duplicate key", nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

func sessionCookie(t string) string {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    t,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return c.String()
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSponsors(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID:   "register-sponsor",
		Method:        http.MethodPost,
		Path:          "/sponsors",
		Summary:       "Register sponsor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterSponsorRequest `json:"body"`
	}) (*struct {
		Body domain.Sponsor `json:"body"`
	}, error) {
		sp, err := e.RegisterSponsor(ctx, engine.SponsorRegistration{
			WalletAddress: input.Body.WalletAddress,
			Name:          input.Body.Name,
			Bio:           input.Body.Bio,
			Website:       input.Body.Website,
			Password:      input.Body.Password,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sponsor `json:"body"`
		}{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login-sponsor",
		Method:      http.MethodPost,
		Path:        "/sponsors/login",
		Summary:     "Sponsor login",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body SponsorLoginRequest `json:"body"`
	}) (*struct {
		SetCookie string              `header:"Set-Cookie"`
		Body      SponsorAuthResponse `json:"body"`
	}, error) {
		sp, err := e.AuthenticateSponsor(ctx, input.Body.WalletAddress, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		t, err := cfg.Codec.Issue(token.Claims{
			Subject:     sp.WalletAddress,
			Role:        domain.RoleSponsor,
			Permissions: cfg.App.Permissions(domain.RoleSponsor),
		}, cfg.App.TokenTTL())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			SetCookie string              `header:"Set-Cookie"`
			Body      SponsorAuthResponse `json:"body"`
		}{SetCookie: sessionCookie(t), Body: SponsorAuthResponse{Token: t, Sponsor: sp}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sponsors",
		Method:      http.MethodGet,
		Path:        "/sponsors",
		Summary:     "List sponsors",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Sponsor `json:"body"`
	}, error) {
		items, err := e.Sponsors.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Sponsor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-sponsor",
		Method:      http.MethodGet,
		Path:        "/sponsors/{wallet}",
		Summary:     "Get sponsor",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Wallet string `path:"wallet"`
	}) (*struct {
		Body domain.Sponsor `json:"body"`
	}, error) {
		sp, err := e.Sponsors.Get(ctx, input.Wallet)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sponsor `json:"body"`
		}{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sponsor",
		Method:      http.MethodPatch,
		Path:        "/sponsors/{wallet}",
		Summary:     "Update own sponsor profile",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Wallet string               `path:"wallet"`
		Body   UpdateSponsorRequest `json:"body"`
	}) (*struct {
		Body domain.Sponsor `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "sponsor.update"); err != nil {
			return nil, handleError(err)
		}
		sp, err := e.UpdateSponsorProfile(ctx, input.Wallet, store.SponsorPatch{
			Name:    input.Body.Name,
			Bio:     input.Body.Bio,
			Website: input.Body.Website,
		}, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sponsor `json:"body"`
		}{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-sponsor",
		Method:      http.MethodDelete,
		Path:        "/sponsors/{wallet}",
		Summary:     "Delete sponsor",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Wallet string `path:"wallet"`
	}) (*struct {
		Body domain.Sponsor `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequireAuthenticated(id); err != nil {
			return nil, handleError(err)
		}
		sp, err := e.DeleteSponsor(ctx, input.Wallet, id.Claims.Subject, id.Claims.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sponsor `json:"body"`
		}{Body: sp}, nil
	})
}

func registerContributors(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID:   "register-contributor",
		Method:        http.MethodPost,
		Path:          "/contributors",
		Summary:       "Register contributor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterContributorRequest `json:"body"`
	}) (*struct {
		Body domain.Contributor `json:"body"`
	}, error) {
		c, err := e.RegisterContributor(ctx, engine.ContributorRegistration{
			Email:         input.Body.Email,
			Name:          input.Body.Name,
			WalletAddress: input.Body.WalletAddress,
			Bio:           input.Body.Bio,
			Password:      input.Body.Password,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contributor `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login-contributor",
		Method:      http.MethodPost,
		Path:        "/contributors/login",
		Summary:     "Contributor login",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body ContributorLoginRequest `json:"body"`
	}) (*struct {
		SetCookie string                  `header:"Set-Cookie"`
		Body      ContributorAuthResponse `json:"body"`
	}, error) {
		c, err := e.AuthenticateContributor(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		t, err := cfg.Codec.Issue(token.Claims{
			Subject:     c.Email,
			Role:        domain.RoleContributor,
			Permissions: cfg.App.Permissions(domain.RoleContributor),
		}, cfg.App.TokenTTL())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			SetCookie string                  `header:"Set-Cookie"`
			Body      ContributorAuthResponse `json:"body"`
		}{SetCookie: sessionCookie(t), Body: ContributorAuthResponse{Token: t, Contributor: c}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contributors",
		Method:      http.MethodGet,
		Path:        "/contributors",
		Summary:     "List contributors",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Contributor `json:"body"`
	}, error) {
		items, err := e.Contributors.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Contributor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contributor",
		Method:      http.MethodGet,
		Path:        "/contributors/{email}",
		Summary:     "Get contributor profile with resolved skill names",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Email string `path:"email"`
	}) (*struct {
		Body domain.Contributor `json:"body"`
	}, error) {
		c, err := e.ContributorProfile(ctx, input.Email)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contributor `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-contributor",
		Method:      http.MethodPatch,
		Path:        "/contributors/{email}",
		Summary:     "Update own contributor profile",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Email string                   `path:"email"`
		Body  UpdateContributorRequest `json:"body"`
	}) (*struct {
		Body domain.Contributor `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "contributor.update"); err != nil {
			return nil, handleError(err)
		}
		patch := store.ContributorPatch{
			Name:          input.Body.Name,
			WalletAddress: input.Body.WalletAddress,
			Bio:           input.Body.Bio,
		}
		if input.Body.Skills != nil {
			patch.SkillsSet = true
			for _, sk := range input.Body.Skills {
				patch.Skills = append(patch.Skills, domain.ContributorSkill{SkillID: sk.SkillID, Level: sk.Level})
			}
		}
		c, err := e.UpdateContributorProfile(ctx, input.Email, patch, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contributor `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-contributor",
		Method:      http.MethodDelete,
		Path:        "/contributors/{email}",
		Summary:     "Delete contributor",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Email string `path:"email"`
	}) (*struct {
		Body domain.Contributor `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequireAuthenticated(id); err != nil {
			return nil, handleError(err)
		}
		c, err := e.DeleteContributor(ctx, input.Email, id.Claims.Subject, id.Claims.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contributor `json:"body"`
		}{Body: c}, nil
	})
}

func registerSkills(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-skills",
		Method:      http.MethodGet,
		Path:        "/skills",
		Summary:     "List skill catalog",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Skill `json:"body"`
	}, error) {
		items, err := e.Skills.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Skill `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-skill",
		Method:        http.MethodPost,
		Path:          "/skills",
		Summary:       "Create skill",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateSkillRequest `json:"body"`
	}) (*struct {
		Body domain.Skill `json:"body"`
	}, error) {
		if err := auth.RequirePermission(identityFromContext(ctx), "skill.manage"); err != nil {
			return nil, handleError(err)
		}
		sk, err := e.CreateSkill(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Skill `json:"body"`
		}{Body: sk}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-skill",
		Method:      http.MethodDelete,
		Path:        "/skills/{skill_id}",
		Summary:     "Delete skill",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SkillID string `path:"skill_id"`
	}) (*struct {
		Body domain.Skill `json:"body"`
	}, error) {
		if err := auth.RequirePermission(identityFromContext(ctx), "skill.manage"); err != nil {
			return nil, handleError(err)
		}
		sk, err := e.DeleteSkill(ctx, input.SkillID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Skill `json:"body"`
		}{Body: sk}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequireRole(id, domain.RoleSponsor); err != nil {
			return nil, handleError(err)
		}
		if err := auth.RequirePermission(id, "task.create"); err != nil {
			return nil, handleError(err)
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			SponsorID:   input.Body.SponsorID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Reward:      input.Body.Reward,
		}, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		SponsorID string `query:"sponsor_id"`
		Status    string `query:"status"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		items, err := e.Tasks.List(ctx, store.TaskFilters{SponsorID: input.SponsorID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.Tasks.Get(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Complete or cancel a task",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string               `path:"task_id"`
		Body   SetTaskStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "task.update"); err != nil {
			return nil, handleError(err)
		}
		t, err := e.SetTaskStatus(ctx, input.TaskID, input.Body.Status, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "task.delete"); err != nil {
			return nil, handleError(err)
		}
		t, err := e.DeleteTask(ctx, input.TaskID, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerSubmissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-submission",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/submissions",
		Summary:       "Submit work against an open task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string                  `path:"task_id"`
		Body   CreateSubmissionRequest `json:"body"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "submission.create"); err != nil {
			return nil, handleError(err)
		}
		sub, err := e.CreateSubmission(ctx, engine.SubmissionCreateOptions{
			TaskID:        input.TaskID,
			WalletAddress: input.Body.WalletAddress,
			Content:       input.Body.Content,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-submissions",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/submissions",
		Summary:     "List submissions for a task",
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		items, err := e.Submissions.List(ctx, store.SubmissionFilters{TaskID: input.TaskID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Submission `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission",
		Method:      http.MethodGet,
		Path:        "/submissions/{submission_id}",
		Summary:     "Get submission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string `path:"submission_id"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		sub, err := e.Submissions.Get(ctx, input.SubmissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-submission",
		Method:      http.MethodPost,
		Path:        "/submissions/{submission_id}/review",
		Summary:     "Accept or reject a submission",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string                  `path:"submission_id"`
		Body         ReviewSubmissionRequest `json:"body"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequirePermission(id, "submission.review"); err != nil {
			return nil, handleError(err)
		}
		sub, err := e.ReviewSubmission(ctx, engine.ReviewOptions{
			SubmissionID: input.SubmissionID,
			Status:       input.Body.Status,
			Rating:       input.Body.Rating,
			Feedback:     input.Body.Feedback,
		}, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-submission",
		Method:      http.MethodDelete,
		Path:        "/submissions/{submission_id}",
		Summary:     "Delete submission",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string `path:"submission_id"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := auth.RequireAuthenticated(id); err != nil {
			return nil, handleError(err)
		}
		sub, err := e.DeleteSubmission(ctx, input.SubmissionID, id.Claims.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})
}

// registerInternal exposes the service-to-service sponsor/task linkage
// path. It accepts the internal wallet header as an alternative to token
// auth when enabled; the engine re-verifies ownership on both paths.
func registerInternal(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "link-sponsor-task",
		Method:      http.MethodPost,
		Path:        "/internal/sponsors/{wallet}/tasks/{task_id}",
		Summary:     "Link a task into a sponsor's task-id set",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Wallet string `path:"wallet"`
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Sponsor `json:"body"`
	}, error) {
		id := identityFromContext(ctx)
		if err := e.LinkSponsorTask(ctx, input.Wallet, input.TaskID, id); err != nil {
			return nil, handleError(err)
		}
		sp, err := e.Sponsors.Get(ctx, input.Wallet)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sponsor `json:"body"`
		}{Body: sp}, nil
	})
}
