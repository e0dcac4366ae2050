package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/audittrail"
	"credledger/internal/ledger"
	"credledger/internal/platform/metrics"
	"credledger/internal/skill/models"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the skill ledger manager as seen by the HTTP layer.
type Service interface {
	AddSkill(ctx context.Context, tx ledger.Tx, req models.AddSkillRequest) (*models.MutationResult, error)
	EndorseSkill(ctx context.Context, tx ledger.Tx, skillID string, req models.EndorseRequest) (*models.MutationResult, error)
	UpdateSkillProficiency(ctx context.Context, tx ledger.Tx, skillID string, req models.UpdateProficiencyRequest) (*models.MutationResult, error)
	SetSkillExpiry(ctx context.Context, tx ledger.Tx, skillID, expiryDate string) (*models.MutationResult, error)
	RevokeSkill(ctx context.Context, tx ledger.Tx, skillID, reason string) (*models.MutationResult, error)
	QuerySkill(ctx context.Context, tx ledger.Tx, skillID string) (*models.View, error)
	VerifySkill(ctx context.Context, tx ledger.Tx, skillID string) (*models.VerifyResult, error)
	GetStudentSkills(ctx context.Context, tx ledger.Tx, studentID string) ([]models.StudentSkill, error)
	GetSkillsByCategory(ctx context.Context, tx ledger.Tx, category string) ([]models.Skill, error)
	GetStudentSkillSummary(ctx context.Context, tx ledger.Tx, studentID string) (*models.StudentSummary, error)
	GetTopEndorsedSkills(ctx context.Context, tx ledger.Tx, limit int) ([]models.Skill, error)
	QueryAllSkills(ctx context.Context, tx ledger.Tx) ([]models.Skill, error)
	GetSkillHistory(ctx context.Context, tx ledger.Tx, skillID string) ([]audittrail.Entry, error)
}

// Handler serves the skill routes.
type Handler struct {
	ledger  ledger.Ledger
	skills  Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(l ledger.Ledger, skills Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		ledger:  l,
		skills:  skills,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts the skill routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/skills", h.handleAdd)
	r.Get("/skills", h.handleQueryAll)
	r.Get("/skills/top", h.handleTopEndorsed)
	r.Get("/skills/{id}", h.handleQuery)
	r.Get("/skills/{id}/verify", h.handleVerify)
	r.Get("/skills/{id}/history", h.handleHistory)
	r.Post("/skills/{id}/endorse", h.handleEndorse)
	r.Post("/skills/{id}/proficiency", h.handleUpdateProficiency)
	r.Post("/skills/{id}/expiry", h.handleSetExpiry)
	r.Post("/skills/{id}/revoke", h.handleRevoke)
	r.Get("/students/{id}/skills", h.handleStudentSkills)
	r.Get("/students/{id}/skills/summary", h.handleStudentSummary)
	r.Get("/skill-categories/{category}/skills", h.handleByCategory)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[models.AddSkillRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	submit(h, w, r, http.StatusCreated, "AddSkill", func(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
		return h.skills.AddSkill(ctx, tx, *req)
	})
}

func (h *Handler) handleEndorse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeOptionalJSON[models.EndorseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id := shared.Param(r, "id")
	submit(h, w, r, http.StatusOK, "EndorseSkill", func(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
		return h.skills.EndorseSkill(ctx, tx, id, *req)
	})
}

func (h *Handler) handleUpdateProficiency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[models.UpdateProficiencyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id := shared.Param(r, "id")
	submit(h, w, r, http.StatusOK, "UpdateSkillProficiency", func(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
		return h.skills.UpdateSkillProficiency(ctx, tx, id, *req)
	})
}

func (h *Handler) handleSetExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[models.SetExpiryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id := shared.Param(r, "id")
	submit(h, w, r, http.StatusOK, "SetSkillExpiry", func(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
		return h.skills.SetSkillExpiry(ctx, tx, id, req.ExpiryDate)
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeOptionalJSON[models.RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id := shared.Param(r, "id")
	submit(h, w, r, http.StatusOK, "RevokeSkill", func(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
		return h.skills.RevokeSkill(ctx, tx, id, req.Reason)
	})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "QuerySkill", func(ctx context.Context, tx ledger.Tx) (*models.View, error) {
		return h.skills.QuerySkill(ctx, tx, id)
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "VerifySkill", func(ctx context.Context, tx ledger.Tx) (*models.VerifyResult, error) {
		return h.skills.VerifySkill(ctx, tx, id)
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetSkillHistory", func(ctx context.Context, tx ledger.Tx) ([]audittrail.Entry, error) {
		return h.skills.GetSkillHistory(ctx, tx, id)
	})
}

func (h *Handler) handleStudentSkills(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetStudentSkills", func(ctx context.Context, tx ledger.Tx) ([]models.StudentSkill, error) {
		return h.skills.GetStudentSkills(ctx, tx, id)
	})
}

func (h *Handler) handleStudentSummary(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetStudentSkillSummary", func(ctx context.Context, tx ledger.Tx) (*models.StudentSummary, error) {
		return h.skills.GetStudentSkillSummary(ctx, tx, id)
	})
}

func (h *Handler) handleByCategory(w http.ResponseWriter, r *http.Request) {
	category := shared.Param(r, "category")
	evaluate(h, w, r, "GetSkillsByCategory", func(ctx context.Context, tx ledger.Tx) ([]models.Skill, error) {
		return h.skills.GetSkillsByCategory(ctx, tx, category)
	})
}

func (h *Handler) handleTopEndorsed(w http.ResponseWriter, r *http.Request) {
	limit, err := shared.IntQuery(r, "limit")
	if err != nil {
		shared.Fail(r.Context(), w, h.logger, h.metrics, "GetTopEndorsedSkills", err)
		return
	}
	evaluate(h, w, r, "GetTopEndorsedSkills", func(ctx context.Context, tx ledger.Tx) ([]models.Skill, error) {
		return h.skills.GetTopEndorsedSkills(ctx, tx, limit)
	})
}

func (h *Handler) handleQueryAll(w http.ResponseWriter, r *http.Request) {
	evaluate(h, w, r, "QueryAllSkills", func(ctx context.Context, tx ledger.Tx) ([]models.Skill, error) {
		return h.skills.QueryAllSkills(ctx, tx)
	})
}

func submit[T any](h *Handler, w http.ResponseWriter, r *http.Request, status int, operation string, fn func(context.Context, ledger.Tx) (T, error)) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	res, err := ledger.SubmitResult(ctx, h.ledger, caller, func(tx ledger.Tx) (T, error) {
		return fn(ctx, tx)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, operation, err)
		return
	}
	httputil.WriteJSON(w, status, res)
}

func evaluate[T any](h *Handler, w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, ledger.Tx) (T, error)) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	res, err := ledger.EvaluateResult(ctx, h.ledger, caller, func(tx ledger.Tx) (T, error) {
		return fn(ctx, tx)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, operation, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
