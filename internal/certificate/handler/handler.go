package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"credledger/internal/audittrail"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/internal/platform/metrics"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the certificate ledger manager as seen by the HTTP layer.
type Service interface {
	AddCertificate(ctx context.Context, tx ledger.Tx, req models.AddCertificateRequest) (*models.MutationResult, error)
	RevokeCertificate(ctx context.Context, tx ledger.Tx, certID, reason string) (*models.MutationResult, error)
	UpdateCertificateGrade(ctx context.Context, tx ledger.Tx, certID, newGrade, reason string) (*models.MutationResult, error)
	QueryCertificate(ctx context.Context, tx ledger.Tx, certID string) (*models.Certificate, error)
	VerifyCertificate(ctx context.Context, tx ledger.Tx, idOrHash string) (*models.VerifyResult, error)
	BatchVerifyCertificates(ctx context.Context, tx ledger.Tx, ids []string) ([]models.VerifyResult, error)
	CertificateExists(ctx context.Context, tx ledger.Tx, certID string) (*models.ExistsResult, error)
	GetCertificateMetadata(ctx context.Context, tx ledger.Tx, certID string) (*models.Metadata, error)
	GetStudentCertificates(ctx context.Context, tx ledger.Tx, studentID string) ([]models.Certificate, error)
	GetStudentCertificateSummary(ctx context.Context, tx ledger.Tx, studentID string) (*models.StudentSummary, error)
	GetInstitutionCertificates(ctx context.Context, tx ledger.Tx, institution string) ([]models.Certificate, error)
	GetCertificateHistory(ctx context.Context, tx ledger.Tx, certID string) ([]audittrail.Entry, error)
	QueryAllCertificates(ctx context.Context, tx ledger.Tx) ([]models.Certificate, error)
	SearchCertificatesByCourse(ctx context.Context, tx ledger.Tx, course string) ([]models.Certificate, error)
}

// Handler serves the certificate routes.
type Handler struct {
	ledger  ledger.Ledger
	certs   Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(l ledger.Ledger, certs Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		ledger:  l,
		certs:   certs,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts the certificate routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.handleAdd)
	r.Get("/certificates", h.handleList)
	r.Post("/certificates/verify-batch", h.handleBatchVerify)
	r.Get("/certificates/{id}", h.handleQuery)
	r.Get("/certificates/{id}/verify", h.handleVerify)
	r.Get("/certificates/{id}/exists", h.handleExists)
	r.Get("/certificates/{id}/metadata", h.handleMetadata)
	r.Get("/certificates/{id}/history", h.handleHistory)
	r.Post("/certificates/{id}/revoke", h.handleRevoke)
	r.Post("/certificates/{id}/grade", h.handleUpdateGrade)
	r.Get("/students/{id}/certificates", h.handleStudentCertificates)
	r.Get("/students/{id}/certificates/summary", h.handleStudentSummary)
	r.Get("/institutions/{name}/certificates", h.handleInstitutionCertificates)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[models.AddCertificateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := ledger.SubmitResult(ctx, h.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return h.certs.AddCertificate(ctx, tx, *req)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, "AddCertificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := httputil.DecodeOptionalJSON[models.RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	certID := shared.Param(r, "id")
	res, err := ledger.SubmitResult(ctx, h.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return h.certs.RevokeCertificate(ctx, tx, certID, req.Reason)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, "RevokeCertificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[models.UpdateGradeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	certID := shared.Param(r, "id")
	res, err := ledger.SubmitResult(ctx, h.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return h.certs.UpdateCertificateGrade(ctx, tx, certID, req.NewGrade, req.Reason)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, "UpdateCertificateGrade", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleBatchVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := shared.Caller(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[models.BatchVerifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, "BatchVerifyCertificates", err)
		return
	}
	res, err := ledger.EvaluateResult(ctx, h.ledger, caller, func(tx ledger.Tx) ([]models.VerifyResult, error) {
		return h.certs.BatchVerifyCertificates(ctx, tx, req.CertIDs)
	})
	if err != nil {
		shared.Fail(ctx, w, h.logger, h.metrics, "BatchVerifyCertificates", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "QueryCertificate", func(ctx context.Context, tx ledger.Tx) (*models.Certificate, error) {
		return h.certs.QueryCertificate(ctx, tx, id)
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "VerifyCertificate", func(ctx context.Context, tx ledger.Tx) (*models.VerifyResult, error) {
		return h.certs.VerifyCertificate(ctx, tx, id)
	})
}

func (h *Handler) handleExists(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "CertificateExists", func(ctx context.Context, tx ledger.Tx) (*models.ExistsResult, error) {
		return h.certs.CertificateExists(ctx, tx, id)
	})
}

func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetCertificateMetadata", func(ctx context.Context, tx ledger.Tx) (*models.Metadata, error) {
		return h.certs.GetCertificateMetadata(ctx, tx, id)
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetCertificateHistory", func(ctx context.Context, tx ledger.Tx) ([]audittrail.Entry, error) {
		return h.certs.GetCertificateHistory(ctx, tx, id)
	})
}

func (h *Handler) handleStudentCertificates(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetStudentCertificates", func(ctx context.Context, tx ledger.Tx) ([]models.Certificate, error) {
		return h.certs.GetStudentCertificates(ctx, tx, id)
	})
}

func (h *Handler) handleStudentSummary(w http.ResponseWriter, r *http.Request) {
	id := shared.Param(r, "id")
	evaluate(h, w, r, "GetStudentCertificateSummary", func(ctx context.Context, tx ledger.Tx) (*models.StudentSummary, error) {
		return h.certs.GetStudentCertificateSummary(ctx, tx, id)
	})
}

func (h *Handler) handleInstitutionCertificates(w http.ResponseWriter, r *http.Request) {
	name := shared.Param(r, "name")
	evaluate(h, w, r, "GetInstitutionCertificates", func(ctx context.Context, tx ledger.Tx) ([]models.Certificate, error) {
		return h.certs.GetInstitutionCertificates(ctx, tx, name)
	})
}

// handleList returns every certificate, or those whose course matches ?course=.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if course := strings.TrimSpace(r.URL.Query().Get("course")); course != "" {
		evaluate(h, w, r, "SearchCertificatesByCourse", func(ctx context.Context, tx ledger.Tx) ([]models.Certificate, error) {
			return h.certs.SearchCertificatesByCourse(ctx, tx, course)
		})
		return
	}
	evaluate(h, w, r, "QueryAllCertificates", func(ctx context.Context, tx ledger.Tx) ([]models.Certificate, error) {
		return h.certs.QueryAllCertificates(ctx, tx)
	})
}

// evaluate runs a read-only operation for the authenticated caller and writes
// its result as 200.
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
