// Package service implements the certificate ledger manager.
//
// Every method runs inside the ledger transaction it is given. Mutations must
// be called from Ledger.Submit so their writes and event commit together.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"credledger/internal/access"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/ledger/record"
	"credledger/internal/platform/metrics"
	dErrors "credledger/pkg/domain-errors"
)

// Option configures the certificate service.
type Option func(*Service)

// Service manages certificate records, their fileHash alias and their indexes.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a certificate service.
func NewService(opts ...Option) *Service {
	svc := &Service{}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics configures Prometheus metrics for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// AddCertificate records a new certificate under its ID and file hash and
// indexes it by student and institution.
func (s *Service) AddCertificate(ctx context.Context, tx ledger.Tx, req models.AddCertificateRequest) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionAddCertificate, ""); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for _, key := range []string{req.CertID, req.FileHash} {
		existing, err := tx.Get(key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, fmt.Sprintf("Certificate %s already exists", key))
		}
	}

	org := access.OrganizationOf(caller)
	if org == "" {
		org = req.Institution
	}
	cert := &models.Certificate{
		DocType:            record.DocTypeCertificate,
		CertID:             req.CertID,
		StudentID:          req.StudentID,
		StudentName:        req.StudentName,
		Course:             req.Course,
		Institution:        req.Institution,
		Grade:              req.Grade,
		IssueDate:          req.IssueDate,
		FileHash:           req.FileHash,
		Verified:           true,
		Revoked:            false,
		Issuer:             caller.ID,
		IssuerOrganization: org,
		TransactionID:      tx.TxID(),
		Timestamp:          ledger.FormatTimestamp(tx.Timestamp()),
	}

	studentKey, err := compositekey.StudentCert.Key(cert.StudentID, cert.CertID)
	if err != nil {
		return nil, err
	}
	institutionKey, err := compositekey.InstitutionCert.Key(cert.Institution, cert.CertID)
	if err != nil {
		return nil, err
	}
	if err := s.persist(tx, cert); err != nil {
		return nil, err
	}
	for _, key := range []string{studentKey, institutionKey} {
		if err := tx.Put(key, compositekey.Marker); err != nil {
			return nil, err
		}
	}
	if err := emit(tx, models.EventCertificateAdded, models.AddedEvent{
		CertID:      cert.CertID,
		StudentID:   cert.StudentID,
		Institution: cert.Institution,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncIssued(metrics.KindCertificate)
	s.logInfo(ctx, "certificate added", "cert_id", cert.CertID, "tx_id", cert.TransactionID)
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Certificate %s added successfully", cert.CertID),
		TransactionID: cert.TransactionID,
	}, nil
}

// RevokeCertificate marks a certificate revoked. Revocation is permanent.
func (s *Service) RevokeCertificate(ctx context.Context, tx ledger.Tx, certID, reason string) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionRevokeCertificate, ""); err != nil {
		return nil, err
	}
	if err := (models.RevokeRequest{Reason: reason}).Validate(); err != nil {
		return nil, err
	}
	cert, err := s.mustLoad(tx, certID)
	if err != nil {
		return nil, err
	}
	if cert.Revoked {
		return nil, dErrors.New(dErrors.CodeAlreadyRevoked, fmt.Sprintf("Certificate %s is already revoked", certID))
	}
	if err := access.Authorize(caller, access.ActionRevokeCertificate, cert.Issuer); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "You can only revoke certificates issued by your institution")
	}

	if reason == "" {
		reason = models.DefaultRevocationReason
	}
	cert.Revoked = true
	cert.RevocationReason = reason
	cert.RevokedBy = caller.ID
	cert.RevocationDate = ledger.FormatTimestamp(tx.Timestamp())
	cert.RevocationTransactionID = tx.TxID()

	if err := s.persist(tx, cert); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventCertificateRevoked, models.RevokedEvent{CertID: certID, Reason: reason}); err != nil {
		return nil, err
	}

	s.metrics.IncRevoked(metrics.KindCertificate)
	s.logInfo(ctx, "certificate revoked", "cert_id", certID, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Certificate %s revoked", certID),
		TransactionID: tx.TxID(),
	}, nil
}

// UpdateCertificateGrade corrects the grade of an active certificate. Only the
// issuing institution may do so.
func (s *Service) UpdateCertificateGrade(ctx context.Context, tx ledger.Tx, certID, newGrade, reason string) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionUpdateCertificateGrade, ""); err != nil {
		return nil, err
	}
	if err := (models.UpdateGradeRequest{NewGrade: newGrade, Reason: reason}).Validate(); err != nil {
		return nil, err
	}
	cert, err := s.mustLoad(tx, certID)
	if err != nil {
		return nil, err
	}
	if cert.Revoked {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Cannot update a revoked certificate")
	}
	if err := access.Authorize(caller, access.ActionUpdateCertificateGrade, cert.Issuer); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "You can only update certificates issued by your institution")
	}

	if reason == "" {
		reason = models.DefaultGradeUpdateReason
	}
	oldGrade := cert.Grade
	cert.Grade = newGrade
	cert.GradeUpdated = true
	cert.GradeUpdateReason = reason
	cert.GradeUpdatedBy = caller.ID
	cert.GradeUpdateDate = ledger.FormatTimestamp(tx.Timestamp())
	cert.GradeUpdateTransactionID = tx.TxID()

	if err := s.persist(tx, cert); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventCertificateUpdated, models.UpdatedEvent{
		CertID:   certID,
		OldGrade: oldGrade,
		NewGrade: newGrade,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncGradeCorrection()
	s.logInfo(ctx, "certificate grade updated", "cert_id", certID, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Certificate grade updated from %s to %s", oldGrade, newGrade),
		TransactionID: tx.TxID(),
	}, nil
}

// load reads the certificate stored under key. It returns nil when the key is
// absent or holds another kind of record.
func (s *Service) load(tx ledger.Tx, key string) (*models.Certificate, error) {
	if err := compositekey.ValidatePrimaryKey(key); err != nil {
		return nil, err
	}
	raw, err := tx.Get(key)
	if err != nil || raw == nil {
		return nil, err
	}
	var cert models.Certificate
	if err := record.Unmarshal(key, raw, &cert); err != nil {
		return nil, err
	}
	if !cert.IsCertificate() {
		return nil, nil
	}
	return &cert, nil
}

func (s *Service) mustLoad(tx ledger.Tx, certID string) (*models.Certificate, error) {
	cert, err := s.load(tx, certID)
	if err != nil {
		return nil, err
	}
	if cert == nil || cert.CertID != certID {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Certificate %s does not exist", certID))
	}
	return cert, nil
}

// persist writes the certificate under its ID and its file hash in the same
// transaction.
func (s *Service) persist(tx ledger.Tx, cert *models.Certificate) error {
	b, err := record.Marshal(cert)
	if err != nil {
		return err
	}
	if err := tx.Put(cert.CertID, b); err != nil {
		return err
	}
	return tx.Put(cert.FileHash, b)
}

func emit(tx ledger.Tx, name string, payload any) error {
	b, err := record.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.EmitEvent(name, b)
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
