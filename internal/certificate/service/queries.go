package service

import (
	"context"
	"fmt"
	"strings"

	"credledger/internal/access"
	"credledger/internal/audittrail"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/ledger/record"
	"credledger/internal/platform/metrics"
	dErrors "credledger/pkg/domain-errors"
)

// QueryCertificate returns the certificate stored under certID. A missing
// certificate is an error here, unlike VerifyCertificate.
func (s *Service) QueryCertificate(_ context.Context, tx ledger.Tx, certID string) (*models.Certificate, error) {
	if err := access.Authorize(tx.Caller(), access.ActionQueryCertificate, ""); err != nil {
		return nil, err
	}
	return s.mustLoad(tx, certID)
}

// VerifyCertificate checks a certificate by ID or file hash. Not found and
// revoked are soft results.
func (s *Service) VerifyCertificate(_ context.Context, tx ledger.Tx, idOrHash string) (*models.VerifyResult, error) {
	if err := access.Authorize(tx.Caller(), access.ActionVerifyCertificate, ""); err != nil {
		return nil, err
	}
	cert, err := s.load(tx, idOrHash)
	if err != nil {
		return nil, err
	}
	switch {
	case cert == nil:
		s.metrics.IncVerify(metrics.KindCertificate, "not_found")
		return &models.VerifyResult{Valid: false, Reason: models.ReasonNotFound}, nil
	case cert.Revoked:
		s.metrics.IncVerify(metrics.KindCertificate, "revoked")
		return &models.VerifyResult{
			CertID:           cert.CertID,
			Valid:            false,
			Reason:           models.ReasonRevoked,
			RevocationDate:   cert.RevocationDate,
			RevocationReason: cert.RevocationReason,
		}, nil
	default:
		s.metrics.IncVerify(metrics.KindCertificate, "valid")
		return &models.VerifyResult{
			CertID:      cert.CertID,
			Valid:       true,
			Verified:    true,
			Certificate: cert,
			Message:     models.MessageVerified,
		}, nil
	}
}

// BatchVerifyCertificates verifies each entry independently. A failure on one
// entry becomes an invalid result for that entry.
func (s *Service) BatchVerifyCertificates(ctx context.Context, tx ledger.Tx, ids []string) ([]models.VerifyResult, error) {
	if err := access.Authorize(tx.Caller(), access.ActionBatchVerifyCertificates, ""); err != nil {
		return nil, err
	}
	results := make([]models.VerifyResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.VerifyCertificate(ctx, tx, id)
		if err != nil {
			results = append(results, models.VerifyResult{CertID: id, Valid: false, Reason: err.Error()})
			continue
		}
		if res.CertID == "" {
			res.CertID = id
		}
		results = append(results, *res)
	}
	return results, nil
}

// CertificateExists reports whether certID names a certificate.
func (s *Service) CertificateExists(_ context.Context, tx ledger.Tx, certID string) (*models.ExistsResult, error) {
	if err := access.Authorize(tx.Caller(), access.ActionCertificateExists, ""); err != nil {
		return nil, err
	}
	cert, err := s.load(tx, certID)
	if err != nil {
		return nil, err
	}
	return &models.ExistsResult{Exists: cert != nil && cert.CertID == certID}, nil
}

// GetCertificateMetadata returns the public fields of a certificate.
func (s *Service) GetCertificateMetadata(_ context.Context, tx ledger.Tx, certID string) (*models.Metadata, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetCertificateMetadata, ""); err != nil {
		return nil, err
	}
	cert, err := s.mustLoad(tx, certID)
	if err != nil {
		return nil, err
	}
	md := models.MetadataOf(cert)
	return &md, nil
}

// GetStudentCertificates returns a student's certificates in index order.
func (s *Service) GetStudentCertificates(_ context.Context, tx ledger.Tx, studentID string) ([]models.Certificate, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetStudentCertificates, ""); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "studentId is required")
	}
	return s.fromIndex(tx, compositekey.StudentCert, studentID)
}

// GetInstitutionCertificates returns the certificates issued under an
// institution name in index order.
func (s *Service) GetInstitutionCertificates(_ context.Context, tx ledger.Tx, institution string) ([]models.Certificate, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetInstitutionCertificates, ""); err != nil {
		return nil, err
	}
	if institution == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "institution is required")
	}
	return s.fromIndex(tx, compositekey.InstitutionCert, institution)
}

// GetStudentCertificateSummary aggregates a student's certificates.
func (s *Service) GetStudentCertificateSummary(ctx context.Context, tx ledger.Tx, studentID string) (*models.StudentSummary, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetStudentCertificateSummary, ""); err != nil {
		return nil, err
	}
	certs, err := s.GetStudentCertificates(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	summary := &models.StudentSummary{
		StudentID:         studentID,
		TotalCertificates: len(certs),
		Institutions:      []string{},
		Courses:           make([]models.CourseEntry, 0, len(certs)),
	}
	seen := make(map[string]struct{})
	for i := range certs {
		c := &certs[i]
		if c.Revoked {
			summary.RevokedCertificates++
		} else {
			summary.ActiveCertificates++
		}
		if _, ok := seen[c.Institution]; !ok {
			seen[c.Institution] = struct{}{}
			summary.Institutions = append(summary.Institutions, c.Institution)
		}
		summary.Courses = append(summary.Courses, models.CourseEntry{
			Course:      c.Course,
			Institution: c.Institution,
			Grade:       c.Grade,
			IssueDate:   c.IssueDate,
			Status:      c.Status(),
		})
	}
	return summary, nil
}

// GetCertificateHistory returns every committed version of a certificate.
func (s *Service) GetCertificateHistory(_ context.Context, tx ledger.Tx, certID string) ([]audittrail.Entry, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetCertificateHistory, ""); err != nil {
		return nil, err
	}
	if err := compositekey.ValidatePrimaryKey(certID); err != nil {
		return nil, err
	}
	return audittrail.Read(tx, certID)
}

// QueryAllCertificates returns every certificate on the ledger.
func (s *Service) QueryAllCertificates(_ context.Context, tx ledger.Tx) ([]models.Certificate, error) {
	if err := access.Authorize(tx.Caller(), access.ActionQueryAllCertificates, ""); err != nil {
		return nil, err
	}
	return s.scanAll(tx, func(*models.Certificate) bool { return true })
}

// SearchCertificatesByCourse returns certificates whose course contains the
// search term, ignoring case.
func (s *Service) SearchCertificatesByCourse(_ context.Context, tx ledger.Tx, course string) ([]models.Certificate, error) {
	if err := access.Authorize(tx.Caller(), access.ActionSearchCertificatesByCourse, ""); err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(course))
	if term == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course is required")
	}
	return s.scanAll(tx, func(c *models.Certificate) bool {
		return strings.Contains(strings.ToLower(c.Course), term)
	})
}

// fromIndex walks ns under leading and dereferences each certificate ID.
// Entries whose record has disappeared are skipped.
func (s *Service) fromIndex(tx ledger.Tx, ns compositekey.Namespace, leading string) ([]models.Certificate, error) {
	it, err := tx.IteratePrefix(ns.Name, leading)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Collect(it)
	if err != nil {
		return nil, err
	}

	out := make([]models.Certificate, 0, len(entries))
	for _, kv := range entries {
		parts, err := ns.Decode(kv.Key)
		if err != nil {
			return nil, err
		}
		cert, err := s.load(tx, parts[1])
		if err != nil {
			return nil, err
		}
		if cert == nil {
			continue
		}
		out = append(out, *cert)
	}
	return out, nil
}

// scanAll walks every primary key and keeps certificates stored under their
// own ID, so file hash aliases are not reported twice.
func (s *Service) scanAll(tx ledger.Tx, keep func(*models.Certificate) bool) ([]models.Certificate, error) {
	it, err := tx.IterateRange("", "")
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Collect(it)
	if err != nil {
		return nil, err
	}

	out := []models.Certificate{}
	for _, kv := range entries {
		if record.Peek(kv.Value) != record.DocTypeCertificate {
			continue
		}
		var cert models.Certificate
		if err := record.Unmarshal(kv.Key, kv.Value, &cert); err != nil {
			return nil, err
		}
		if cert.CertID != kv.Key {
			continue
		}
		if keep(&cert) {
			out = append(out, cert)
		}
	}
	return out, nil
}

// InitLedger records that the ledger was initialized. It writes no seed data.
func (s *Service) InitLedger(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
	s.logInfo(ctx, "certificate ledger initialized", "tx_id", tx.TxID())
	return &models.MutationResult{
		Success: true,
		Message: fmt.Sprintf("Certificate ledger initialized in transaction %s", tx.TxID()),
	}, nil
}
