package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"credledger/internal/audittrail"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/platform/metrics"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
	"credledger/pkg/testutil"
)

// ServiceSuite exercises the certificate manager against the in-memory ledger.
//
// Justification: the manager's guarantees (dual-key writes, one-way revocation,
// issuer-only corrections, soft verification results) only hold when the whole
// transaction is observed, so these tests go through Submit/Evaluate rather than
// mocking the store.
type ServiceSuite struct {
	suite.Suite
	ledger   *ledger.Memory
	svc      *Service
	ctx      context.Context
	mit      ledger.Caller
	stanford ledger.Caller
	admin    ledger.Caller
	employer ledger.Caller
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ledger = ledger.NewMemory()
	s.svc = NewService(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	s.mit = ledger.NewCaller("x509::CN=registrar::O=MIT", "institution", "MIT")
	s.stanford = ledger.NewCaller("x509::CN=registrar::O=Stanford", "institution", "Stanford")
	s.admin = ledger.NewCaller("x509::CN=admin", "admin", "Org1MSP")
	s.employer = ledger.NewCaller("x509::CN=hr::O=Acme", "employer", "Acme")
}

func addRequest(certID, studentID string) models.AddCertificateRequest {
	return testutil.NewCertificate(certID).ForStudent(studentID).Build()
}

func (s *ServiceSuite) add(caller ledger.Caller, req models.AddCertificateRequest) (*models.MutationResult, error) {
	return ledger.SubmitResult(s.ctx, s.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.AddCertificate(s.ctx, tx, req)
	})
}

func (s *ServiceSuite) mustAdd(req models.AddCertificateRequest) {
	_, err := s.add(s.mit, req)
	s.Require().NoError(err)
}

func (s *ServiceSuite) query(certID string) (*models.Certificate, error) {
	return ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) (*models.Certificate, error) {
		return s.svc.QueryCertificate(s.ctx, tx, certID)
	})
}

func (s *ServiceSuite) verify(idOrHash string) *models.VerifyResult {
	res, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) (*models.VerifyResult, error) {
		return s.svc.VerifyCertificate(s.ctx, tx, idOrHash)
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) revoke(caller ledger.Caller, certID, reason string) (*models.MutationResult, error) {
	return ledger.SubmitResult(s.ctx, s.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.RevokeCertificate(s.ctx, tx, certID, reason)
	})
}

func (s *ServiceSuite) updateGrade(caller ledger.Caller, certID, grade, reason string) (*models.MutationResult, error) {
	return ledger.SubmitResult(s.ctx, s.ledger, caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.UpdateCertificateGrade(s.ctx, tx, certID, grade, reason)
	})
}

func (s *ServiceSuite) raw(key string) []byte {
	b, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]byte, error) {
		return tx.Get(key)
	})
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) pendingEvents() []string {
	entries, err := s.ledger.FetchUnprocessed(s.ctx, 100)
	s.Require().NoError(err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.EventType)
	}
	return names
}

func (s *ServiceSuite) TestAddCertificate() {
	s.Run("fresh certificate is stored verified and active", func() {
		res, err := s.add(s.mit, addRequest("CERT1", "S1"))
		s.Require().NoError(err)
		s.True(res.Success)
		s.Equal("Certificate CERT1 added successfully", res.Message)
		s.NotEmpty(res.TransactionID)

		cert, err := s.query("CERT1")
		s.Require().NoError(err)
		s.True(cert.Verified)
		s.False(cert.Revoked)
		s.Equal("certificate", cert.DocType)
		s.Equal("S1", cert.StudentID)
		s.Equal("Ada Lovelace", cert.StudentName)
		s.Equal("Computer Science", cert.Course)
		s.Equal("MIT", cert.Institution)
		s.Equal("A", cert.Grade)
		s.Equal("2024-05-30", cert.IssueDate)
		s.Equal("sha256-CERT1", cert.FileHash)
		s.Equal(s.mit.ID, cert.Issuer)
		s.Equal("MIT", cert.IssuerOrganization)
		s.Equal(res.TransactionID, cert.TransactionID)
		s.Equal("2024-06-15T09:00:00.000Z", cert.Timestamp)
	})

	s.Run("primary and alias hold identical bytes and indexes exist", func() {
		s.Equal(s.raw("CERT1"), s.raw("sha256-CERT1"))
		studentKey, err := compositekey.StudentCert.Key("S1", "CERT1")
		s.Require().NoError(err)
		institutionKey, err := compositekey.InstitutionCert.Key("MIT", "CERT1")
		s.Require().NoError(err)
		s.Equal(compositekey.Marker, s.raw(studentKey))
		s.Equal(compositekey.Marker, s.raw(institutionKey))
	})

	s.Run("added event carries ids", func() {
		entries, err := s.ledger.FetchUnprocessed(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(models.EventCertificateAdded, entries[0].EventType)
		s.Equal(`{"certId":"CERT1","institution":"MIT","studentId":"S1"}`, string(entries[0].Payload))
	})

	s.Run("duplicate certId fails AlreadyExists", func() {
		req := addRequest("CERT1", "S2")
		req.FileHash = "another-hash"
		_, err := s.add(s.mit, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
		s.Nil(s.raw("another-hash"))
	})

	s.Run("reused file hash fails AlreadyExists", func() {
		req := addRequest("CERT2", "S1")
		req.FileHash = "sha256-CERT1"
		_, err := s.add(s.mit, req)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
		s.Nil(s.raw("CERT2"))
	})

	s.Run("missing fields fail InvalidInput", func() {
		req := addRequest("CERT3", "S1")
		req.StudentName = ""
		req.FileHash = ""
		_, err := s.add(s.mit, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "studentName")
		s.Contains(err.Error(), "fileHash")
	})

	s.Run("empty grade is accepted", func() {
		req := addRequest("CERT4", "S4")
		req.Grade = ""
		_, err := s.add(s.mit, req)
		s.NoError(err)
	})

	s.Run("ids with the key separator are rejected", func() {
		_, err := s.add(s.mit, addRequest("CERT\x005", "S1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("only institutions may add", func() {
		for _, c := range []ledger.Caller{s.admin, s.employer, ledger.NewCaller("anon", "", "")} {
			_, err := s.add(c, addRequest("CERT6", "S6"))
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		}
		s.Nil(s.raw("CERT6"))
	})

	s.Run("organization falls back to institution field", func() {
		noOrg := ledger.NewCaller("x509::CN=clerk", "institution", "")
		req := addRequest("CERT7", "S7")
		req.Institution = "Caltech"
		_, err := s.add(noOrg, req)
		s.Require().NoError(err)
		cert, err := s.query("CERT7")
		s.Require().NoError(err)
		s.Equal("Caltech", cert.IssuerOrganization)
	})
}

func (s *ServiceSuite) TestQueryCertificate() {
	s.Run("missing certificate is a hard NotFound", func() {
		_, err := s.query("NOPE")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("file hash is not a certificate id", func() {
		s.mustAdd(addRequest("CERT1", "S1"))
		_, err := s.query("sha256-CERT1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed stored JSON is CorruptRecord", func() {
		s.Require().NoError(s.ledger.Submit(s.ctx, s.admin, func(tx ledger.Tx) error {
			return tx.Put("BROKEN", []byte(`{"docType":"certificate",`))
		}))
		_, err := s.query("BROKEN")
		s.True(dErrors.HasCode(err, dErrors.CodeCorruptRecord))
		s.False(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestVerifyCertificate() {
	s.mustAdd(addRequest("CERT1", "S1"))

	s.Run("unknown id is a soft negative", func() {
		res := s.verify("NOPE")
		s.False(res.Valid)
		s.Equal("Certificate not found", res.Reason)
	})

	s.Run("valid by id and by hash", func() {
		for _, key := range []string{"CERT1", "sha256-CERT1"} {
			res := s.verify(key)
			s.True(res.Valid)
			s.True(res.Verified)
			s.Equal("Certificate is authentic and verified by blockchain", res.Message)
			s.Require().NotNil(res.Certificate)
			s.Equal("CERT1", res.Certificate.CertID)
		}
	})

	s.Run("verification writes nothing", func() {
		before := s.historyLen("CERT1")
		s.verify("CERT1")
		s.verify("CERT1")
		s.Equal(before, s.historyLen("CERT1"))
	})
}

func (s *ServiceSuite) historyLen(certID string) int {
	entries, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]audittrail.Entry, error) {
		return s.svc.GetCertificateHistory(s.ctx, tx, certID)
	})
	s.Require().NoError(err)
	return len(entries)
}

func (s *ServiceSuite) TestRevokeCertificate() {
	s.mustAdd(addRequest("CERT1", "S1"))

	s.Run("unknown certificate fails NotFound", func() {
		_, err := s.revoke(s.mit, "NOPE", "x")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("employer cannot revoke", func() {
		_, err := s.revoke(s.employer, "CERT1", "x")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("issuer revokes with default reason", func() {
		res, err := s.revoke(s.mit, "CERT1", "")
		s.Require().NoError(err)
		s.Equal("Certificate CERT1 revoked", res.Message)

		cert, err := s.query("CERT1")
		s.Require().NoError(err)
		s.True(cert.Revoked)
		s.Equal("No reason provided", cert.RevocationReason)
		s.Equal(s.mit.ID, cert.RevokedBy)
		s.Equal("2024-06-15T09:00:00.000Z", cert.RevocationDate)
		s.Equal(res.TransactionID, cert.RevocationTransactionID)
		s.Equal(s.raw("CERT1"), s.raw("sha256-CERT1"), "alias follows the primary")
	})

	s.Run("revoked certificate fails verification by id and hash", func() {
		for _, key := range []string{"CERT1", "sha256-CERT1"} {
			res := s.verify(key)
			s.False(res.Valid)
			s.Equal("Certificate revoked", res.Reason)
			s.Equal("No reason provided", res.RevocationReason)
			s.Equal("2024-06-15T09:00:00.000Z", res.RevocationDate)
		}
	})

	s.Run("no second revocation and no grade change", func() {
		_, err := s.revoke(s.mit, "CERT1", "again")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
		_, err = s.revoke(s.admin, "CERT1", "again")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
		_, err = s.updateGrade(s.mit, "CERT1", "B", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		cert, err := s.query("CERT1")
		s.Require().NoError(err)
		s.True(cert.Revoked)
		s.Equal("A", cert.Grade)
	})

	s.Run("admin may revoke another issuer's certificate", func() {
		s.mustAdd(addRequest("CERT2", "S2"))
		_, err := s.revoke(s.admin, "CERT2", "audit finding")
		s.Require().NoError(err)
		cert, err := s.query("CERT2")
		s.Require().NoError(err)
		s.Equal("audit finding", cert.RevocationReason)
		s.Equal(s.admin.ID, cert.RevokedBy)
	})
}

func (s *ServiceSuite) TestUpdateCertificateGrade() {
	s.mustAdd(addRequest("CERT1", "S1"))
	original, err := s.query("CERT1")
	s.Require().NoError(err)

	s.Run("non-issuing institution is forbidden", func() {
		_, err := s.updateGrade(s.stanford, "CERT1", "A+", "regrade")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin is not an institution", func() {
		_, err := s.updateGrade(s.admin, "CERT1", "A+", "regrade")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing certificate", func() {
		_, err := s.updateGrade(s.mit, "NOPE", "A+", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("issuer changes only grade and audit metadata", func() {
		res, err := s.updateGrade(s.mit, "CERT1", "A+", "")
		s.Require().NoError(err)
		s.Equal("Certificate grade updated from A to A+", res.Message)

		updated, err := s.query("CERT1")
		s.Require().NoError(err)
		s.Equal("A+", updated.Grade)
		s.True(updated.GradeUpdated)
		s.Equal("Grade correction", updated.GradeUpdateReason)
		s.Equal(s.mit.ID, updated.GradeUpdatedBy)
		s.Equal("2024-06-15T09:00:00.000Z", updated.GradeUpdateDate)
		s.Equal(res.TransactionID, updated.GradeUpdateTransactionID)

		stripped := *updated
		stripped.Grade = original.Grade
		stripped.GradeUpdated = false
		stripped.GradeUpdateReason = ""
		stripped.GradeUpdatedBy = ""
		stripped.GradeUpdateDate = ""
		stripped.GradeUpdateTransactionID = ""
		s.Equal(*original, stripped)
		s.Equal(s.raw("CERT1"), s.raw("sha256-CERT1"))
	})

	s.Run("updated event carries both grades", func() {
		entries, err := s.ledger.FetchUnprocessed(s.ctx, 10)
		s.Require().NoError(err)
		last := entries[len(entries)-1]
		s.Equal(models.EventCertificateUpdated, last.EventType)
		s.Equal(`{"certId":"CERT1","newGrade":"A+","oldGrade":"A"}`, string(last.Payload))
	})

	s.Run("history shows both versions oldest first", func() {
		entries, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]audittrail.Entry, error) {
			return s.svc.GetCertificateHistory(s.ctx, tx, "CERT1")
		})
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Contains(string(entries[0].Value), `"grade":"A"`)
		s.Contains(string(entries[1].Value), `"grade":"A+"`)
	})
}

func (s *ServiceSuite) TestMutationFieldLimits() {
	s.mustAdd(addRequest("CERT_L", "S1"))
	before := s.raw("CERT_L")
	events := len(s.pendingEvents())

	s.Run("oversized grade is rejected", func() {
		_, err := s.updateGrade(s.mit, "CERT_L", strings.Repeat("A", 5000), "regrade")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized grade reason is rejected", func() {
		_, err := s.updateGrade(s.mit, "CERT_L", "B", strings.Repeat("r", 100000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized revocation reason is rejected", func() {
		_, err := s.revoke(s.mit, "CERT_L", strings.Repeat("r", 100000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("record and outbox are untouched", func() {
		s.Equal(before, s.raw("CERT_L"))
		s.Len(s.pendingEvents(), events)
	})

	s.Run("values at the limit are accepted", func() {
		_, err := s.updateGrade(s.mit, "CERT_L", strings.Repeat("A", 512), "")
		s.Require().NoError(err)
		_, err = s.revoke(s.mit, "CERT_L", strings.Repeat("r", 2048))
		s.Require().NoError(err)
	})
}

// TestIssuerScenario walks one certificate through issue, a foreign revoke
// attempt and the issuer's revocation.
func (s *ServiceSuite) TestIssuerScenario() {
	req := addRequest("CERT_S1_001", "S1")
	s.mustAdd(req)

	certs, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]models.Certificate, error) {
		return s.svc.GetStudentCertificates(s.ctx, tx, "S1")
	})
	s.Require().NoError(err)
	s.Require().Len(certs, 1)
	stored, err := s.query("CERT_S1_001")
	s.Require().NoError(err)
	s.Equal(*stored, certs[0])

	_, err = s.revoke(s.stanford, "CERT_S1_001", "fraud")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.True(s.verify("CERT_S1_001").Valid)

	_, err = s.revoke(s.mit, "CERT_S1_001", "fraud")
	s.Require().NoError(err)
	res := s.verify("CERT_S1_001")
	s.False(res.Valid)
	s.Equal("Certificate revoked", res.Reason)
	s.Equal("fraud", res.RevocationReason)
	s.NotEmpty(res.RevocationDate)

	s.Equal([]string{models.EventCertificateAdded, models.EventCertificateRevoked}, s.pendingEvents())
}

func (s *ServiceSuite) TestIndexQueries() {
	s.mustAdd(addRequest("CERT1", "S1"))
	s.mustAdd(addRequest("CERT2", "S1"))
	s.mustAdd(addRequest("CERT3", "S10"))
	other := addRequest("CERT4", "S1")
	other.Institution = "Stanford"
	_, err := s.add(s.stanford, other)
	s.Require().NoError(err)

	s.Run("student prefix does not leak into longer ids", func() {
		certs, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.GetStudentCertificates(s.ctx, tx, "S1")
		})
		s.Require().NoError(err)
		ids := make([]string, 0, len(certs))
		for _, c := range certs {
			ids = append(ids, c.CertID)
		}
		s.Equal([]string{"CERT1", "CERT2", "CERT4"}, ids)
	})

	s.Run("unknown student yields empty list", func() {
		certs, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.GetStudentCertificates(s.ctx, tx, "S99")
		})
		s.Require().NoError(err)
		s.Empty(certs)
	})

	s.Run("institution listing requires institution or admin", func() {
		_, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.GetInstitutionCertificates(s.ctx, tx, "MIT")
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		certs, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.GetInstitutionCertificates(s.ctx, tx, "MIT")
		})
		s.Require().NoError(err)
		s.Len(certs, 3)
	})

	s.Run("summary counts statuses and institutions", func() {
		_, err := s.revoke(s.mit, "CERT2", "typo")
		s.Require().NoError(err)
		summary, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) (*models.StudentSummary, error) {
			return s.svc.GetStudentCertificateSummary(s.ctx, tx, "S1")
		})
		s.Require().NoError(err)
		s.Equal(3, summary.TotalCertificates)
		s.Equal(2, summary.ActiveCertificates)
		s.Equal(1, summary.RevokedCertificates)
		s.Equal([]string{"MIT", "Stanford"}, summary.Institutions)
		s.Require().Len(summary.Courses, 3)
		s.Equal(models.StatusRevoked, summary.Courses[1].Status)
		s.Equal(models.StatusActive, summary.Courses[0].Status)
	})

	s.Run("admin scans skip aliases", func() {
		all, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.QueryAllCertificates(s.ctx, tx)
		})
		s.Require().NoError(err)
		s.Len(all, 4)

		_, err = ledger.EvaluateResult(s.ctx, s.ledger, s.mit, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.QueryAllCertificates(s.ctx, tx)
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("course search ignores case", func() {
		found, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.SearchCertificatesByCourse(s.ctx, tx, "computer")
		})
		s.Require().NoError(err)
		s.Len(found, 4)

		none, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Certificate, error) {
			return s.svc.SearchCertificatesByCourse(s.ctx, tx, "Biology")
		})
		s.Require().NoError(err)
		s.Empty(none)
	})
}

func (s *ServiceSuite) TestLightweightQueries() {
	s.mustAdd(addRequest("CERT1", "S1"))

	s.Run("exists", func() {
		for key, want := range map[string]bool{"CERT1": true, "sha256-CERT1": false, "NOPE": false} {
			res, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) (*models.ExistsResult, error) {
				return s.svc.CertificateExists(s.ctx, tx, key)
			})
			s.Require().NoError(err)
			s.Equal(want, res.Exists, key)
		}
	})

	s.Run("metadata omits hash and issuer", func() {
		md, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) (*models.Metadata, error) {
			return s.svc.GetCertificateMetadata(s.ctx, tx, "CERT1")
		})
		s.Require().NoError(err)
		s.Equal("CERT1", md.CertID)
		s.Equal("A", md.Grade)
		s.True(md.Verified)
	})

	s.Run("batch verify reports each entry", func() {
		results, err := ledger.EvaluateResult(s.ctx, s.ledger, s.employer, func(tx ledger.Tx) ([]models.VerifyResult, error) {
			return s.svc.BatchVerifyCertificates(s.ctx, tx, []string{"CERT1", "NOPE", ""})
		})
		s.Require().NoError(err)
		s.Require().Len(results, 3)
		s.True(results[0].Valid)
		s.Equal("CERT1", results[0].CertID)
		s.False(results[1].Valid)
		s.Equal("Certificate not found", results[1].Reason)
		s.Equal("NOPE", results[1].CertID)
		s.False(results[2].Valid)
		s.NotEmpty(results[2].Reason)
	})
}
