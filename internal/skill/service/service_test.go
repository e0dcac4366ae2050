package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"credledger/internal/audittrail"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/platform/metrics"
	"credledger/internal/skill/models"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
	"credledger/pkg/testutil"
)

// SkillServiceSuite exercises the skill manager against the in-memory ledger.
//
// Justification: expiry is evaluated at request time and endorsements are
// deduplicated against committed state, so the tests drive whole transactions
// with a fixed request clock instead of stubbing the store.
type SkillServiceSuite struct {
	suite.Suite
	ledger   *ledger.Memory
	svc      *Service
	ctx      context.Context
	acme     ledger.Caller
	mit      ledger.Caller
	stanford ledger.Caller
	admin    ledger.Caller
}

func TestSkillServiceSuite(t *testing.T) {
	suite.Run(t, new(SkillServiceSuite))
}

func (s *SkillServiceSuite) SetupTest() {
	s.ledger = ledger.NewMemory()
	s.svc = NewService(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	s.acme = ledger.NewCaller("x509::CN=hr::O=Acme", "employer", "Acme")
	s.mit = ledger.NewCaller("x509::CN=registrar::O=MIT", "institution", "MIT")
	s.stanford = ledger.NewCaller("x509::CN=registrar::O=Stanford", "institution", "Stanford")
	s.admin = ledger.NewCaller("x509::CN=admin", "admin", "Org1MSP")
}

func skillRequest(skillID, studentID, name, category, level string) models.AddSkillRequest {
	return testutil.NewSkill(skillID).ForStudent(studentID).Named(name, category).AtLevel(level).Build()
}

func (s *SkillServiceSuite) submit(caller ledger.Caller, fn func(tx ledger.Tx) (*models.MutationResult, error)) (*models.MutationResult, error) {
	return ledger.SubmitResult(s.ctx, s.ledger, caller, fn)
}

func (s *SkillServiceSuite) add(caller ledger.Caller, req models.AddSkillRequest) (*models.MutationResult, error) {
	return s.submit(caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.AddSkill(s.ctx, tx, req)
	})
}

func (s *SkillServiceSuite) mustAdd(req models.AddSkillRequest) {
	_, err := s.add(s.acme, req)
	s.Require().NoError(err)
}

func (s *SkillServiceSuite) endorse(caller ledger.Caller, skillID string, req models.EndorseRequest) (*models.MutationResult, error) {
	return s.submit(caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.EndorseSkill(s.ctx, tx, skillID, req)
	})
}

func (s *SkillServiceSuite) setExpiry(caller ledger.Caller, skillID, date string) (*models.MutationResult, error) {
	return s.submit(caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.SetSkillExpiry(s.ctx, tx, skillID, date)
	})
}

func (s *SkillServiceSuite) revoke(caller ledger.Caller, skillID, reason string) (*models.MutationResult, error) {
	return s.submit(caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.RevokeSkill(s.ctx, tx, skillID, reason)
	})
}

func (s *SkillServiceSuite) updateLevel(caller ledger.Caller, skillID, level, reason string) (*models.MutationResult, error) {
	return s.submit(caller, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.UpdateSkillProficiency(s.ctx, tx, skillID, models.UpdateProficiencyRequest{ProficiencyLevel: level, Reason: reason})
	})
}

func (s *SkillServiceSuite) query(skillID string) (*models.View, error) {
	return ledger.EvaluateResult(s.ctx, s.ledger, s.mit, func(tx ledger.Tx) (*models.View, error) {
		return s.svc.QuerySkill(s.ctx, tx, skillID)
	})
}

func (s *SkillServiceSuite) verify(skillID string) *models.VerifyResult {
	res, err := ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) (*models.VerifyResult, error) {
		return s.svc.VerifySkill(s.ctx, tx, skillID)
	})
	s.Require().NoError(err)
	return res
}

func (s *SkillServiceSuite) history(caller ledger.Caller, skillID string) ([]audittrail.Entry, error) {
	return ledger.EvaluateResult(s.ctx, s.ledger, caller, func(tx ledger.Tx) ([]audittrail.Entry, error) {
		return s.svc.GetSkillHistory(s.ctx, tx, skillID)
	})
}

func (s *SkillServiceSuite) raw(key string) []byte {
	b, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]byte, error) {
		return tx.Get(key)
	})
	s.Require().NoError(err)
	return b
}

func (s *SkillServiceSuite) lastEvent() (string, string) {
	entries, err := s.ledger.FetchUnprocessed(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	last := entries[len(entries)-1]
	return last.EventType, string(last.Payload)
}

func (s *SkillServiceSuite) TestAddSkill() {
	s.Run("level is normalized and defaults are applied", func() {
		res, err := s.add(s.acme, skillRequest("SK1", "S1", "Go", "", "Expert "))
		s.Require().NoError(err)
		s.True(res.Success)
		s.Equal("Skill Go added for student S1", res.Message)
		s.Equal("SK1", res.SkillID)
		s.NotEmpty(res.TransactionID)

		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Equal(models.ProficiencyExpert, view.ProficiencyLevel)
		s.Equal(models.DefaultCategory, view.SkillCategory)
		s.Equal("Acme", view.CertifiedBy)
		s.Equal("employer", view.IssuerRole)
		s.Equal(s.acme.ID, view.Issuer)
		s.Equal("skill", view.DocType)
		s.True(view.Verified)
		s.False(view.Revoked)
		s.Empty(view.Status)
		s.Equal("2024-06-15T09:00:00.000Z", view.Timestamp)
	})

	s.Run("stored record has no expiry and no endorsements", func() {
		var stored map[string]any
		s.Require().NoError(json.Unmarshal(s.raw("SK1"), &stored))
		s.Contains(stored, "expiryDate")
		s.Nil(stored["expiryDate"])
		s.Equal([]any{}, stored["endorsements"])
		s.NotContains(stored, "revocationReason")
	})

	s.Run("indexes and event are written", func() {
		studentKey, err := compositekey.StudentSkill.Key("S1", "SK1")
		s.Require().NoError(err)
		categoryKey, err := compositekey.CategorySkill.Key("general", "SK1")
		s.Require().NoError(err)
		s.Equal(compositekey.Marker, s.raw(studentKey))
		s.Equal(compositekey.Marker, s.raw(categoryKey))

		name, payload := s.lastEvent()
		s.Equal(models.EventSkillAdded, name)
		s.Equal(`{"certifiedBy":"Acme","skillId":"SK1","skillName":"Go","studentId":"S1"}`, payload)
	})

	s.Run("explicit certifier is kept", func() {
		req := skillRequest("SK2", "S1", "Rust", "programming", "beginner")
		req.CertifiedBy = "Rust Foundation"
		s.mustAdd(req)
		view, err := s.query("SK2")
		s.Require().NoError(err)
		s.Equal("Rust Foundation", view.CertifiedBy)
	})

	s.Run("duplicate skillId fails AlreadyExists", func() {
		_, err := s.add(s.mit, skillRequest("SK1", "S9", "Go", "", "beginner"))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("unknown level fails InvalidProficiency and stores nothing", func() {
		_, err := s.add(s.acme, skillRequest("SK3", "S1", "Ninjutsu", "", "ninja"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidProficiency))
		s.Contains(err.Error(), "beginner, intermediate, advanced, expert")
		s.Nil(s.raw("SK3"))
	})

	s.Run("missing fields fail InvalidInput", func() {
		_, err := s.add(s.acme, skillRequest("SK4", "", "", "", "beginner"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "studentId")
		s.Contains(err.Error(), "skillName")
	})

	s.Run("unrecognized role fails Unauthorized", func() {
		student := ledger.NewCaller("x509::CN=student", "student", "MIT")
		_, err := s.add(student, skillRequest("SK5", "S1", "Go", "", "beginner"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Nil(s.raw("SK5"))
	})
}

func (s *SkillServiceSuite) TestQuerySkill() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "advanced"))
	s.mustAdd(skillRequest("SK2", "S1", "Cobol", "programming", "beginner"))
	s.mustAdd(skillRequest("SK3", "S1", "Fortran", "programming", "beginner"))
	_, err := s.setExpiry(s.mit, "SK2", "2024-01-01")
	s.Require().NoError(err)
	_, err = s.revoke(s.acme, "SK3", "")
	s.Require().NoError(err)

	s.Run("active skill has no status", func() {
		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Empty(view.Status)
		s.Empty(view.Warning)
	})

	s.Run("expired skill is flagged", func() {
		view, err := s.query("SK2")
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, view.Status)
		s.Equal(models.WarningExpired, view.Warning)
	})

	s.Run("revoked skill is flagged", func() {
		view, err := s.query("SK3")
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, view.Status)
		s.Equal(models.WarningRevoked, view.Warning)
	})

	s.Run("status is never stored", func() {
		s.NotContains(string(s.raw("SK2")), "status")
		s.NotContains(string(s.raw("SK3")), "warning")
	})

	s.Run("missing skill fails NotFound", func() {
		_, err := s.query("NOPE")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "Skill record NOPE does not exist")
	})
}

func (s *SkillServiceSuite) TestEndorseSkill() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "advanced"))

	s.Run("name and org default to caller organization", func() {
		res, err := s.endorse(s.mit, "SK1", models.EndorseRequest{Note: "excellent"})
		s.Require().NoError(err)
		s.Equal("Skill Go endorsed by MIT", res.Message)
		s.Require().NotNil(res.TotalEndorsements)
		s.Equal(1, *res.TotalEndorsements)

		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Require().Len(view.Endorsements, 1)
		e := view.Endorsements[0]
		s.Equal(s.mit.ID, e.EndorserID)
		s.Equal("MIT", e.EndorserName)
		s.Equal("MIT", e.EndorserOrg)
		s.Equal("institution", e.EndorserRole)
		s.Equal("excellent", e.Note)
		s.Equal(res.TransactionID, e.TransactionID)

		name, payload := s.lastEvent()
		s.Equal(models.EventSkillEndorsed, name)
		s.Equal(`{"endorserName":"MIT","skillId":"SK1"}`, payload)
	})

	s.Run("second endorsement by same caller fails", func() {
		_, err := s.endorse(s.mit, "SK1", models.EndorseRequest{EndorserName: "Prof. X"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEndorsement))
		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Len(view.Endorsements, 1)
	})

	s.Run("another caller may endorse", func() {
		res, err := s.endorse(s.stanford, "SK1", models.EndorseRequest{EndorserName: "Dr. Knuth", EndorserOrg: "CS Dept"})
		s.Require().NoError(err)
		s.Equal(2, *res.TotalEndorsements)
		s.Equal("Skill Go endorsed by Dr. Knuth", res.Message)
	})

	s.Run("missing skill fails NotFound", func() {
		_, err := s.endorse(s.mit, "NOPE", models.EndorseRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("revoked skill cannot be endorsed", func() {
		_, err := s.revoke(s.acme, "SK1", "")
		s.Require().NoError(err)
		_, err = s.endorse(s.admin, "SK1", models.EndorseRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Contains(err.Error(), "Cannot endorse a revoked skill")
	})
}

func (s *SkillServiceSuite) TestUpdateSkillProficiency() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))

	s.Run("level changes with default reason", func() {
		res, err := s.updateLevel(s.mit, "SK1", "ADVANCED", "")
		s.Require().NoError(err)
		s.Equal("Skill proficiency updated from expert to advanced", res.Message)

		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Equal(models.ProficiencyAdvanced, view.ProficiencyLevel)
		s.Equal(models.DefaultProficiencyReason, view.UpdateReason)
		s.Equal(s.mit.ID, view.UpdatedBy)
		s.Equal(res.TransactionID, view.UpdateTransactionID)
		s.Equal("2024-06-15T09:00:00.000Z", view.LastUpdated)

		name, payload := s.lastEvent()
		s.Equal(models.EventSkillUpdated, name)
		s.Equal(`{"newLevel":"advanced","oldLevel":"expert","skillId":"SK1"}`, payload)
	})

	s.Run("level is checked before the record", func() {
		_, err := s.updateLevel(s.mit, "NOPE", "ninja", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidProficiency))
		_, err = s.updateLevel(s.mit, "NOPE", "beginner", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("revoked skill cannot be updated", func() {
		_, err := s.revoke(s.acme, "SK1", "")
		s.Require().NoError(err)
		_, err = s.updateLevel(s.mit, "SK1", "beginner", "demoted")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *SkillServiceSuite) TestSetSkillExpiry() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))

	s.Run("employer may not set expiry", func() {
		_, err := s.setExpiry(s.acme, "SK1", "2030-01-01")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unparseable date fails InvalidDate", func() {
		_, err := s.setExpiry(s.mit, "SK1", "next tuesday")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidDate))
	})

	s.Run("accepted formats", func() {
		for _, date := range []string{"2030-01-01", "2030-01-01T12:00:00", "2030-01-01T12:00:00Z", "2030-01-01T12:00:00+02:00"} {
			res, err := s.setExpiry(s.mit, "SK1", date)
			s.Require().NoError(err, date)
			s.Equal("Expiry date set to "+date+" for skill SK1", res.Message)
		}
		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.Require().NotNil(view.ExpiryDate)
		s.Equal("2030-01-01T12:00:00+02:00", *view.ExpiryDate)
		s.Equal(s.mit.ID, view.ExpirySetBy)
		s.Equal("2024-06-15T09:00:00.000Z", view.ExpirySetDate)

		name, payload := s.lastEvent()
		s.Equal(models.EventSkillExpirySet, name)
		s.Equal(`{"expiryDate":"2030-01-01T12:00:00+02:00","skillId":"SK1"}`, payload)
	})

	s.Run("missing skill fails NotFound", func() {
		_, err := s.setExpiry(s.admin, "NOPE", "2030-01-01")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("revoked skill fails InvalidState", func() {
		_, err := s.revoke(s.acme, "SK1", "")
		s.Require().NoError(err)
		_, err = s.setExpiry(s.mit, "SK1", "2031-01-01")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *SkillServiceSuite) TestRevokeSkill() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))

	s.Run("revocation records reason and transaction", func() {
		res, err := s.revoke(s.mit, "SK1", "")
		s.Require().NoError(err)
		s.Equal("Skill SK1 has been revoked", res.Message)

		view, err := s.query("SK1")
		s.Require().NoError(err)
		s.True(view.Revoked)
		s.Equal(models.DefaultRevocationReason, view.RevocationReason)
		s.Equal(s.mit.ID, view.RevokedBy)
		s.Equal(res.TransactionID, view.RevocationTransactionID)
		s.Equal("2024-06-15T09:00:00.000Z", view.RevocationDate)

		name, payload := s.lastEvent()
		s.Equal(models.EventSkillRevoked, name)
		s.Equal(`{"reason":"No reason provided","skillId":"SK1"}`, payload)
	})

	s.Run("second revocation fails AlreadyRevoked", func() {
		_, err := s.revoke(s.acme, "SK1", "again")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
	})

	s.Run("missing skill fails NotFound", func() {
		_, err := s.revoke(s.acme, "NOPE", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *SkillServiceSuite) TestMutationFieldLimits() {
	s.mustAdd(skillRequest("SK_L", "S1", "Go", "programming", "expert"))
	before := s.raw("SK_L")
	name, payload := s.lastEvent()

	s.Run("oversized proficiency reason is rejected", func() {
		_, err := s.updateLevel(s.mit, "SK_L", "advanced", strings.Repeat("r", 100000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized expiry date is rejected", func() {
		_, err := s.setExpiry(s.mit, "SK_L", "2030-01-01"+strings.Repeat(" ", 5000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized revocation reason is rejected", func() {
		_, err := s.revoke(s.mit, "SK_L", strings.Repeat("r", 100000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("record and outbox are untouched", func() {
		s.Equal(before, s.raw("SK_L"))
		lastName, lastPayload := s.lastEvent()
		s.Equal(name, lastName)
		s.Equal(payload, lastPayload)
	})

	s.Run("reason at the limit is accepted", func() {
		_, err := s.revoke(s.mit, "SK_L", strings.Repeat("r", 2048))
		s.Require().NoError(err)
	})
}

func (s *SkillServiceSuite) TestVerifySkill() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))
	s.mustAdd(skillRequest("SK2", "S1", "Cobol", "programming", "beginner"))
	s.mustAdd(skillRequest("SK3", "S1", "Fortran", "programming", "beginner"))
	_, err := s.setExpiry(s.mit, "SK2", "2024-01-01T00:00:00Z")
	s.Require().NoError(err)
	_, err = s.revoke(s.acme, "SK3", "obsolete")
	s.Require().NoError(err)

	s.Run("missing skill is a soft result", func() {
		res := s.verify("NOPE")
		s.False(res.Valid)
		s.Equal(models.ReasonNotFound, res.Reason)
		s.Nil(res.Skill)
	})

	s.Run("active skill is valid", func() {
		res := s.verify("SK1")
		s.True(res.Valid)
		s.True(res.Verified)
		s.Equal(models.MessageVerified, res.Message)
		s.Require().NotNil(res.Skill)
		s.Equal("SK1", res.Skill.SkillID)
	})

	s.Run("revoked skill includes the record", func() {
		res := s.verify("SK3")
		s.False(res.Valid)
		s.Equal(models.ReasonRevoked, res.Reason)
		s.Require().NotNil(res.Skill)
		s.Equal("obsolete", res.Skill.RevocationReason)
	})

	s.Run("expired skill is idempotent and writes nothing", func() {
		before, err := s.history(s.admin, "SK2")
		s.Require().NoError(err)
		first := s.verify("SK2")
		second := s.verify("SK2")
		s.Equal(first, second)
		s.False(first.Valid)
		s.Equal(models.ReasonExpired, first.Reason)
		after, err := s.history(s.admin, "SK2")
		s.Require().NoError(err)
		s.Len(after, len(before))
	})

	s.Run("expiry is judged at request time", func() {
		earlier := requestcontext.WithTime(context.Background(), time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
		res, err := ledger.EvaluateResult(earlier, s.ledger, s.acme, func(tx ledger.Tx) (*models.VerifyResult, error) {
			return s.svc.VerifySkill(earlier, tx, "SK2")
		})
		s.Require().NoError(err)
		s.True(res.Valid)
	})
}

func (s *SkillServiceSuite) seedProjections() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))
	s.mustAdd(skillRequest("SK2", "S1", "Python", "programming", "beginner"))
	s.mustAdd(skillRequest("SK3", "S1", "Welding", "trades", "advanced"))
	s.mustAdd(skillRequest("SK4", "S2", "SQL", "programming", "intermediate"))

	for _, caller := range []ledger.Caller{s.mit, s.stanford} {
		_, err := s.endorse(caller, "SK1", models.EndorseRequest{})
		s.Require().NoError(err)
	}
	_, err := s.endorse(s.mit, "SK4", models.EndorseRequest{})
	s.Require().NoError(err)
	_, err = s.endorse(s.mit, "SK3", models.EndorseRequest{})
	s.Require().NoError(err)
	_, err = s.setExpiry(s.mit, "SK2", "2024-01-01")
	s.Require().NoError(err)
	_, err = s.revoke(s.acme, "SK3", "")
	s.Require().NoError(err)
}

func (s *SkillServiceSuite) TestProjections() {
	s.seedProjections()

	s.Run("student skills carry view flags in key order", func() {
		skills, err := ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) ([]models.StudentSkill, error) {
			return s.svc.GetStudentSkills(s.ctx, tx, "S1")
		})
		s.Require().NoError(err)
		s.Require().Len(skills, 3)
		s.Equal("SK1", skills[0].SkillID)
		s.Equal(2, skills[0].EndorsementCount)
		s.False(skills[0].IsExpired)
		s.Equal("SK2", skills[1].SkillID)
		s.True(skills[1].IsExpired)
		s.Equal("SK3", skills[2].SkillID)
		s.True(skills[2].Revoked)
	})

	s.Run("category listing excludes revoked skills", func() {
		for category, want := range map[string][]string{
			"programming": {"SK1", "SK2", "SK4"},
			"trades":      {},
			"cooking":     {},
		} {
			skills, err := ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) ([]models.Skill, error) {
				return s.svc.GetSkillsByCategory(s.ctx, tx, category)
			})
			s.Require().NoError(err)
			ids := make([]string, 0, len(skills))
			for _, sk := range skills {
				ids = append(ids, sk.SkillID)
			}
			s.Equal(want, ids, category)
		}
	})

	s.Run("summary counts", func() {
		summary, err := ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) (*models.StudentSummary, error) {
			return s.svc.GetStudentSkillSummary(s.ctx, tx, "S1")
		})
		s.Require().NoError(err)
		s.Equal("S1", summary.StudentID)
		s.Equal(3, summary.TotalSkills)
		s.Equal(1, summary.ActiveSkills)
		s.Equal(1, summary.ExpiredSkills)
		s.Equal(1, summary.RevokedSkills)
		s.Equal(3, summary.TotalEndorsements)
		s.Equal(models.ProficiencyBreakdown{Beginner: 1, Expert: 1}, summary.ProficiencyBreakdown)
		s.Equal([]string{"programming", "trades"}, summary.Categories)
		s.Len(summary.Skills, 3)
	})

	s.Run("summary of unknown student is empty", func() {
		summary, err := ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) (*models.StudentSummary, error) {
			return s.svc.GetStudentSkillSummary(s.ctx, tx, "S404")
		})
		s.Require().NoError(err)
		s.Zero(summary.TotalSkills)
		s.Empty(summary.Categories)
		s.NotNil(summary.Skills)
	})

	s.Run("top endorsed orders by count and honors limit", func() {
		top := func(limit int) []string {
			skills, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Skill, error) {
				return s.svc.GetTopEndorsedSkills(s.ctx, tx, limit)
			})
			s.Require().NoError(err)
			ids := make([]string, 0, len(skills))
			for _, sk := range skills {
				ids = append(ids, sk.SkillID)
			}
			return ids
		}
		s.Equal([]string{"SK1", "SK4"}, top(2))
		s.Equal([]string{"SK1", "SK4", "SK2"}, top(0))
		s.Equal([]string{"SK1", "SK4", "SK2"}, top(-3))
	})

	s.Run("admin listings reject other roles", func() {
		_, err := ledger.EvaluateResult(s.ctx, s.ledger, s.mit, func(tx ledger.Tx) ([]models.Skill, error) {
			return s.svc.GetTopEndorsedSkills(s.ctx, tx, 5)
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		_, err = ledger.EvaluateResult(s.ctx, s.ledger, s.acme, func(tx ledger.Tx) ([]models.Skill, error) {
			return s.svc.QueryAllSkills(s.ctx, tx)
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("query all includes revoked skills", func() {
		skills, err := ledger.EvaluateResult(s.ctx, s.ledger, s.admin, func(tx ledger.Tx) ([]models.Skill, error) {
			return s.svc.QueryAllSkills(s.ctx, tx)
		})
		s.Require().NoError(err)
		s.Len(skills, 4)
	})
}

func (s *SkillServiceSuite) TestGetSkillHistory() {
	s.mustAdd(skillRequest("SK1", "S1", "Go", "programming", "expert"))
	_, err := s.endorse(s.mit, "SK1", models.EndorseRequest{})
	s.Require().NoError(err)

	s.Run("issuer sees every version oldest first", func() {
		entries, err := s.history(s.acme, "SK1")
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.False(entries[0].IsDelete)
		s.Contains(string(entries[0].Value), `"endorsements":[]`)
		s.Contains(string(entries[1].Value), `"endorserName":"MIT"`)
		s.Equal("2024-06-15T09:00:00.000Z", entries[0].Timestamp)
	})

	s.Run("admin sees history", func() {
		entries, err := s.history(s.admin, "SK1")
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("other callers are forbidden", func() {
		_, err := s.history(s.mit, "SK1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing skill is NotFound for non-admins", func() {
		_, err := s.history(s.acme, "NOPE")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin gets an empty history for a missing skill", func() {
		entries, err := s.history(s.admin, "NOPE")
		s.Require().NoError(err)
		s.Empty(entries)
		s.NotNil(entries)
	})
}

func (s *SkillServiceSuite) TestInitLedger() {
	res, err := s.submit(s.admin, func(tx ledger.Tx) (*models.MutationResult, error) {
		return s.svc.InitLedger(s.ctx, tx)
	})
	s.Require().NoError(err)
	s.True(res.Success)
	s.Contains(res.Message, "initialized")
}
