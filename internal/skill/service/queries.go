package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"credledger/internal/access"
	"credledger/internal/audittrail"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/ledger/record"
	"credledger/internal/platform/metrics"
	"credledger/internal/skill/models"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

// DefaultTopLimit is used by GetTopEndorsedSkills for non-positive limits.
const DefaultTopLimit = 10

// QuerySkill returns a skill with its lifecycle status. The status and warning
// describe the skill at request time and are never stored.
func (s *Service) QuerySkill(ctx context.Context, tx ledger.Tx, skillID string) (*models.View, error) {
	if err := access.Authorize(tx.Caller(), access.ActionQuerySkill, ""); err != nil {
		return nil, err
	}
	skill, err := s.mustLoad(tx, skillID)
	if err != nil {
		return nil, err
	}
	view := &models.View{Skill: *skill}
	if skill.Revoked {
		view.Status = models.StatusRevoked
		view.Warning = models.WarningRevoked
		return view, nil
	}
	expired, err := skill.IsExpiredAt(requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if expired {
		view.Status = models.StatusExpired
		view.Warning = models.WarningExpired
	}
	return view, nil
}

// VerifySkill checks a skill at request time. Not found, revoked and expired
// are soft results.
func (s *Service) VerifySkill(ctx context.Context, tx ledger.Tx, skillID string) (*models.VerifyResult, error) {
	if err := access.Authorize(tx.Caller(), access.ActionVerifySkill, ""); err != nil {
		return nil, err
	}
	skill, err := s.load(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		s.metrics.IncVerify(metrics.KindSkill, "not_found")
		return &models.VerifyResult{Valid: false, Reason: models.ReasonNotFound}, nil
	}
	if skill.Revoked {
		s.metrics.IncVerify(metrics.KindSkill, "revoked")
		return &models.VerifyResult{Valid: false, Reason: models.ReasonRevoked, Skill: skill}, nil
	}
	expired, err := skill.IsExpiredAt(requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if expired {
		s.metrics.IncVerify(metrics.KindSkill, "expired")
		return &models.VerifyResult{Valid: false, Reason: models.ReasonExpired, Skill: skill}, nil
	}
	s.metrics.IncVerify(metrics.KindSkill, "valid")
	return &models.VerifyResult{
		Valid:    true,
		Verified: true,
		Skill:    skill,
		Message:  models.MessageVerified,
	}, nil
}

// GetStudentSkills returns a student's skills in index order with their
// expiry flag and endorsement count.
func (s *Service) GetStudentSkills(ctx context.Context, tx ledger.Tx, studentID string) ([]models.StudentSkill, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetStudentSkills, ""); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "studentId is required")
	}
	skills, err := s.fromIndex(tx, compositekey.StudentSkill, studentID)
	if err != nil {
		return nil, err
	}
	return decorate(skills, requestcontext.Now(ctx))
}

// GetSkillsByCategory returns the non-revoked skills of a category.
func (s *Service) GetSkillsByCategory(_ context.Context, tx ledger.Tx, category string) ([]models.Skill, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetSkillsByCategory, ""); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category is required")
	}
	skills, err := s.fromIndex(tx, compositekey.CategorySkill, category)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(skills, func(sk models.Skill) bool { return sk.Revoked }), nil
}

// GetStudentSkillSummary aggregates a student's skills at request time.
func (s *Service) GetStudentSkillSummary(ctx context.Context, tx ledger.Tx, studentID string) (*models.StudentSummary, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetStudentSkillSummary, ""); err != nil {
		return nil, err
	}
	skills, err := s.GetStudentSkills(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	summary := &models.StudentSummary{
		StudentID:   studentID,
		TotalSkills: len(skills),
		Categories:  []string{},
		Skills:      skills,
	}
	seen := make(map[string]struct{})
	for i := range skills {
		sk := &skills[i]
		switch {
		case sk.Revoked:
			summary.RevokedSkills++
		case !sk.IsExpired:
			summary.ActiveSkills++
		}
		if sk.IsExpired {
			summary.ExpiredSkills++
		}
		if !sk.Revoked {
			summary.ProficiencyBreakdown.Add(sk.ProficiencyLevel)
		}
		summary.TotalEndorsements += sk.EndorsementCount
		if _, ok := seen[sk.SkillCategory]; !ok {
			seen[sk.SkillCategory] = struct{}{}
			summary.Categories = append(summary.Categories, sk.SkillCategory)
		}
	}
	return summary, nil
}

// GetTopEndorsedSkills returns up to limit non-revoked skills ordered by
// endorsement count. Ties keep key order.
func (s *Service) GetTopEndorsedSkills(_ context.Context, tx ledger.Tx, limit int) ([]models.Skill, error) {
	if err := access.Authorize(tx.Caller(), access.ActionGetTopEndorsedSkills, ""); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	skills, err := s.scanAll(tx, func(sk *models.Skill) bool { return !sk.Revoked })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(skills, func(a, b models.Skill) int {
		return len(b.Endorsements) - len(a.Endorsements)
	})
	if len(skills) > limit {
		skills = skills[:limit]
	}
	return skills, nil
}

// QueryAllSkills returns every skill on the ledger.
func (s *Service) QueryAllSkills(_ context.Context, tx ledger.Tx) ([]models.Skill, error) {
	if err := access.Authorize(tx.Caller(), access.ActionQueryAllSkills, ""); err != nil {
		return nil, err
	}
	return s.scanAll(tx, func(*models.Skill) bool { return true })
}

// GetSkillHistory returns every committed version of a skill. Callers other
// than an admin must have issued the skill.
func (s *Service) GetSkillHistory(_ context.Context, tx ledger.Tx, skillID string) ([]audittrail.Entry, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionGetSkillHistory, ""); err != nil {
		return nil, err
	}
	if err := compositekey.ValidatePrimaryKey(skillID); err != nil {
		return nil, err
	}
	if access.RoleOf(caller) != access.RoleAdmin {
		skill, err := s.mustLoad(tx, skillID)
		if err != nil {
			return nil, err
		}
		if err := access.Authorize(caller, access.ActionGetSkillHistory, skill.Issuer); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "Only admins or issuers can view skill history")
		}
	}
	return audittrail.Read(tx, skillID)
}

// InitLedger records that the ledger was initialized. It writes no seed data.
func (s *Service) InitLedger(ctx context.Context, tx ledger.Tx) (*models.MutationResult, error) {
	s.logInfo(ctx, "skill ledger initialized", "tx_id", tx.TxID())
	return &models.MutationResult{
		Success: true,
		Message: fmt.Sprintf("Skill ledger initialized in transaction %s", tx.TxID()),
	}, nil
}

func decorate(skills []models.Skill, now time.Time) ([]models.StudentSkill, error) {
	out := make([]models.StudentSkill, 0, len(skills))
	for _, sk := range skills {
		expired, err := sk.IsExpiredAt(now)
		if err != nil {
			return nil, err
		}
		out = append(out, models.StudentSkill{
			Skill:            sk,
			IsExpired:        expired,
			EndorsementCount: len(sk.Endorsements),
		})
	}
	return out, nil
}

// fromIndex walks ns under leading and dereferences each skill ID. Entries
// whose record has disappeared are skipped.
func (s *Service) fromIndex(tx ledger.Tx, ns compositekey.Namespace, leading string) ([]models.Skill, error) {
	it, err := tx.IteratePrefix(ns.Name, leading)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Collect(it)
	if err != nil {
		return nil, err
	}

	out := make([]models.Skill, 0, len(entries))
	for _, kv := range entries {
		parts, err := ns.Decode(kv.Key)
		if err != nil {
			return nil, err
		}
		skill, err := s.load(tx, parts[1])
		if err != nil {
			return nil, err
		}
		if skill != nil {
			out = append(out, *skill)
		}
	}
	return out, nil
}

func (s *Service) scanAll(tx ledger.Tx, keep func(*models.Skill) bool) ([]models.Skill, error) {
	it, err := tx.IterateRange("", "")
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Collect(it)
	if err != nil {
		return nil, err
	}

	out := []models.Skill{}
	for _, kv := range entries {
		if record.Peek(kv.Value) != record.DocTypeSkill {
			continue
		}
		var skill models.Skill
		if err := record.Unmarshal(kv.Key, kv.Value, &skill); err != nil {
			return nil, err
		}
		if keep(&skill) {
			out = append(out, skill)
		}
	}
	return out, nil
}
