// Package service implements the skill ledger manager.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"credledger/internal/access"
	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/ledger/record"
	"credledger/internal/platform/metrics"
	"credledger/internal/skill/models"
	dErrors "credledger/pkg/domain-errors"
)

// Option configures the skill service.
type Option func(*Service)

// Service manages skill records and their student and category indexes.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a skill service.
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

// AddSkill records a new skill and indexes it by student and category.
func (s *Service) AddSkill(ctx context.Context, tx ledger.Tx, req models.AddSkillRequest) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionAddSkill, ""); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	level, err := models.ParseProficiency(req.ProficiencyLevel)
	if err != nil {
		return nil, err
	}

	existing, err := tx.Get(req.SkillID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, dErrors.New(dErrors.CodeAlreadyExists, fmt.Sprintf("Skill record %s already exists", req.SkillID))
	}

	certifiedBy := req.CertifiedBy
	if certifiedBy == "" {
		certifiedBy = access.OrganizationOf(caller)
	}
	skill := &models.Skill{
		DocType:          record.DocTypeSkill,
		SkillID:          req.SkillID,
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		SkillName:        req.SkillName,
		SkillCategory:    req.SkillCategory,
		ProficiencyLevel: level,
		CertifiedBy:      certifiedBy,
		Endorsements:     []models.Endorsement{},
		Verified:         true,
		Revoked:          false,
		Issuer:           caller.ID,
		IssuerRole:       access.RoleOf(caller).String(),
		TransactionID:    tx.TxID(),
		Timestamp:        ledger.FormatTimestamp(tx.Timestamp()),
	}

	studentKey, err := compositekey.StudentSkill.Key(skill.StudentID, skill.SkillID)
	if err != nil {
		return nil, err
	}
	categoryKey, err := compositekey.CategorySkill.Key(skill.SkillCategory, skill.SkillID)
	if err != nil {
		return nil, err
	}
	if err := s.persist(tx, skill); err != nil {
		return nil, err
	}
	for _, key := range []string{studentKey, categoryKey} {
		if err := tx.Put(key, compositekey.Marker); err != nil {
			return nil, err
		}
	}
	if err := emit(tx, models.EventSkillAdded, models.AddedEvent{
		SkillID:     skill.SkillID,
		StudentID:   skill.StudentID,
		SkillName:   skill.SkillName,
		CertifiedBy: skill.CertifiedBy,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncIssued(metrics.KindSkill)
	s.logInfo(ctx, "skill added", "skill_id", skill.SkillID, "tx_id", skill.TransactionID)
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Skill %s added for student %s", skill.SkillName, skill.StudentID),
		SkillID:       skill.SkillID,
		TransactionID: skill.TransactionID,
	}, nil
}

// EndorseSkill appends the caller's endorsement. A caller endorses a skill at
// most once.
func (s *Service) EndorseSkill(ctx context.Context, tx ledger.Tx, skillID string, req models.EndorseRequest) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionEndorseSkill, ""); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	skill, err := s.mustLoad(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.Revoked {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Cannot endorse a revoked skill")
	}
	if skill.HasEndorsementFrom(caller.ID) {
		return nil, dErrors.New(dErrors.CodeDuplicateEndorsement, "You have already endorsed this skill")
	}

	org := access.OrganizationOf(caller)
	name := strings.TrimSpace(req.EndorserName)
	if name == "" {
		name = org
	}
	endorserOrg := strings.TrimSpace(req.EndorserOrg)
	if endorserOrg == "" {
		endorserOrg = org
	}
	skill.Endorsements = append(skill.Endorsements, models.Endorsement{
		EndorserID:    caller.ID,
		EndorserName:  name,
		EndorserOrg:   endorserOrg,
		EndorserRole:  access.RoleOf(caller).String(),
		Note:          req.Note,
		TransactionID: tx.TxID(),
		Timestamp:     ledger.FormatTimestamp(tx.Timestamp()),
	})

	if err := s.persist(tx, skill); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventSkillEndorsed, models.EndorsedEvent{SkillID: skillID, EndorserName: name}); err != nil {
		return nil, err
	}

	total := len(skill.Endorsements)
	s.metrics.IncEndorsement()
	s.logInfo(ctx, "skill endorsed", "skill_id", skillID, "endorsements", total, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:           true,
		Message:           fmt.Sprintf("Skill %s endorsed by %s", skill.SkillName, name),
		TransactionID:     tx.TxID(),
		TotalEndorsements: &total,
	}, nil
}

// UpdateSkillProficiency changes the level of an active skill.
func (s *Service) UpdateSkillProficiency(ctx context.Context, tx ledger.Tx, skillID string, req models.UpdateProficiencyRequest) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionUpdateSkillProficiency, ""); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	level, err := models.ParseProficiency(req.ProficiencyLevel)
	if err != nil {
		return nil, err
	}
	skill, err := s.mustLoad(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.Revoked {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Cannot update a revoked skill")
	}

	reason := req.Reason
	if reason == "" {
		reason = models.DefaultProficiencyReason
	}
	oldLevel := skill.ProficiencyLevel
	skill.ProficiencyLevel = level
	skill.LastUpdated = ledger.FormatTimestamp(tx.Timestamp())
	skill.UpdateReason = reason
	skill.UpdatedBy = caller.ID
	skill.UpdateTransactionID = tx.TxID()

	if err := s.persist(tx, skill); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventSkillUpdated, models.UpdatedEvent{
		SkillID:  skillID,
		OldLevel: oldLevel,
		NewLevel: level,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncSkillUpdate("proficiency")
	s.logInfo(ctx, "skill proficiency updated", "skill_id", skillID, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Skill proficiency updated from %s to %s", oldLevel, level),
		TransactionID: tx.TxID(),
	}, nil
}

// SetSkillExpiry sets or replaces the expiry date of an active skill.
func (s *Service) SetSkillExpiry(ctx context.Context, tx ledger.Tx, skillID, expiryDate string) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionSetSkillExpiry, ""); err != nil {
		return nil, err
	}
	if err := (models.SetExpiryRequest{ExpiryDate: expiryDate}).Validate(); err != nil {
		return nil, err
	}
	skill, err := s.mustLoad(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.Revoked {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Cannot set expiry on a revoked skill")
	}
	expiryDate = strings.TrimSpace(expiryDate)
	if _, err := models.ParseExpiry(expiryDate); err != nil {
		return nil, err
	}

	skill.ExpiryDate = &expiryDate
	skill.ExpirySetBy = caller.ID
	skill.ExpirySetDate = ledger.FormatTimestamp(tx.Timestamp())

	if err := s.persist(tx, skill); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventSkillExpirySet, models.ExpirySetEvent{SkillID: skillID, ExpiryDate: expiryDate}); err != nil {
		return nil, err
	}

	s.metrics.IncSkillUpdate("expiry")
	s.logInfo(ctx, "skill expiry set", "skill_id", skillID, "expiry_date", expiryDate, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Expiry date set to %s for skill %s", expiryDate, skillID),
		TransactionID: tx.TxID(),
	}, nil
}

// RevokeSkill marks a skill revoked. Revocation is permanent.
func (s *Service) RevokeSkill(ctx context.Context, tx ledger.Tx, skillID, reason string) (*models.MutationResult, error) {
	caller := tx.Caller()
	if err := access.Authorize(caller, access.ActionRevokeSkill, ""); err != nil {
		return nil, err
	}
	if err := (models.RevokeRequest{Reason: reason}).Validate(); err != nil {
		return nil, err
	}
	skill, err := s.mustLoad(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.Revoked {
		return nil, dErrors.New(dErrors.CodeAlreadyRevoked, fmt.Sprintf("Skill %s is already revoked", skillID))
	}

	if reason == "" {
		reason = models.DefaultRevocationReason
	}
	skill.Revoked = true
	skill.RevocationReason = reason
	skill.RevokedBy = caller.ID
	skill.RevocationDate = ledger.FormatTimestamp(tx.Timestamp())
	skill.RevocationTransactionID = tx.TxID()

	if err := s.persist(tx, skill); err != nil {
		return nil, err
	}
	if err := emit(tx, models.EventSkillRevoked, models.RevokedEvent{SkillID: skillID, Reason: reason}); err != nil {
		return nil, err
	}

	s.metrics.IncRevoked(metrics.KindSkill)
	s.logInfo(ctx, "skill revoked", "skill_id", skillID, "tx_id", tx.TxID())
	return &models.MutationResult{
		Success:       true,
		Message:       fmt.Sprintf("Skill %s has been revoked", skillID),
		TransactionID: tx.TxID(),
	}, nil
}

// load reads the skill stored under key. It returns nil when the key is
// absent or holds another kind of record.
func (s *Service) load(tx ledger.Tx, key string) (*models.Skill, error) {
	if err := compositekey.ValidatePrimaryKey(key); err != nil {
		return nil, err
	}
	raw, err := tx.Get(key)
	if err != nil || raw == nil {
		return nil, err
	}
	var skill models.Skill
	if err := record.Unmarshal(key, raw, &skill); err != nil {
		return nil, err
	}
	if !skill.IsSkill() {
		return nil, nil
	}
	return &skill, nil
}

func (s *Service) mustLoad(tx ledger.Tx, skillID string) (*models.Skill, error) {
	skill, err := s.load(tx, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Skill record %s does not exist", skillID))
	}
	return skill, nil
}

func (s *Service) persist(tx ledger.Tx, skill *models.Skill) error {
	if skill.Endorsements == nil {
		skill.Endorsements = []models.Endorsement{}
	}
	b, err := record.Marshal(skill)
	if err != nil {
		return err
	}
	return tx.Put(skill.SkillID, b)
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
