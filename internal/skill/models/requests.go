package models

import (
	"fmt"
	"strings"

	"credledger/internal/ledger/compositekey"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/validation"
)

// Default reasons recorded when the caller gives none.
const (
	DefaultRevocationReason  = "No reason provided"
	DefaultProficiencyReason = "Proficiency level updated"
)

// AddSkillRequest carries the fields of a new skill.
type AddSkillRequest struct {
	SkillID          string `json:"skillId"`
	StudentID        string `json:"studentId"`
	StudentName      string `json:"studentName"`
	SkillName        string `json:"skillName"`
	SkillCategory    string `json:"skillCategory"`
	ProficiencyLevel string `json:"proficiencyLevel"`
	CertifiedBy      string `json:"certifiedBy"`
}

// Normalize trims identifiers and applies the default category.
func (r *AddSkillRequest) Normalize() {
	if r == nil {
		return
	}
	r.SkillID = strings.TrimSpace(r.SkillID)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.SkillCategory = strings.TrimSpace(r.SkillCategory)
	if r.SkillCategory == "" {
		r.SkillCategory = DefaultCategory
	}
}

// Validate checks required fields. The proficiency level is checked separately
// so it can fail with its own code.
func (r *AddSkillRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"skillId", r.SkillID},
		{"studentId", r.StudentID},
		{"skillName", r.SkillName},
		{"proficiencyLevel", strings.TrimSpace(r.ProficiencyLevel)},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if err := validation.CheckLengths(validation.MaxIDLength,
		validation.Field{Name: "skillId", Value: r.SkillID},
		validation.Field{Name: "studentId", Value: r.StudentID},
	); err != nil {
		return err
	}
	if err := validation.CheckLengths(validation.MaxTextLength,
		validation.Field{Name: "studentName", Value: r.StudentName},
		validation.Field{Name: "skillName", Value: r.SkillName},
		validation.Field{Name: "skillCategory", Value: r.SkillCategory},
		validation.Field{Name: "certifiedBy", Value: r.CertifiedBy},
	); err != nil {
		return err
	}
	return compositekey.ValidatePrimaryKey(r.SkillID)
}

// EndorseRequest is the body of an endorsement. Empty name and organization
// default to the caller's organization.
type EndorseRequest struct {
	EndorserName string `json:"endorserName"`
	EndorserOrg  string `json:"endorserOrg"`
	Note         string `json:"note"`
}

// Validate bounds the free-text fields.
func (r *EndorseRequest) Validate() error {
	if err := validation.CheckLengths(validation.MaxTextLength,
		validation.Field{Name: "endorserName", Value: r.EndorserName},
		validation.Field{Name: "endorserOrg", Value: r.EndorserOrg},
	); err != nil {
		return err
	}
	return validation.CheckStringLength("note", r.Note, validation.MaxReasonLength)
}

// UpdateProficiencyRequest is the body of a proficiency change.
type UpdateProficiencyRequest struct {
	ProficiencyLevel string `json:"proficiencyLevel"`
	Reason           string `json:"reason"`
}

// Validate bounds the reason. The level itself is checked by ParseProficiency.
func (r UpdateProficiencyRequest) Validate() error {
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}

// SetExpiryRequest is the body of an expiry change.
type SetExpiryRequest struct {
	ExpiryDate string `json:"expiryDate"`
}

// Validate bounds the raw date before it is parsed.
func (r SetExpiryRequest) Validate() error {
	return validation.CheckStringLength("expiryDate", r.ExpiryDate, validation.MaxIDLength)
}

// RevokeRequest is the body of a revocation.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate bounds the reason.
func (r RevokeRequest) Validate() error {
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}
