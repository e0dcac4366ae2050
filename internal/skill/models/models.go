package models

import (
	"fmt"
	"strings"
	"time"

	"credledger/internal/ledger/record"
	dErrors "credledger/pkg/domain-errors"
)

// DefaultCategory is used when a skill is added without a category.
const DefaultCategory = "general"

// Proficiency is a skill level. Stored values are always lowercase.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

// ValidProficiencies returns the levels in ascending order.
func ValidProficiencies() []Proficiency {
	return []Proficiency{ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert}
}

// ParseProficiency accepts a level in any case with surrounding whitespace.
func ParseProficiency(s string) (Proficiency, error) {
	p := Proficiency(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range ValidProficiencies() {
		if p == valid {
			return p, nil
		}
	}
	names := make([]string, 0, 4)
	for _, valid := range ValidProficiencies() {
		names = append(names, string(valid))
	}
	return "", dErrors.New(dErrors.CodeInvalidProficiency,
		fmt.Sprintf("Invalid proficiency level %q. Must be one of: %s", s, strings.Join(names, ", ")))
}

// Endorsement is a third-party attestation of a skill.
type Endorsement struct {
	EndorserID    string `json:"endorserId"`
	EndorserName  string `json:"endorserName"`
	EndorserOrg   string `json:"endorserOrg"`
	EndorserRole  string `json:"endorserRole"`
	Note          string `json:"note"`
	TransactionID string `json:"transactionId"`
	Timestamp     string `json:"timestamp"`
}

// Skill is a skill attestation as stored on the ledger.
type Skill struct {
	DocType          string        `json:"docType"`
	SkillID          string        `json:"skillId"`
	StudentID        string        `json:"studentId"`
	StudentName      string        `json:"studentName"`
	SkillName        string        `json:"skillName"`
	SkillCategory    string        `json:"skillCategory"`
	ProficiencyLevel Proficiency   `json:"proficiencyLevel"`
	CertifiedBy      string        `json:"certifiedBy"`
	Endorsements     []Endorsement `json:"endorsements"`
	Verified         bool          `json:"verified"`
	Revoked          bool          `json:"revoked"`
	Issuer           string        `json:"issuer"`
	IssuerRole       string        `json:"issuerRole"`
	TransactionID    string        `json:"transactionId"`
	Timestamp        string        `json:"timestamp"`
	ExpiryDate       *string       `json:"expiryDate"`

	ExpirySetBy   string `json:"expirySetBy,omitempty"`
	ExpirySetDate string `json:"expirySetDate,omitempty"`

	LastUpdated         string `json:"lastUpdated,omitempty"`
	UpdateReason        string `json:"updateReason,omitempty"`
	UpdatedBy           string `json:"updatedBy,omitempty"`
	UpdateTransactionID string `json:"updateTransactionId,omitempty"`

	RevocationReason        string `json:"revocationReason,omitempty"`
	RevokedBy               string `json:"revokedBy,omitempty"`
	RevocationDate          string `json:"revocationDate,omitempty"`
	RevocationTransactionID string `json:"revocationTransactionId,omitempty"`
}

// IsSkill reports whether the record carries the skill doc type.
func (s *Skill) IsSkill() bool {
	return s.DocType == record.DocTypeSkill
}

// HasEndorsementFrom reports whether endorserID already endorsed the skill.
func (s *Skill) HasEndorsementFrom(endorserID string) bool {
	for _, e := range s.Endorsements {
		if e.EndorserID == endorserID {
			return true
		}
	}
	return false
}

// IsExpiredAt reports whether the expiry date lies before now. A stored expiry
// that cannot be parsed fails with CodeCorruptRecord.
func (s *Skill) IsExpiredAt(now time.Time) (bool, error) {
	if s.ExpiryDate == nil || *s.ExpiryDate == "" {
		return false, nil
	}
	t, err := ParseExpiry(*s.ExpiryDate)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeCorruptRecord,
			fmt.Sprintf("skill %s holds an unreadable expiry date", s.SkillID))
	}
	return t.Before(now), nil
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExpiry parses an expiry date. Dates without a zone are UTC.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeInvalidDate,
		fmt.Sprintf("Invalid date format %q: use RFC 3339 or YYYY-MM-DD", s))
}

// Event names emitted by skill transactions.
const (
	EventSkillAdded     = "SkillAdded"
	EventSkillEndorsed  = "SkillEndorsed"
	EventSkillUpdated   = "SkillUpdated"
	EventSkillExpirySet = "SkillExpirySet"
	EventSkillRevoked   = "SkillRevoked"
)

// AddedEvent is the payload of SkillAdded.
type AddedEvent struct {
	SkillID     string `json:"skillId"`
	StudentID   string `json:"studentId"`
	SkillName   string `json:"skillName"`
	CertifiedBy string `json:"certifiedBy"`
}

// EndorsedEvent is the payload of SkillEndorsed.
type EndorsedEvent struct {
	SkillID      string `json:"skillId"`
	EndorserName string `json:"endorserName"`
}

// UpdatedEvent is the payload of SkillUpdated.
type UpdatedEvent struct {
	SkillID  string      `json:"skillId"`
	OldLevel Proficiency `json:"oldLevel"`
	NewLevel Proficiency `json:"newLevel"`
}

// ExpirySetEvent is the payload of SkillExpirySet.
type ExpirySetEvent struct {
	SkillID    string `json:"skillId"`
	ExpiryDate string `json:"expiryDate"`
}

// RevokedEvent is the payload of SkillRevoked.
type RevokedEvent struct {
	SkillID string `json:"skillId"`
	Reason  string `json:"reason"`
}
