package models

// MutationResult is returned by skill mutations.
type MutationResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	SkillID           string `json:"skillId,omitempty"`
	TransactionID     string `json:"transactionId,omitempty"`
	TotalEndorsements *int   `json:"totalEndorsements,omitempty"`
}

// Lifecycle labels added to query views. They are never stored.
const (
	StatusRevoked = "REVOKED"
	StatusExpired = "EXPIRED"

	WarningRevoked = "This skill verification has been revoked"
	WarningExpired = "This skill verification has expired"
)

// View is a skill as returned by QuerySkill.
type View struct {
	Skill
	Status  string `json:"status,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Verification reasons and messages. Callers match on these strings.
const (
	ReasonNotFound  = "Skill record does not exist"
	ReasonRevoked   = "Skill verification has been revoked"
	ReasonExpired   = "Skill verification has expired"
	MessageVerified = "Skill is authentic and verified by blockchain"
)

// VerifyResult is a soft verification outcome.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Verified bool   `json:"verified,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Skill    *Skill `json:"skill,omitempty"`
	Message  string `json:"message,omitempty"`
}

// StudentSkill is a skill with view-time flags.
type StudentSkill struct {
	Skill
	IsExpired        bool `json:"isExpired"`
	EndorsementCount int  `json:"endorsementCount"`
}

// ProficiencyBreakdown counts non-revoked skills per level.
type ProficiencyBreakdown struct {
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
	Expert       int `json:"expert"`
}

// Add counts one skill at level p.
func (b *ProficiencyBreakdown) Add(p Proficiency) {
	switch p {
	case ProficiencyBeginner:
		b.Beginner++
	case ProficiencyIntermediate:
		b.Intermediate++
	case ProficiencyAdvanced:
		b.Advanced++
	case ProficiencyExpert:
		b.Expert++
	}
}

// StudentSummary aggregates a student's skills.
type StudentSummary struct {
	StudentID            string               `json:"studentId"`
	TotalSkills          int                  `json:"totalSkills"`
	ActiveSkills         int                  `json:"activeSkills"`
	ExpiredSkills        int                  `json:"expiredSkills"`
	RevokedSkills        int                  `json:"revokedSkills"`
	TotalEndorsements    int                  `json:"totalEndorsements"`
	ProficiencyBreakdown ProficiencyBreakdown `json:"proficiencyBreakdown"`
	Categories           []string             `json:"categories"`
	Skills               []StudentSkill       `json:"skills"`
}
