// Package access decides whether a caller may perform a ledger operation.
//
// The policy is a single table keyed by Action. Role checks run before the
// record is loaded; ownership checks run after, once the manager knows who
// issued the record.
package access

import (
	"fmt"
	"slices"
	"strings"

	"credledger/internal/ledger"
	dErrors "credledger/pkg/domain-errors"
)

// Role is the caller's role attribute.
type Role string

const (
	RoleInstitution    Role = "institution"
	RoleEmployer       Role = "employer"
	RoleTrainingCenter Role = "training_center"
	RoleAdmin          Role = "admin"
	RoleUnknown        Role = "unknown"
)

// String returns the attribute value of the role.
func (r Role) String() string {
	return string(r)
}

// ValidRoles returns every assignable role.
func ValidRoles() []Role {
	return []Role{RoleInstitution, RoleEmployer, RoleTrainingCenter, RoleAdmin}
}

// ParseRole maps an attribute value to a Role. Unrecognized values yield RoleUnknown.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(ValidRoles(), r) {
		return r
	}
	return RoleUnknown
}

// RoleOf returns the role carried by caller.
func RoleOf(caller ledger.Caller) Role {
	v, _ := caller.Attribute(ledger.AttrRole)
	return ParseRole(v)
}

// OrganizationOf returns the caller's organization attribute, or "".
func OrganizationOf(caller ledger.Caller) string {
	v, _ := caller.Attribute(ledger.AttrOrganization)
	return v
}

// Action names a ledger operation subject to authorization.
type Action string

const (
	ActionAddCertificate               Action = "AddCertificate"
	ActionRevokeCertificate            Action = "RevokeCertificate"
	ActionUpdateCertificateGrade       Action = "UpdateCertificateGrade"
	ActionQueryCertificate             Action = "QueryCertificate"
	ActionVerifyCertificate            Action = "VerifyCertificate"
	ActionCertificateExists            Action = "CertificateExists"
	ActionBatchVerifyCertificates      Action = "BatchVerifyCertificates"
	ActionGetCertificateMetadata       Action = "GetCertificateMetadata"
	ActionGetStudentCertificates       Action = "GetStudentCertificates"
	ActionGetStudentCertificateSummary Action = "GetStudentCertificateSummary"
	ActionGetCertificateHistory        Action = "GetCertificateHistory"
	ActionGetInstitutionCertificates   Action = "GetInstitutionCertificates"
	ActionQueryAllCertificates         Action = "QueryAllCertificates"
	ActionSearchCertificatesByCourse   Action = "SearchCertificatesByCourse"

	ActionAddSkill               Action = "AddSkill"
	ActionEndorseSkill           Action = "EndorseSkill"
	ActionUpdateSkillProficiency Action = "UpdateSkillProficiency"
	ActionRevokeSkill            Action = "RevokeSkill"
	ActionSetSkillExpiry         Action = "SetSkillExpiry"
	ActionGetSkillHistory        Action = "GetSkillHistory"
	ActionQuerySkill             Action = "QuerySkill"
	ActionVerifySkill            Action = "VerifySkill"
	ActionGetStudentSkills       Action = "GetStudentSkills"
	ActionGetSkillsByCategory    Action = "GetSkillsByCategory"
	ActionGetStudentSkillSummary Action = "GetStudentSkillSummary"
	ActionGetTopEndorsedSkills   Action = "GetTopEndorsedSkills"
	ActionQueryAllSkills         Action = "QueryAllSkills"
)

type ownership int

const (
	ownerNone ownership = iota
	// ownerUnlessAdmin: non-admin callers must be the record's issuer.
	ownerUnlessAdmin
)

type rule struct {
	roles []Role // nil = any caller
	owner ownership
}

var (
	anyCaller      = rule{}
	skillIssuers   = []Role{RoleInstitution, RoleEmployer, RoleTrainingCenter, RoleAdmin}
	institutionish = []Role{RoleInstitution, RoleAdmin}
	adminOnly      = rule{roles: []Role{RoleAdmin}}
)

var policy = map[Action]rule{
	ActionAddCertificate:               {roles: []Role{RoleInstitution}},
	ActionRevokeCertificate:            {roles: institutionish, owner: ownerUnlessAdmin},
	ActionUpdateCertificateGrade:       {roles: []Role{RoleInstitution}, owner: ownerUnlessAdmin},
	ActionQueryCertificate:             anyCaller,
	ActionVerifyCertificate:            anyCaller,
	ActionCertificateExists:            anyCaller,
	ActionBatchVerifyCertificates:      anyCaller,
	ActionGetCertificateMetadata:       anyCaller,
	ActionGetStudentCertificates:       anyCaller,
	ActionGetStudentCertificateSummary: anyCaller,
	ActionGetCertificateHistory:        anyCaller,
	ActionGetInstitutionCertificates:   {roles: institutionish},
	ActionQueryAllCertificates:         adminOnly,
	ActionSearchCertificatesByCourse:   adminOnly,

	ActionAddSkill:               {roles: skillIssuers},
	ActionEndorseSkill:           {roles: skillIssuers},
	ActionUpdateSkillProficiency: {roles: skillIssuers},
	ActionRevokeSkill:            {roles: skillIssuers},
	ActionSetSkillExpiry:         {roles: institutionish},
	ActionGetSkillHistory:        {owner: ownerUnlessAdmin},
	ActionQuerySkill:             anyCaller,
	ActionVerifySkill:            anyCaller,
	ActionGetStudentSkills:       anyCaller,
	ActionGetSkillsByCategory:    anyCaller,
	ActionGetStudentSkillSummary: anyCaller,
	ActionGetTopEndorsedSkills:   adminOnly,
	ActionQueryAllSkills:         adminOnly,
}

// AllowedRoles returns the roles permitted to perform action, or nil when any
// caller may.
func AllowedRoles(action Action) []Role {
	return slices.Clone(policy[action].roles)
}

// Authorize returns nil when caller may perform action.
//
// A role mismatch fails with CodeUnauthorized naming the allowed roles. When
// resourceOwnerID is non-empty and the action is restricted to the record's
// issuer, a caller other than the owner fails with CodeForbidden. Pass an empty
// resourceOwnerID to check the role alone before the record is loaded.
func Authorize(caller ledger.Caller, action Action, resourceOwnerID string) error {
	r, ok := policy[action]
	if !ok {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no access policy for %s", action))
	}
	role := RoleOf(caller)
	if r.roles != nil && !slices.Contains(r.roles, role) {
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("%s requires role %s; caller has role %s", action, joinRoles(r.roles), role))
	}
	if r.owner == ownerUnlessAdmin && resourceOwnerID != "" && role != RoleAdmin && caller.ID != resourceOwnerID {
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("%s is restricted to the original issuer", action))
	}
	return nil
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, " or ")
}
