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
	DefaultGradeUpdateReason = "Grade correction"
)

// AddCertificateRequest carries the fields of a new certificate. Grade may be empty.
type AddCertificateRequest struct {
	CertID      string `json:"certId"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Course      string `json:"course"`
	Institution string `json:"institution"`
	Grade       string `json:"grade"`
	IssueDate   string `json:"issueDate"`
	FileHash    string `json:"fileHash"`
}

// Normalize trims surrounding whitespace from identifiers.
func (r *AddCertificateRequest) Normalize() {
	if r == nil {
		return
	}
	r.CertID = strings.TrimSpace(r.CertID)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.FileHash = strings.TrimSpace(r.FileHash)
}

// Validate checks required fields and key safety.
func (r *AddCertificateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"certId", r.CertID},
		{"studentId", r.StudentID},
		{"studentName", r.StudentName},
		{"course", r.Course},
		{"institution", r.Institution},
		{"issueDate", r.IssueDate},
		{"fileHash", r.FileHash},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if err := validation.CheckLengths(validation.MaxIDLength,
		validation.Field{Name: "certId", Value: r.CertID},
		validation.Field{Name: "studentId", Value: r.StudentID},
		validation.Field{Name: "fileHash", Value: r.FileHash},
	); err != nil {
		return err
	}
	if err := validation.CheckLengths(validation.MaxTextLength,
		validation.Field{Name: "studentName", Value: r.StudentName},
		validation.Field{Name: "course", Value: r.Course},
		validation.Field{Name: "institution", Value: r.Institution},
		validation.Field{Name: "grade", Value: r.Grade},
		validation.Field{Name: "issueDate", Value: r.IssueDate},
	); err != nil {
		return err
	}
	if err := compositekey.ValidatePrimaryKey(r.CertID); err != nil {
		return err
	}
	if err := compositekey.ValidatePrimaryKey(r.FileHash); err != nil {
		return err
	}
	if r.CertID == r.FileHash {
		return dErrors.New(dErrors.CodeInvalidInput, "fileHash must differ from certId")
	}
	return nil
}

// RevokeRequest is the body of a revocation.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate bounds the reason.
func (r RevokeRequest) Validate() error {
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}

// UpdateGradeRequest is the body of a grade correction.
type UpdateGradeRequest struct {
	NewGrade string `json:"newGrade"`
	Reason   string `json:"reason"`
}

// Validate requires a grade and bounds both fields.
func (r UpdateGradeRequest) Validate() error {
	if r.NewGrade == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "newGrade is required")
	}
	if err := validation.CheckStringLength("newGrade", r.NewGrade, validation.MaxTextLength); err != nil {
		return err
	}
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}

// BatchVerifyRequest lists certificate IDs or file hashes to verify.
type BatchVerifyRequest struct {
	CertIDs []string `json:"certIds"`
}

// Validate rejects an empty or oversized batch.
func (r *BatchVerifyRequest) Validate() error {
	if r == nil || len(r.CertIDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "certIds must not be empty")
	}
	if err := validation.CheckSliceCount("certIds", len(r.CertIDs), validation.MaxBatchVerify); err != nil {
		return err
	}
	return validation.CheckEachStringLength("certIds", r.CertIDs, validation.MaxIDLength)
}
