package models

import (
	"credledger/internal/ledger/record"
)

// Certificate is an academic certificate as stored on the ledger. The same
// bytes are stored under CertID and under FileHash.
type Certificate struct {
	DocType            string `json:"docType"`
	CertID             string `json:"certId"`
	StudentID          string `json:"studentId"`
	StudentName        string `json:"studentName"`
	Course             string `json:"course"`
	Institution        string `json:"institution"`
	Grade              string `json:"grade"`
	IssueDate          string `json:"issueDate"`
	FileHash           string `json:"fileHash"`
	Verified           bool   `json:"verified"`
	Revoked            bool   `json:"revoked"`
	Issuer             string `json:"issuer"`
	IssuerOrganization string `json:"issuerOrganization"`
	TransactionID      string `json:"transactionId"`
	Timestamp          string `json:"timestamp"`

	RevocationReason        string `json:"revocationReason,omitempty"`
	RevokedBy               string `json:"revokedBy,omitempty"`
	RevocationDate          string `json:"revocationDate,omitempty"`
	RevocationTransactionID string `json:"revocationTransactionId,omitempty"`

	GradeUpdated             bool   `json:"gradeUpdated,omitempty"`
	GradeUpdateReason        string `json:"gradeUpdateReason,omitempty"`
	GradeUpdatedBy           string `json:"gradeUpdatedBy,omitempty"`
	GradeUpdateDate          string `json:"gradeUpdateDate,omitempty"`
	GradeUpdateTransactionID string `json:"gradeUpdateTransactionId,omitempty"`
}

// IsCertificate reports whether the record carries the certificate doc type.
func (c *Certificate) IsCertificate() bool {
	return c.DocType == record.DocTypeCertificate
}

// Status returns the display status used in summaries.
func (c *Certificate) Status() Status {
	if c.Revoked {
		return StatusRevoked
	}
	return StatusActive
}

// Status is the lifecycle label shown in summaries.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRevoked Status = "REVOKED"
)

// StagingStatus is the verification state of an upload in the off-ledger
// staging layer. It is exported so callers share one spelling.
type StagingStatus string

const (
	StagingPending  StagingStatus = "PENDING"
	StagingVerified StagingStatus = "VERIFIED"
	StagingFailed   StagingStatus = "FAILED"
)

// IsValid reports whether s is a known staging status.
func (s StagingStatus) IsValid() bool {
	switch s {
	case StagingPending, StagingVerified, StagingFailed:
		return true
	}
	return false
}

// Event names emitted by certificate transactions.
const (
	EventCertificateAdded   = "CertificateAdded"
	EventCertificateRevoked = "CertificateRevoked"
	EventCertificateUpdated = "CertificateUpdated"
)

// AddedEvent is the payload of CertificateAdded.
type AddedEvent struct {
	CertID      string `json:"certId"`
	StudentID   string `json:"studentId"`
	Institution string `json:"institution"`
}

// RevokedEvent is the payload of CertificateRevoked.
type RevokedEvent struct {
	CertID string `json:"certId"`
	Reason string `json:"reason"`
}

// UpdatedEvent is the payload of CertificateUpdated.
type UpdatedEvent struct {
	CertID   string `json:"certId"`
	OldGrade string `json:"oldGrade"`
	NewGrade string `json:"newGrade"`
}
