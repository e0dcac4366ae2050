package models

// MutationResult is returned by every certificate mutation.
type MutationResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Verification reasons and messages. Callers match on these strings.
const (
	ReasonNotFound  = "Certificate not found"
	ReasonRevoked   = "Certificate revoked"
	MessageVerified = "Certificate is authentic and verified by blockchain"
)

// VerifyResult is a soft verification outcome. A missing or revoked
// certificate is reported here, never as an error.
type VerifyResult struct {
	CertID           string       `json:"certId,omitempty"`
	Valid            bool         `json:"valid"`
	Verified         bool         `json:"verified,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	RevocationDate   string       `json:"revocationDate,omitempty"`
	RevocationReason string       `json:"revocationReason,omitempty"`
	Certificate      *Certificate `json:"certificate,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// ExistsResult reports whether a certificate ID is taken.
type ExistsResult struct {
	Exists bool `json:"exists"`
}

// Metadata is a certificate without its file hash and issuer identity.
type Metadata struct {
	CertID        string `json:"certId"`
	StudentID     string `json:"studentId"`
	StudentName   string `json:"studentName"`
	Institution   string `json:"institution"`
	Course        string `json:"course"`
	Grade         string `json:"grade"`
	IssueDate     string `json:"issueDate"`
	Verified      bool   `json:"verified"`
	Revoked       bool   `json:"revoked"`
	TransactionID string `json:"transactionId"`
	Timestamp     string `json:"timestamp"`
}

// MetadataOf projects c.
func MetadataOf(c *Certificate) Metadata {
	return Metadata{
		CertID:        c.CertID,
		StudentID:     c.StudentID,
		StudentName:   c.StudentName,
		Institution:   c.Institution,
		Course:        c.Course,
		Grade:         c.Grade,
		IssueDate:     c.IssueDate,
		Verified:      c.Verified,
		Revoked:       c.Revoked,
		TransactionID: c.TransactionID,
		Timestamp:     c.Timestamp,
	}
}

// CourseEntry is one line of a student summary.
type CourseEntry struct {
	Course      string `json:"course"`
	Institution string `json:"institution"`
	Grade       string `json:"grade"`
	IssueDate   string `json:"issueDate"`
	Status      Status `json:"status"`
}

// StudentSummary aggregates a student's certificates.
type StudentSummary struct {
	StudentID           string        `json:"studentId"`
	TotalCertificates   int           `json:"totalCertificates"`
	ActiveCertificates  int           `json:"activeCertificates"`
	RevokedCertificates int           `json:"revokedCertificates"`
	Institutions        []string      `json:"institutions"`
	Courses             []CourseEntry `json:"courses"`
}
