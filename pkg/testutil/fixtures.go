package testutil

import (
	certmodels "credledger/internal/certificate/models"
	skillmodels "credledger/internal/skill/models"
)

// CertificateBuilder provides a fluent interface for building add-certificate
// requests that pass validation.
type CertificateBuilder struct {
	req certmodels.AddCertificateRequest
}

// NewCertificate creates a CertificateBuilder with sensible defaults. The file
// hash is derived from certID so distinct IDs never collide on the hash key.
func NewCertificate(certID string) *CertificateBuilder {
	return &CertificateBuilder{
		req: certmodels.AddCertificateRequest{
			CertID:      certID,
			StudentID:   "STU001",
			StudentName: "Ada Lovelace",
			Course:      "Computer Science",
			Institution: "MIT",
			Grade:       "A",
			IssueDate:   "2024-05-30",
			FileHash:    "sha256-" + certID,
		},
	}
}

func (b *CertificateBuilder) ForStudent(studentID string) *CertificateBuilder {
	b.req.StudentID = studentID
	return b
}

func (b *CertificateBuilder) WithStudentName(name string) *CertificateBuilder {
	b.req.StudentName = name
	return b
}

func (b *CertificateBuilder) WithCourse(course string) *CertificateBuilder {
	b.req.Course = course
	return b
}

func (b *CertificateBuilder) WithInstitution(institution string) *CertificateBuilder {
	b.req.Institution = institution
	return b
}

func (b *CertificateBuilder) WithGrade(grade string) *CertificateBuilder {
	b.req.Grade = grade
	return b
}

func (b *CertificateBuilder) WithFileHash(hash string) *CertificateBuilder {
	b.req.FileHash = hash
	return b
}

func (b *CertificateBuilder) Build() certmodels.AddCertificateRequest {
	return b.req
}

// SkillBuilder provides a fluent interface for building add-skill requests.
type SkillBuilder struct {
	req skillmodels.AddSkillRequest
}

// NewSkill creates a SkillBuilder with sensible defaults.
func NewSkill(skillID string) *SkillBuilder {
	return &SkillBuilder{
		req: skillmodels.AddSkillRequest{
			SkillID:          skillID,
			StudentID:        "STU001",
			StudentName:      "Grace Hopper",
			SkillName:        "Go",
			SkillCategory:    "Programming",
			ProficiencyLevel: string(skillmodels.ProficiencyIntermediate),
		},
	}
}

func (b *SkillBuilder) ForStudent(studentID string) *SkillBuilder {
	b.req.StudentID = studentID
	return b
}

func (b *SkillBuilder) WithStudentName(name string) *SkillBuilder {
	b.req.StudentName = name
	return b
}

// Named sets the skill name and category.
func (b *SkillBuilder) Named(name, category string) *SkillBuilder {
	b.req.SkillName = name
	b.req.SkillCategory = category
	return b
}

func (b *SkillBuilder) AtLevel(level string) *SkillBuilder {
	b.req.ProficiencyLevel = level
	return b
}

func (b *SkillBuilder) CertifiedBy(body string) *SkillBuilder {
	b.req.CertifiedBy = body
	return b
}

func (b *SkillBuilder) Build() skillmodels.AddSkillRequest {
	return b.req
}
