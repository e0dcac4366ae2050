package main

import (
	"github.com/spf13/cobra"

	"credledger/internal/audittrail"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
)

func newCertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cert",
		Aliases: []string{"certificate"},
		Short:   "Issue, inspect and revoke certificates",
	}
	cmd.AddCommand(
		newCertAddCmd(a),
		newCertGetCmd(a),
		newCertVerifyCmd(a),
		newCertRevokeCmd(a),
		newCertGradeCmd(a),
		newCertHistoryCmd(a),
		newCertStudentCmd(a),
	)
	return cmd
}

func newCertAddCmd(a *app) *cobra.Command {
	var req models.AddCertificateRequest
	cmd := &cobra.Command{
		Use:   "add CERT_ID",
		Short: "Issue a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.CertID = args[0]
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.certs.AddCertificate(ctx, tx, req)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.StudentID, "student-id", "", "Student ID")
	f.StringVar(&req.StudentName, "student-name", "", "Student name")
	f.StringVar(&req.Course, "course", "", "Course name")
	f.StringVar(&req.Institution, "institution", "", "Issuing institution")
	f.StringVar(&req.Grade, "grade", "", "Grade")
	f.StringVar(&req.IssueDate, "issue-date", "", "Issue date (YYYY-MM-DD)")
	f.StringVar(&req.FileHash, "file-hash", "", "Hash of the certificate document")
	return cmd
}

func newCertGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get CERT_ID",
		Short: "Show a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) (*models.Certificate, error) {
				return a.certs.QueryCertificate(ctx, tx, args[0])
			})
		},
	}
}

func newCertVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify CERT_ID_OR_HASH",
		Short: "Verify a certificate by ID or file hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) (*models.VerifyResult, error) {
				return a.certs.VerifyCertificate(ctx, tx, args[0])
			})
		},
	}
}

func newCertRevokeCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke CERT_ID",
		Short: "Revoke a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.certs.RevokeCertificate(ctx, tx, args[0], reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Revocation reason")
	return cmd
}

func newCertGradeCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "grade CERT_ID NEW_GRADE",
		Short: "Correct a certificate grade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.certs.UpdateCertificateGrade(ctx, tx, args[0], args[1], reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Correction reason")
	return cmd
}

func newCertHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history CERT_ID",
		Short: "Show every committed version of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) ([]audittrail.Entry, error) {
				return a.certs.GetCertificateHistory(ctx, tx, args[0])
			})
		},
	}
}

func newCertStudentCmd(a *app) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "student STUDENT_ID",
		Short: "List a student's certificates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if summary {
				return evaluate(ctx, a, func(tx ledger.Tx) (*models.StudentSummary, error) {
					return a.certs.GetStudentCertificateSummary(ctx, tx, args[0])
				})
			}
			return evaluate(ctx, a, func(tx ledger.Tx) ([]models.Certificate, error) {
				return a.certs.GetStudentCertificates(ctx, tx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Show aggregate counts instead of the list")
	return cmd
}
