package main

import (
	"github.com/spf13/cobra"

	"credledger/internal/audittrail"
	"credledger/internal/ledger"
	"credledger/internal/skill/models"
)

func newSkillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Certify, endorse and revoke skills",
	}
	cmd.AddCommand(
		newSkillAddCmd(a),
		newSkillGetCmd(a),
		newSkillVerifyCmd(a),
		newSkillEndorseCmd(a),
		newSkillProficiencyCmd(a),
		newSkillExpiryCmd(a),
		newSkillRevokeCmd(a),
		newSkillHistoryCmd(a),
		newSkillStudentCmd(a),
		newSkillTopCmd(a),
	)
	return cmd
}

func newSkillAddCmd(a *app) *cobra.Command {
	var req models.AddSkillRequest
	cmd := &cobra.Command{
		Use:   "add SKILL_ID",
		Short: "Certify a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SkillID = args[0]
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.skills.AddSkill(ctx, tx, req)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.StudentID, "student-id", "", "Student ID")
	f.StringVar(&req.StudentName, "student-name", "", "Student name")
	f.StringVar(&req.SkillName, "name", "", "Skill name")
	f.StringVar(&req.SkillCategory, "category", "", "Skill category")
	f.StringVar(&req.ProficiencyLevel, "proficiency", "", "Beginner, Intermediate, Advanced or Expert")
	f.StringVar(&req.CertifiedBy, "certified-by", "", "Certifying body")
	return cmd
}

func newSkillGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get SKILL_ID",
		Short: "Show a skill with its lifecycle status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) (*models.View, error) {
				return a.skills.QuerySkill(ctx, tx, args[0])
			})
		},
	}
}

func newSkillVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify SKILL_ID",
		Short: "Verify a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) (*models.VerifyResult, error) {
				return a.skills.VerifySkill(ctx, tx, args[0])
			})
		},
	}
}

func newSkillEndorseCmd(a *app) *cobra.Command {
	var req models.EndorseRequest
	cmd := &cobra.Command{
		Use:   "endorse SKILL_ID",
		Short: "Endorse a skill as the calling employer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.skills.EndorseSkill(ctx, tx, args[0], req)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.EndorserName, "endorser-name", "", "Endorser display name")
	f.StringVar(&req.EndorserOrg, "endorser-org", "", "Endorser organization")
	f.StringVar(&req.Note, "note", "", "Endorsement note")
	return cmd
}

func newSkillProficiencyCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "proficiency SKILL_ID LEVEL",
		Short: "Change a skill's proficiency level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := models.UpdateProficiencyRequest{ProficiencyLevel: args[1], Reason: reason}
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.skills.UpdateSkillProficiency(ctx, tx, args[0], req)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason for the change")
	return cmd
}

func newSkillExpiryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expiry SKILL_ID DATE",
		Short: "Set a skill's expiry date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.skills.SetSkillExpiry(ctx, tx, args[0], args[1])
			})
		},
	}
}

func newSkillRevokeCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke SKILL_ID",
		Short: "Revoke a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return submit(ctx, a, func(tx ledger.Tx) (*models.MutationResult, error) {
				return a.skills.RevokeSkill(ctx, tx, args[0], reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Revocation reason")
	return cmd
}

func newSkillHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history SKILL_ID",
		Short: "Show every committed version of a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) ([]audittrail.Entry, error) {
				return a.skills.GetSkillHistory(ctx, tx, args[0])
			})
		},
	}
}

func newSkillStudentCmd(a *app) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "student STUDENT_ID",
		Short: "List a student's skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if summary {
				return evaluate(ctx, a, func(tx ledger.Tx) (*models.StudentSummary, error) {
					return a.skills.GetStudentSkillSummary(ctx, tx, args[0])
				})
			}
			return evaluate(ctx, a, func(tx ledger.Tx) ([]models.StudentSkill, error) {
				return a.skills.GetStudentSkills(ctx, tx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Show aggregate counts instead of the list")
	return cmd
}

func newSkillTopCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most endorsed skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return evaluate(ctx, a, func(tx ledger.Tx) ([]models.Skill, error) {
				return a.skills.GetTopEndorsedSkills(ctx, tx, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of skills")
	return cmd
}
