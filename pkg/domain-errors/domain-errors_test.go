package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: Callers branch on these codes (already_revoked vs forbidden vs
// corrupt_record), so "wrapped domain errors preserve original code" and
// "errors.Is matches by code" must hold across every layer.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "Certificate CERT_1 does not exist"}
		s.Equal("Certificate CERT_1 does not exist", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAlreadyRevoked}
		s.Equal("already_revoked", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "certificate not found"}
		err2 := &Error{Code: CodeNotFound, Message: "skill not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeUnauthorized}
		err2 := &Error{Code: CodeForbidden}
		s.False(err1.Is(err2))
	})

	s.Run("does not match non-domain errors", func() {
		err1 := &Error{Code: CodeNotFound}
		s.False(err1.Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through fmt wrapping", func() {
		inner := New(CodeDuplicateEndorsement, "You have already endorsed this skill")
		wrapped := fmt.Errorf("endorse: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeDuplicateEndorsement}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeCorruptRecord, "stored record is not valid JSON")
		wrapped := Wrap(original, CodeInternal, "failed to load certificate")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeCorruptRecord, domainErr.Code)
		s.Equal("failed to load certificate", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		wrapped := Wrap(errors.New("disk full"), CodeInternal, "commit failed")
		s.True(HasCode(wrapped, CodeInternal))
	})

	s.Run("wrapped error is reachable via errors.Is", func() {
		original := errors.New("root cause")
		wrapped := Wrap(original, CodeConflict, "version conflict")
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("finds code through error chain", func() {
		inner := New(CodeNotFound, "original")
		wrapped := Wrap(inner, CodeInternal, "wrapped")
		s.True(HasCode(wrapped, CodeNotFound))
		s.Equal(CodeNotFound, CodeOf(wrapped))
	})

	s.Run("foreign errors report internal", func() {
		s.False(HasCode(errors.New("boom"), CodeNotFound))
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})

	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}
