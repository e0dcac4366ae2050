package record

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "credledger/pkg/domain-errors"
)

// RecordSuite checks canonical encoding.
//
// Justification: primary and alias keys must hold identical bytes, and replays
// of the same record must not produce spurious history differences.
type RecordSuite struct {
	suite.Suite
}

func TestRecordSuite(t *testing.T) {
	suite.Run(t, new(RecordSuite))
}

type sample struct {
	Zeta  string            `json:"zeta"`
	Alpha string            `json:"alpha"`
	Inner []inner           `json:"inner"`
	Extra map[string]string `json:"extra,omitempty"`
}

type inner struct {
	Y string `json:"y"`
	X int    `json:"x"`
}

func (s *RecordSuite) TestMarshalSortsKeys() {
	b, err := Marshal(sample{Zeta: "z", Alpha: "<a&b>", Inner: []inner{{Y: "y", X: 1}}})
	s.Require().NoError(err)
	s.Equal(`{"alpha":"<a&b>","inner":[{"x":1,"y":"y"}],"zeta":"z"}`, string(b))
}

func (s *RecordSuite) TestMarshalIsStable() {
	v := sample{Alpha: "a", Extra: map[string]string{"b": "2", "a": "1"}}
	first, err := Marshal(v)
	s.Require().NoError(err)
	second, err := Marshal(v)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *RecordSuite) TestUnmarshalCorrupt() {
	var out sample
	err := Unmarshal("CERT1", []byte("{not json"), &out)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCorruptRecord))
}

func (s *RecordSuite) TestPeek() {
	s.Equal(DocTypeSkill, Peek([]byte(`{"docType":"skill","skillId":"S"}`)))
	s.Equal("", Peek([]byte{0x00}))
	s.Equal("", Peek([]byte(`{"certId":"x"}`)))
}
