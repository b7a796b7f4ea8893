package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"greenlight/internal/audit"
)

type VerificationSuite struct {
	suite.Suite
	store   *audit.InMemoryStore
	service *Service
	ctx     context.Context
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) SetupTest() {
	s.store = audit.NewInMemoryStore()
	s.service = New(audit.NewGate(s.store))
	s.ctx = context.Background()
}

func (s *VerificationSuite) TestSufficientIdentityPasses() {
	result, err := s.service.Run(s.ctx, Input{
		SessionID: "s1",
		Name:      "Asha Rao",
		Mobile:    "9876543210",
		PANTail:   "234F",
	})
	s.Require().NoError(err)
	s.True(result.OK)
	s.Equal("9876543210", result.Mobile)
	s.Equal("234F", result.PANTail)

	// Both capability checks were audited.
	records := s.store.All()
	s.Require().Len(records, 2)
	s.Equal("ckyc.read", records[0].Scope())
	s.Equal("aa.read", records[1].Scope())
	for _, r := range records {
		s.Equal(audit.ResultOK, r.Result)
	}
}

func (s *VerificationSuite) TestInsufficientFields() {
	cases := []struct {
		name string
		in   Input
	}{
		{"empty name", Input{Mobile: "9876543210", PANTail: "234F"}},
		{"short mobile", Input{Name: "A", Mobile: "98765", PANTail: "234F"}},
		{"long mobile", Input{Name: "A", Mobile: "98765432109", PANTail: "234F"}},
		{"short pan tail", Input{Name: "A", Mobile: "9876543210", PANTail: "34F"}},
		{"empty pan tail", Input{Name: "A", Mobile: "9876543210"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			result, err := s.service.Run(s.ctx, tc.in)
			s.Require().NoError(err)
			s.False(result.OK)
		})
	}

	// Field-shape failures never reach the gated capability checks.
	s.Empty(s.store.All())
}
