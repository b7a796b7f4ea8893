package bureau

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubClient_PullScore(t *testing.T) {
	ctx := context.Background()
	c := NewStub()

	cases := []struct {
		name    string
		panTail string
		want    int
	}{
		{"numeric tail varies by last digit", "1234", 660 + 4*20},
		{"zero digit", "9990", 660},
		{"alphanumeric tail uses default", "234F", 660 + 7*20},
		{"empty tail uses default", "", 660 + 7*20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := c.PullScore(ctx, tc.panTail)
			require.NoError(t, err)
			assert.Equal(t, tc.want, score)
		})
	}
}

func TestStubClient_Deterministic(t *testing.T) {
	ctx := context.Background()
	c := NewStub()
	first, err := c.PullScore(ctx, "5678")
	require.NoError(t, err)
	second, err := c.PullScore(ctx, "5678")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
