package inr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{99999, "99,999"},
		{100000, "1,00,000"},
		{150000, "1,50,000"},
		{1500000, "15,00,000"},
		{12345678, "1,23,45,678"},
		{-1500000, "-15,00,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Group(tc.in), "Group(%d)", tc.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Rs 15,00,000", Format(1500000))
	assert.Equal(t, "Rs 999", Format(999))
}
