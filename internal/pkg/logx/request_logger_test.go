package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "203.0.113.77:5123", want: "203.0.113.0"},
		{in: "198.51.100.9", want: "198.51.100.0"},
		{in: "127.0.0.1:80", want: "127.0.0.1"},
		{in: "[2001:db8:1:2:3:4:5:6]:443", want: "2001:db8:1:2::"},
		{in: "not-an-ip", want: "unknown_ip"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, anonymizeIP(tc.in), tc.in)
	}
}

func TestCheckFieldsDropsOddPairs(t *testing.T) {
	assert.Nil(t, checkFields("Info", []any{"only_key"}))
	assert.Equal(t, []any{"k", 1}, checkFields("Info", []any{"k", 1}))
}
