package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"com", true},
		{"_private", true},
		{"$gen", true},
		{"Ünïcode", true},
		{"v2", true},
		{"", false},
		{"META-INF", false},
		{"1abc", false},
		{"a.b", false},
		{"with space", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIdentifier(tt.in))
		})
	}
}

func TestMakeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Person", "Person"},
		{"my-config", "my_config"},
		{"1st", "_1st"},
		{"a b", "a_b"},
		{"", "_"},
		{"-", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := MakeIdentifier(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsIdentifier(got), "sanitized %q must be an identifier", got)
		})
	}
}
