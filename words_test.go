package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinues(t *testing.T) {
	cases := []struct {
		name      string
		previous  string
		candidate string
		want      bool
	}{
		{"first word of a round", "", "apple", true},
		{"first phrase of a round", "", "apple pie", true},
		{"simple link", "apple", "apple pie", true},
		{"matching link", "green apple", "apple pie", true},
		{"single words", "apple", "apple", true},
		{"case insensitive", "New York", "YORK minster", true},
		{"phrase to phrase", "ice cream sundae", "sundae best hat", true},
		{"broken chain", "apple", "banana split", false},
		{"link buried mid-phrase", "apple pie", "tart apple crumble", false},
		{"empty candidate", "apple", "", false},
		{"whitespace candidate", "apple", "   ", false},
		{"both empty", "", "", false},
		{"extra whitespace", "  green   apple  ", "  APPLE  sauce ", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, continues(tc.previous, tc.candidate))
		})
	}
}

func TestLastToken(t *testing.T) {
	assert.Equal(t, "apple", lastToken("apple"))
	assert.Equal(t, "pie", lastToken("apple pie"))
	assert.Equal(t, "pie", lastToken("  apple   pie  "))
	assert.Equal(t, "", lastToken(""))
	assert.Equal(t, "", lastToken("   "))
}
