package main

import (
	"strings"
)

// continues reports whether candidate is a valid continuation of previous:
// the first token of candidate must equal the last token of previous,
// compared case-insensitively. Tokens are whitespace-separated. The first
// word of a round (empty previous) accepts any non-empty candidate.
//
// Whether the word is a real word at all is not checked here; that is left
// to the players via the dispute vote.
func continues(previous, candidate string) bool {
	candidateTokens := strings.Fields(candidate)
	if len(candidateTokens) == 0 {
		return false
	}

	previousTokens := strings.Fields(previous)
	if len(previousTokens) == 0 {
		return true
	}

	return strings.EqualFold(previousTokens[len(previousTokens)-1], candidateTokens[0])
}

// lastToken returns the final whitespace-separated token of s, for use in
// user-facing rejection messages.
func lastToken(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
