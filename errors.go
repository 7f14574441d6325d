package main

import (
	"errors"
	"fmt"
	"strings"
)

// Game-level failures. Request-style events report these inline in their
// result message; fire-and-forget events surface them to the acting client
// only, as an error-message envelope. None of them are fatal.
var (
	errRoomNotFound            = errors.New("room not found")
	errNotYourTurn             = errors.New("it is not your turn")
	errNotHost                 = errors.New("only the host can start the game")
	errInsufficientPlayers     = errors.New("at least 2 players are required to start")
	errAlreadyInProgress       = errors.New("a round is already in progress")
	errPlayersNotReady         = errors.New("not all players are back in the lobby")
	errInvalidWordContinuation = errors.New("word does not continue the chain")
)

func newPage(title, body string) string {
	return newPageWithLink(title, body, "/")
}

func newPageWithLink(title, body, href string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=%q>%s</a></body></html>", href, body))

	return htmlBody.String()
}
