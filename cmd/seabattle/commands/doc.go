// Package commands implements the seabattle CLI.
//
//	seabattle host [--port 12345] [--auto]
//	seabattle join <address> [--port 12345] [--auto]
//
// Both commands open an interactive console on stdin. Ships are placed with
// "place" or "auto", then "start" hosts or dials the opponent.
package commands
