// Package repl runs the interactive shell.
//
// Lines are split with shell quoting rules, so names and paths containing
// spaces can be quoted. History is kept across sessions in a file.
package repl
