// Package interp implements the command interpreter: it turns one client
// command line into a reply line by driving an internal/tree.Tree.
package interp

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/ValentinKolb/treekv/internal/treeerr"
	"github.com/ValentinKolb/treekv/internal/tree"
)

// MaxTokenLen is the maximum length, in bytes, of a single whitespace-
// separated argument token (KEY, VALUE, or PATH).
const MaxTokenLen = 255

const illFormed = "ill-formed command"

// Interpreter parses and executes command lines against a single tree.
// The zero value is not usable; construct one with New.
type Interpreter struct {
	tr *tree.Tree
}

// New creates an Interpreter bound to tr.
func New(tr *tree.Tree) *Interpreter {
	return &Interpreter{tr: tr}
}

// Interpret parses line (a single command, without its trailing newline)
// and returns the reply text. It never returns an error: every failure
// mode the grammar defines - malformed syntax, not-found, already-present,
// resource limits, bad file name - is reported as a reply string instead.
//
// The f verb is the only one that can run long enough to need cancellation:
// Interpret checks ctx between each line of the file it is replaying.
func (in *Interpreter) Interpret(ctx context.Context, line string) string {
	verb, rest, ok := splitVerb(line)
	if !ok {
		return illFormed
	}

	switch verb {
	case "q":
		return in.query(rest)
	case "a":
		return in.add(rest)
	case "d":
		return in.remove(rest)
	case "f":
		return in.file(ctx, rest)
	default:
		return illFormed
	}
}

// splitVerb extracts the one-byte verb and the remainder of the line. A
// line shorter than two bytes (verb plus at least a following separator or
// argument byte) is ill-formed.
func splitVerb(line string) (verb string, rest string, ok bool) {
	if len(line) < 2 {
		return "", "", false
	}
	return line[:1], line[1:], true
}

// tokens splits rest on whitespace and returns the first n tokens, rejecting
// any of them longer than MaxTokenLen. Fields beyond the n-th are ignored,
// not validated - a line with more arguments than its verb expects is parsed
// on its first n tokens and the rest is silently dropped. A nil result means
// rest held fewer than n tokens, which is ill-formed.
func tokens(rest string, n int) []string {
	fields := strings.Fields(rest)
	if len(fields) < n {
		return nil
	}
	fields = fields[:n]
	for _, f := range fields {
		if len(f) > MaxTokenLen {
			return nil
		}
	}
	return fields
}

func (in *Interpreter) query(rest string) string {
	args := tokens(rest, 1)
	if args == nil {
		return illFormed
	}
	value, ok := in.tr.Query(args[0])
	if !ok {
		return "not found"
	}
	return value
}

func (in *Interpreter) add(rest string) string {
	args := tokens(rest, 2)
	if args == nil {
		return illFormed
	}
	err := in.tr.Insert(args[0], args[1])
	switch {
	case err == nil:
		return "added"
	case errors.Is(err, treeerr.ErrAlreadyPresent):
		return "already in database"
	case errors.Is(err, treeerr.ErrKeyTooLong), errors.Is(err, treeerr.ErrValueTooLong):
		return illFormed
	default:
		return illFormed
	}
}

func (in *Interpreter) remove(rest string) string {
	args := tokens(rest, 1)
	if args == nil {
		return illFormed
	}
	err := in.tr.Remove(args[0])
	if errors.Is(err, treeerr.ErrNotFound) {
		return "not in database"
	}
	return "removed"
}

// file replays path line by line, recursively interpreting each one. The
// reply of each replayed line is discarded - only the final outcome is
// reported to the caller, since the reply buffer is effectively
// overwritten on every line.
func (in *Interpreter) file(ctx context.Context, rest string) string {
	args := tokens(rest, 1)
	if args == nil {
		return illFormed
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return "bad file name"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "file processed"
		}
		in.Interpret(ctx, scanner.Text())
	}
	return "file processed"
}
