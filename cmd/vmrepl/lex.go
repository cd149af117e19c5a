package main

/*
Bootstrap lexer for vmrepl's `:tokens` command.

Source-language parsing is out of scope for the VM core — a loader
hands it a completed code tree — so vmrepl has no surface syntax to
compile to a Program. What it does need, purely as a demo/debug
affordance, is a way to show a line of prospective source text broken
into lexemes, the same kind of thing a real loader's front end would
hand off to a parser: a lexmachine.Lexer with a handful of
Add(pattern, action) rules for identifiers, numbers, strings and
punctuation, Compile()d once and Scanner()'d per input line. It
returns a small local Token type.
*/

import (
	"fmt"
	"sync"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Token is a scanned lexeme: its class name ("ID", "NUM",...) and the
// exact source text it matched.
type Token struct {
	Class  string
	Lexeme string
	Column int
}

const (
	tokComment = iota
	tokID
	tokNum
	tokString
	tokPunct
)

var classNames = map[int]string{
	tokComment: "COMMENT",
	tokID:      "ID",
	tokNum:     "NUM",
	tokString:  "STRING",
	tokPunct:   "PUNCT",
}

var (
	lexerOnce sync.Once
	bootLexer *lexmachine.Lexer
)

func makeAction(class int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(class, string(m.Bytes), m), nil
	}
}

// skip discards whitespace and comments without emitting a token.
func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func newBootLexer() (*lexmachine.Lexer, error) {
	var err error
	lexerOnce.Do(func() {
		lx := lexmachine.NewLexer()
		lx.Add([]byte(`;[^\n]*\n?`), skip)
		lx.Add([]byte(`( |\t|\n|\r)+`), skip)
		lx.Add([]byte(`\"[^"]*\"`), makeAction(tokString))
		lx.Add([]byte(`([a-z]|[A-Z]|_)([a-z]|[A-Z]|[0-9]|_)*`), makeAction(tokID))
		lx.Add([]byte(`[0-9]+(\.[0-9]+)?`), makeAction(tokNum))
		lx.Add([]byte(`(\(|\)|\{|\}|\[|\]|\,|\.|\+|\-|\*|\/|\=|\<|\>)`), makeAction(tokPunct))
		err = lx.Compile()
		bootLexer = lx
	})
	return bootLexer, err
}

// tokenizeLine runs the bootstrap lexer over a single line of
// prospective source text, returning every token it recognized.
func tokenizeLine(line string) ([]Token, error) {
	lx, err := newBootLexer()
	if err != nil {
		return nil, fmt.Errorf("compiling bootstrap lexer: %w", err)
	}
	scanner, err := lx.Scanner([]byte(line))
	if err != nil {
		return nil, err
	}
	var out []Token
	for {
		tok, err, eof := scanner.Next()
		if eof {
			break
		}
		if err != nil {
			if ui, ok := err.(*machines.UnconsumedInput); ok {
				scanner.TC = ui.FailTC
				continue
			}
			return nil, err
		}
		t := tok.(*lexmachine.Token)
		out = append(out, Token{
			Class:  classNames[t.Type],
			Lexeme: string(t.Lexeme),
			Column: t.StartColumn,
		})
	}
	return out, nil
}
