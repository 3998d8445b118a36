package loader

import (
	"fmt"
	"strings"
)

type token int

const (
	tEOF token = iota
	tName
	tInt

	// operators
	tAssign // =
	tOrOr   // ||
	tAndAnd // &&
	tEql    // ==
	tNeq    // !=
	tLss    // <
	tLeq    // <=
	tGtr    // >
	tGeq    // >=
	tOr     // |
	tXor    // ^
	tAnd    // &
	tShl    // <<
	tShr    // >>
	tConcat // ++
	tAdd    // +
	tSub    // -
	tMul    // *
	tDiv    // /
	tRem    // %
	tNot    // !
	tCompl  // ~
	tQuest  // ?

	// delimiters
	tLparen // (
	tRparen // )
	tLbrack // [
	tRbrack // ]
	tLbrace // {
	tRbrace // }
	tComma  // ,
	tColon  // :
	tSemi   // ;
	tDot    // .
)

var tokenText = map[token]string{
	tEOF: "end of input", tName: "name", tInt: "integer",
	tAssign: "=", tOrOr: "||", tAndAnd: "&&", tEql: "==", tNeq: "!=",
	tLss: "<", tLeq: "<=", tGtr: ">", tGeq: ">=", tOr: "|", tXor: "^",
	tAnd: "&", tShl: "<<", tShr: ">>", tConcat: "++", tAdd: "+", tSub: "-",
	tMul: "*", tDiv: "/", tRem: "%", tNot: "!", tCompl: "~", tQuest: "?",
	tLparen: "(", tRparen: ")", tLbrack: "[", tRbrack: "]", tLbrace: "{",
	tRbrace: "}", tComma: ",", tColon: ":", tSemi: ";", tDot: ".",
}

func (t token) String() string {
	if s, ok := tokenText[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// precedence returns the binding power of a binary operator, or 0.
func (t token) precedence() int {
	switch t {
	case tOrOr:
		return 1
	case tAndAnd:
		return 2
	case tEql, tNeq:
		return 3
	case tLss, tLeq, tGtr, tGeq:
		return 4
	case tOr:
		return 5
	case tXor:
		return 6
	case tAnd:
		return 7
	case tShl, tShr:
		return 8
	case tConcat, tAdd, tSub:
		return 9
	case tMul, tDiv, tRem:
		return 10
	}
	return 0
}

// operators sorted so that longer spellings are tried first.
var operators = []struct {
	text string
	tok  token
}{
	{"||", tOrOr}, {"&&", tAndAnd}, {"==", tEql}, {"!=", tNeq},
	{"<=", tLeq}, {">=", tGeq}, {"<<", tShl}, {">>", tShr}, {"++", tConcat},
	{"=", tAssign}, {"<", tLss}, {">", tGtr}, {"|", tOr}, {"^", tXor},
	{"&", tAnd}, {"+", tAdd}, {"-", tSub}, {"*", tMul}, {"/", tDiv},
	{"%", tRem}, {"!", tNot}, {"~", tCompl}, {"?", tQuest}, {"(", tLparen},
	{")", tRparen}, {"[", tLbrack}, {"]", tRbrack}, {"{", tLbrace},
	{"}", tRbrace}, {",", tComma}, {":", tColon}, {";", tSemi}, {".", tDot},
}

// scanner splits one expression or statement string into tokens.
type scanner struct {
	src string
	off int

	tok    token
	lit    string
	tokOff int
	err    error
}

func newScanner(src string) *scanner {
	s := &scanner{src: src}
	s.next()
	return s
}

func (s *scanner) next() {
	for s.off < len(s.src) && isSpace(s.src[s.off]) {
		s.off++
	}
	s.tokOff = s.off
	s.lit = ""
	if s.off >= len(s.src) {
		s.tok = tEOF
		return
	}
	ch := s.src[s.off]
	switch {
	case isLetter(ch):
		start := s.off
		for s.off < len(s.src) && (isLetter(s.src[s.off]) || isDigit(s.src[s.off])) {
			s.off++
		}
		s.tok, s.lit = tName, s.src[start:s.off]
	case isDigit(ch):
		start := s.off
		for s.off < len(s.src) && (isLetter(s.src[s.off]) || isDigit(s.src[s.off])) {
			s.off++
		}
		s.tok, s.lit = tInt, s.src[start:s.off]
	default:
		for _, op := range operators {
			if strings.HasPrefix(s.src[s.off:], op.text) {
				s.off += len(op.text)
				s.tok = op.tok
				return
			}
		}
		s.err = fmt.Errorf("unexpected character %q", ch)
		s.tok = tEOF
	}
}

// splitShr turns the current >> into > followed by >, for nested type
// arguments such as tuple<bit<8>>.
func (s *scanner) splitShr() {
	s.tok = tGtr
	s.off = s.tokOff + 1
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
