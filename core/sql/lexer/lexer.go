package lexer

import (
	"fmt"
	"strings"
)

type state int

const (
	stateBegin state = iota
	stateInInteger
	stateInFloat
	stateInIdentifier
	stateInString
	stateInStringEscaping
)

func isIgnored(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', 0:
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// Lex tokenizes one line of SQL source text. The input is scanned exactly
// once, left to right, with single-character lookahead; a synthetic NUL
// terminator drives any open state to emit or error before the scan ends.
// Problems never abort the scan: they accumulate on the returned
// TokenLine's error list.
func Lex(line string) *TokenLine {
	tl := &TokenLine{}
	st := stateBegin
	head := 0 // start index of the run being accumulated
	n := len(line)

	for i := 0; ; {
		var c, next byte
		if i < n {
			c = line[i]
		}
		if i+1 < n {
			next = line[i+1]
		}

		reprocess := false
		advance := 1

		switch st {
		case stateBegin:
			switch {
			case isIgnored(c):
			case twoCharType(c, next) != UnKnown:
				tl.addToken(i+1, line[i:i+2], twoCharType(c, next))
				advance = 2
			case singleCharType(c) != UnKnown:
				tl.addToken(i+1, string(c), singleCharType(c))
			case c == '"':
				st = stateInString
				head = i
			case isDigit(c):
				st = stateInInteger
				head = i
			case isIdentStart(c):
				st = stateInIdentifier
				head = i
			default:
				tl.addError(LexerUnexpectedChar, i+1, string(c),
					fmt.Sprintf("illegal char found: '%s'", string(c)))
			}

		case stateInInteger:
			switch {
			case isDigit(c):
			case c == '.':
				if isDigit(next) {
					st = stateInFloat
				} else {
					// The trailing dot is consumed and discarded; the
					// digits still make a Float token.
					tl.addToken(head+1, line[head:i], FloatLiteral)
					tl.addError(LexerInvalidFloat, head+1, line[head:i+1],
						"'.' should be followed by digit")
					st = stateBegin
				}
			default:
				tl.addToken(head+1, line[head:i], IntegerLiteral)
				st = stateBegin
				reprocess = true
			}

		case stateInFloat:
			if !isDigit(c) {
				tl.addToken(head+1, line[head:i], FloatLiteral)
				st = stateBegin
				reprocess = true
			}

		case stateInIdentifier:
			if !isIdentContinue(c) {
				tl.addToken(head+1, line[head:i], Identifier)
				st = stateBegin
				reprocess = true
			}

		case stateInString:
			switch c {
			case 0, '\n':
				tl.incompleteString(head, line[head+1:i])
				st = stateBegin
				reprocess = true
			case '\\':
				st = stateInStringEscaping
			case '"':
				tl.addToken(head+1, line[head+1:i], StringLiteral)
				st = stateBegin
			}

		case stateInStringEscaping:
			switch c {
			case 0, '\n':
				tl.incompleteString(head, line[head+1:i])
				st = stateBegin
				reprocess = true
			default:
				// The escape itself is resolved when the closed string is
				// decoded, not here.
				st = stateInString
			}
		}

		if reprocess {
			continue
		}
		if i >= n {
			break
		}
		i += advance
	}

	return tl
}

// addToken constructs and appends a token. Identifier lexemes are
// reclassified as keywords on a case-folded match (the stored value keeps
// the original spelling). String literals are escape-decoded; a failed
// decode records an error while the token is still emitted with its raw
// text, escapes passed through literally.
func (tl *TokenLine) addToken(column int, value string, typ TokenType) *Token {
	if typ == Identifier {
		if kw := keywordType(value); kw != UnKnown {
			typ = kw
		}
	}
	token := &Token{Column: column, Value: value, Type: typ}
	if typ == StringLiteral {
		if decoded, ok := unescapeString(value); ok {
			token.Value = decoded
		} else {
			tl.Errors = append(tl.Errors, CompileError{
				ErrorType: LexerInvalidEscapeChar,
				Token:     token,
				ErrorMsg:  "invalid escape char found in string literal",
			})
		}
	}
	tl.Tokens = append(tl.Tokens, token)
	return token
}

// addError appends an error that is not attached to an emitted token; the
// offending run is wrapped in a synthetic UnKnown token to carry its
// column.
func (tl *TokenLine) addError(typ CompileErrorType, column int, value, msg string) {
	tl.Errors = append(tl.Errors, CompileError{
		ErrorType: typ,
		Token:     &Token{Column: column, Value: value, Type: UnKnown},
		ErrorMsg:  msg,
	})
}

// incompleteString emits the unterminated run as an undecoded StringLiteral
// and records the InCompleteString error against it. head is the index of
// the opening quote; raw is the content scanned so far.
func (tl *TokenLine) incompleteString(head int, raw string) {
	token := &Token{Column: head + 1, Value: raw, Type: StringLiteral}
	tl.Tokens = append(tl.Tokens, token)
	tl.Errors = append(tl.Errors, CompileError{
		ErrorType: LexerInCompleteString,
		Token:     token,
		ErrorMsg:  `incomplete string, string must be closed with '"'`,
	})
}

// unescapeString decodes the escape sequences of a closed string literal.
// On an unrecognized escape it reports failure and the caller keeps the
// raw text: the backslash and the offending character both survive.
func unescapeString(s string) (string, bool) {
	if !strings.ContainsRune(s, '\\') {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	escaping := false
	for i := 0; i <= len(s); i++ {
		var c byte
		if i < len(s) {
			c = s[i]
		}
		if escaping {
			switch c {
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'v':
				b.WriteByte('\v')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			case '0':
				b.WriteByte(0)
			default:
				return "", false
			}
			escaping = false
		} else if c == '\\' {
			escaping = true
		} else if i < len(s) {
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
