package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// assertToken verifies one token's (column, value, type) triple.
func assertToken(t *testing.T, token *Token, column int, value string, typ TokenType) {
	t.Helper()
	require.NotNil(t, token)
	require.Equal(t, column, token.Column)
	require.Equal(t, value, token.Value)
	require.Equal(t, typ, token.Type)
}

// errorTypes projects the error list onto its type tags.
func errorTypes(tl *TokenLine) []CompileErrorType {
	types := make([]CompileErrorType, 0, len(tl.Errors))
	for i := range tl.Errors {
		types = append(types, tl.Errors[i].ErrorType)
	}
	return types
}

func TestLexEmptyString(t *testing.T) {
	tl := Lex("")
	require.Empty(t, tl.Tokens)
	require.Empty(t, tl.Errors)
}

func TestLexWhitespaceOnly(t *testing.T) {
	tl := Lex(" \t\r\n ")
	require.Empty(t, tl.Tokens)
	require.Empty(t, tl.Errors)
}

func TestLexIntegerTokens(t *testing.T) {
	tl := Lex("1 233 6666")
	require.Len(t, tl.Tokens, 3)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "1", IntegerLiteral)
	assertToken(t, tl.Tokens[1], 3, "233", IntegerLiteral)
	assertToken(t, tl.Tokens[2], 7, "6666", IntegerLiteral)
}

// A trailing dot still yields a Float token carrying the digits; the dot is
// consumed, discarded, and reported.
func TestLexFloatTokens(t *testing.T) {
	tl := Lex("1.0 2.333 12.")
	require.Len(t, tl.Tokens, 3)
	assertToken(t, tl.Tokens[0], 1, "1.0", FloatLiteral)
	assertToken(t, tl.Tokens[1], 5, "2.333", FloatLiteral)
	assertToken(t, tl.Tokens[2], 11, "12", FloatLiteral)
	require.Equal(t, []CompileErrorType{LexerInvalidFloat}, errorTypes(tl))
}

func TestLexFloatDotThenOperator(t *testing.T) {
	// ".5" from Begin is GetMember then an integer, not a float.
	tl := Lex(".5")
	require.Len(t, tl.Tokens, 2)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, ".", GetMember)
	assertToken(t, tl.Tokens[1], 2, "5", IntegerLiteral)
}

func TestLexUnexpectedChars(t *testing.T) {
	tl := Lex("1$2##3")
	require.Len(t, tl.Tokens, 3)
	assertToken(t, tl.Tokens[0], 1, "1", IntegerLiteral)
	assertToken(t, tl.Tokens[1], 3, "2", IntegerLiteral)
	assertToken(t, tl.Tokens[2], 6, "3", IntegerLiteral)
	require.Equal(t, []CompileErrorType{
		LexerUnexpectedChar, LexerUnexpectedChar, LexerUnexpectedChar,
	}, errorTypes(tl))
	// The error tokens pin down the offending columns.
	require.Equal(t, 2, tl.Errors[0].Token.Column)
	require.Equal(t, 4, tl.Errors[1].Token.Column)
	require.Equal(t, 5, tl.Errors[2].Token.Column)
}

func TestLexStringTokens(t *testing.T) {
	tl := Lex(`"a" "str1""str2"`)
	require.Len(t, tl.Tokens, 3)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "a", StringLiteral)
	assertToken(t, tl.Tokens[1], 5, "str1", StringLiteral)
	assertToken(t, tl.Tokens[2], 11, "str2", StringLiteral)
}

func TestLexStringEscapes(t *testing.T) {
	tl := Lex(`"\a\b\f\n\r\t\v\\\'\"\0"`)
	require.Len(t, tl.Tokens, 1)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "\a\b\f\n\r\t\v\\'\"\x00", StringLiteral)
}

// An unrecognized escape raises an error but the string still closes; its
// value keeps the raw text with the backslash and offending char intact.
func TestLexStringInvalidEscape(t *testing.T) {
	tl := Lex(`"unfinished escape \j end"`)
	require.Len(t, tl.Tokens, 1)
	assertToken(t, tl.Tokens[0], 1, `unfinished escape \j end`, StringLiteral)
	require.Equal(t, []CompileErrorType{LexerInvalidEscapeChar}, errorTypes(tl))
	// The error references the emitted token.
	require.Same(t, tl.Tokens[0], tl.Errors[0].Token)
}

func TestLexIncompleteString(t *testing.T) {
	tl := Lex(`"no closing quote`)
	require.Len(t, tl.Tokens, 1)
	assertToken(t, tl.Tokens[0], 1, "no closing quote", StringLiteral)
	require.Equal(t, []CompileErrorType{LexerInCompleteString}, errorTypes(tl))
}

func TestLexIncompleteStringWhileEscaping(t *testing.T) {
	tl := Lex(`"dangling \`)
	require.Len(t, tl.Tokens, 1)
	assertToken(t, tl.Tokens[0], 1, `dangling \`, StringLiteral)
	require.Equal(t, []CompileErrorType{LexerInCompleteString}, errorTypes(tl))
}

func TestLexIdentifierTokens(t *testing.T) {
	tl := Lex("ident ident2 _233")
	require.Len(t, tl.Tokens, 3)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "ident", Identifier)
	assertToken(t, tl.Tokens[1], 7, "ident2", Identifier)
	assertToken(t, tl.Tokens[2], 14, "_233", Identifier)
}

func TestLexKeywordTokens(t *testing.T) {
	tl := Lex("select fROM Where")
	require.Len(t, tl.Tokens, 3)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "select", Select)
	assertToken(t, tl.Tokens[1], 8, "fROM", From)
	assertToken(t, tl.Tokens[2], 13, "Where", Where)
}

// Every keyword must match case-insensitively while the token keeps the
// original spelling.
func TestLexKeywordCaseFoldRoundTrip(t *testing.T) {
	for lexeme, want := range keywords {
		for _, variant := range []string{
			lexeme,
			strings.ToUpper(lexeme),
			strings.ToUpper(lexeme[:1]) + lexeme[1:],
		} {
			tl := Lex(variant)
			require.Len(t, tl.Tokens, 1, "input %q", variant)
			require.Empty(t, tl.Errors, "input %q", variant)
			assertToken(t, tl.Tokens[0], 1, variant, want)
		}
	}
}

func TestLexOperatorTokens(t *testing.T) {
	tl := Lex("(),+-*/%<><=>==!=.")
	require.Len(t, tl.Tokens, 15)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "(", OpenBracket)
	assertToken(t, tl.Tokens[1], 2, ")", CloseBracket)
	assertToken(t, tl.Tokens[2], 3, ",", Comma)
	assertToken(t, tl.Tokens[3], 4, "+", Add)
	assertToken(t, tl.Tokens[4], 5, "-", Sub)
	assertToken(t, tl.Tokens[5], 6, "*", Star)
	assertToken(t, tl.Tokens[6], 7, "/", Div)
	assertToken(t, tl.Tokens[7], 8, "%", Mod)
	assertToken(t, tl.Tokens[8], 9, "<", LT)
	assertToken(t, tl.Tokens[9], 10, ">", GT)
	assertToken(t, tl.Tokens[10], 11, "<=", LE)
	assertToken(t, tl.Tokens[11], 13, ">=", GE)
	assertToken(t, tl.Tokens[12], 15, "=", EQ)
	assertToken(t, tl.Tokens[13], 16, "!=", NE)
	assertToken(t, tl.Tokens[14], 18, ".", GetMember)
}

// Two-character operators must win over their one-character prefixes.
func TestLexTwoCharBeforeSingleChar(t *testing.T) {
	tl := Lex("<=")
	require.Len(t, tl.Tokens, 1)
	require.Empty(t, tl.Errors)
	assertToken(t, tl.Tokens[0], 1, "<=", LE)

	// A bare '!' is not an operator at all.
	tl = Lex("!")
	require.Empty(t, tl.Tokens)
	require.Equal(t, []CompileErrorType{LexerUnexpectedChar}, errorTypes(tl))
}

func TestLexSelectStatement(t *testing.T) {
	tl := Lex(`select name, age from users where age >= 21 and city = "Shen Zhen"`)
	require.Empty(t, tl.Errors)
	types := make([]TokenType, 0, len(tl.Tokens))
	for _, token := range tl.Tokens {
		types = append(types, token.Type)
	}
	require.Equal(t, []TokenType{
		Select, Identifier, Comma, Identifier, From, Identifier,
		Where, Identifier, GE, IntegerLiteral, And, Identifier, EQ, StringLiteral,
	}, types)
}

// Token columns are 1-based, within the line, and strictly increasing.
func TestLexColumnsStrictlyIncreasing(t *testing.T) {
	inputs := []string{
		"1 233 6666",
		"select fROM Where",
		"(),+-*/%<><=>==!=.",
		`"a" "str1""str2" x 12. 3.5 foo_bar`,
	}
	for _, input := range inputs {
		tl := Lex(input)
		last := 0
		for _, token := range tl.Tokens {
			require.Greater(t, token.Column, last, "input %q", input)
			require.LessOrEqual(t, token.Column, len(input), "input %q", input)
			last = token.Column
		}
	}
}
