package lexer

import "fmt"

// CompileErrorType tags the kind of a recoverable lexing error.
type CompileErrorType int

const (
	LexerInvalidEscapeChar CompileErrorType = iota
	LexerUnexpectedChar
	LexerInCompleteString
	LexerInvalidFloat
)

var compileErrorTypeNames = map[CompileErrorType]string{
	LexerInvalidEscapeChar: "Lexer_InvalidEscapeChar",
	LexerUnexpectedChar:    "Lexer_UnexpectedChar",
	LexerInCompleteString:  "Lexer_InCompleteString",
	LexerInvalidFloat:      "Lexer_InvalidFloat",
}

func (e CompileErrorType) String() string {
	if name, ok := compileErrorTypeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("CompileErrorType(%d)", int(e))
}

// CompileError is one recoverable error found while lexing. Token carries
// the column of the offending character run; for errors raised on an
// otherwise valid token (invalid escapes, incomplete strings) it references
// the emitted token itself.
type CompileError struct {
	ErrorType CompileErrorType
	Token     *Token
	ErrorMsg  string
}

func (e *CompileError) String() string {
	return fmt.Sprintf("%s at column %d: %s", e.ErrorType, e.Token.Column, e.ErrorMsg)
}
