// Package lexer converts one line of SQL source text into positioned
// tokens. Lexing never fails outright: every recoverable problem is
// accumulated as a CompileError on the resulting TokenLine and scanning
// continues, so downstream stages always receive a best-effort token list.
package lexer

import "fmt"

// TokenType enumerates the closed set of token classes the lexer emits.
type TokenType int

const (
	IntegerLiteral TokenType = iota
	FloatLiteral
	StringLiteral
	Identifier // table, attribute, alias

	Select
	From
	Where
	Order
	By
	Group
	Having

	Insert
	Values
	Update
	Set
	Delete

	Create
	Table
	Drop

	Null
	OpenBracket  // (
	CloseBracket // )
	Comma        // ,
	Add          // +
	Sub          // -
	Star         // *, wildcard and multiplication
	Div          // /
	Mod          // %
	LT           // <
	GT           // >
	LE           // <=
	GE           // >=
	EQ           // =
	NE           // !=
	GetMember    // .
	And          // and
	Or           // or
	Not          // not
	Is           // is

	// UnKnown is a sentinel; it is never emitted as a valid token but
	// tags the synthetic tokens attached to compile errors.
	UnKnown
)

var tokenTypeNames = map[TokenType]string{
	IntegerLiteral: "IntegerLiteral",
	FloatLiteral:   "FloatLiteral",
	StringLiteral:  "StringLiteral",
	Identifier:     "Identifier",
	Select:         "Select",
	From:           "From",
	Where:          "Where",
	Order:          "Order",
	By:             "By",
	Group:          "Group",
	Having:         "Having",
	Insert:         "Insert",
	Values:         "Values",
	Update:         "Update",
	Set:            "Set",
	Delete:         "Delete",
	Create:         "Create",
	Table:          "Table",
	Drop:           "Drop",
	Null:           "Null",
	OpenBracket:    "OpenBracket",
	CloseBracket:   "CloseBracket",
	Comma:          "Comma",
	Add:            "Add",
	Sub:            "Sub",
	Star:           "Star",
	Div:            "Div",
	Mod:            "Mod",
	LT:             "LT",
	GT:             "GT",
	LE:             "LE",
	GE:             "GE",
	EQ:             "EQ",
	NE:             "NE",
	GetMember:      "GetMember",
	And:            "And",
	Or:             "Or",
	Not:            "Not",
	Is:             "Is",
	UnKnown:        "UnKnown",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexed token. Column is the 1-based column of the token's
// first character in its source line. Value is the canonical text: the
// decoded content for string literals, the raw source text for numbers and
// identifiers, the matched lexeme for keywords and operators.
type Token struct {
	Column int
	Value  string
	Type   TokenType
}

func (t *Token) String() string {
	return fmt.Sprintf("%d:%s(%q)", t.Column, t.Type, t.Value)
}

// TokenLine is the result of lexing one input string: the tokens in input
// order and the errors in discovery order, either possibly empty.
type TokenLine struct {
	Tokens []*Token
	Errors []CompileError
}
