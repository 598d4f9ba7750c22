package lexer

import "strings"

// keywords maps the lower-cased lexeme to its token type. Lookup folds
// case; the token keeps the original spelling.
var keywords = map[string]TokenType{
	"select": Select,
	"from":   From,
	"where":  Where,
	"order":  Order,
	"by":     By,
	"group":  Group,
	"having": Having,
	"insert": Insert,
	"values": Values,
	"update": Update,
	"set":    Set,
	"delete": Delete,
	"create": Create,
	"table":  Table,
	"drop":   Drop,
	"null":   Null,
	"and":    And,
	"or":     Or,
	"not":    Not,
	"is":     Is,
}

var singleCharTokens = map[byte]TokenType{
	'(': OpenBracket,
	')': CloseBracket,
	',': Comma,
	'+': Add,
	'-': Sub,
	'*': Star,
	'/': Div,
	'%': Mod,
	'<': LT,
	'>': GT,
	'=': EQ,
	'.': GetMember,
}

// keywordType returns the keyword type for an identifier lexeme, or
// UnKnown when the lexeme is a plain identifier.
func keywordType(lexeme string) TokenType {
	if t, ok := keywords[strings.ToLower(lexeme)]; ok {
		return t
	}
	return UnKnown
}

func singleCharType(c byte) TokenType {
	if t, ok := singleCharTokens[c]; ok {
		return t
	}
	return UnKnown
}

// twoCharType recognizes the two-character operators. It must be consulted
// before singleCharType so that "<=" and ">=" do not decompose.
func twoCharType(c, next byte) TokenType {
	switch {
	case c == '!' && next == '=':
		return NE
	case c == '<' && next == '=':
		return LE
	case c == '>' && next == '=':
		return GE
	}
	return UnKnown
}
