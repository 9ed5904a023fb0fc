package parser

// Token kinds produced by the lexer. They become the Kind of tree.Token
// terminals in parsed trees.
const (
	KindEOF     = "EOF"
	KindNewline = "NEWLINE"
	KindIndent  = "INDENT"
	KindDedent  = "DEDENT"

	// Literals
	KindName         = "NAME"
	KindInt          = "INT"
	KindFloat        = "FLOAT"
	KindSingleQuoted = "SINGLE_QUOTED"
	KindDoubleQuoted = "DOUBLE_QUOTED"

	// Operators
	KindEquals     = "EQUALS"
	KindOperator   = "OPERATOR" // ==, !=, <, >, <=, >=
	KindPlus       = "PLUS"
	KindMinus      = "MINUS"
	KindMultiplier = "MULTIPLIER"
	KindDivide     = "DIVIDE"
	KindModulus    = "MODULUS"
	KindPower      = "POWER"

	// Punctuation
	KindColon    = "COLON"
	KindDot      = "DOT"
	KindComma    = "COMMA"
	KindLParen   = "LPAREN"
	KindRParen   = "RPAREN"
	KindLBracket = "LBRACKET"
	KindRBracket = "RBRACKET"

	// Keywords
	KindFunction = "FUNCTION"
	KindIf       = "IF"
	KindElse     = "ELSE"
	KindForeach  = "FOREACH"
	KindReturn   = "RETURN"
	KindReturns  = "RETURNS"
	KindTry      = "TRY"
	KindCatch    = "CATCH"
	KindFinally  = "FINALLY"
	KindWhen     = "WHEN"
	KindAs       = "AS"
	KindImport   = "IMPORT"
	KindWhile    = "WHILE"
	KindRaise    = "RAISE"
	KindTrue     = "TRUE"
	KindFalse    = "FALSE"
)

// keywords maps reserved words to their token kind.
var keywords = map[string]string{
	"function": KindFunction,
	"if":       KindIf,
	"else":     KindElse,
	"foreach":  KindForeach,
	"return":   KindReturn,
	"returns":  KindReturns,
	"try":      KindTry,
	"catch":    KindCatch,
	"finally":  KindFinally,
	"when":     KindWhen,
	"as":       KindAs,
	"import":   KindImport,
	"while":    KindWhile,
	"raise":    KindRaise,
	"true":     KindTrue,
	"false":    KindFalse,
}

// LookupIdent returns the keyword kind of ident, or KindName.
func LookupIdent(ident string) string {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return KindName
}

// IsKeyword reports whether kind is a reserved keyword kind. Booleans are
// literals, not keywords.
func IsKeyword(kind string) bool {
	switch kind {
	case KindTrue, KindFalse, KindName:
		return false
	}
	for _, k := range keywords {
		if k == kind {
			return true
		}
	}
	return false
}
