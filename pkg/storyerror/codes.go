package storyerror

// Code identifies a class of story diagnostic. Codes are stable and appear in
// every rendered report.
type Code string

// Diagnostic codes.
const (
	UnexpectedToken       Code = "E0001"
	ServiceNameDot        Code = "E0002"
	ArgumentsNoService    Code = "E0003"
	ReturnOutsideFunction Code = "E0004"
	VariableNameSlash     Code = "E0005"
	VariableNameDash      Code = "E0006"
	MissingValue          Code = "E0007"
	ReservedKeyword       Code = "E0008"
	FutureReservedKeyword Code = "E0009"
	Indentation           Code = "E0010"
	UnterminatedString    Code = "E0011"
	InlineExpression      Code = "E0012"
)

var templates = map[Code]string{
	UnexpectedToken:       "Unexpected token %s",
	ServiceNameDot:        "A service name can't contain `.`",
	ArgumentsNoService:    "You have defined an argument, but not a service",
	ReturnOutsideFunction: "`return` is allowed only inside functions",
	VariableNameSlash:     "A variable name can't contain `/`",
	VariableNameDash:      "A variable name can't contain `-`",
	MissingValue:          "Missing value after `=`",
	ReservedKeyword:       "`%s` is a reserved keyword",
	FutureReservedKeyword: "`%s` is reserved for future use",
	Indentation:           "Inconsistent indentation",
	UnterminatedString:    "Unterminated string",
	InlineExpression:      "An inline expression can't be used here",
}

// Template returns the message template of the code, or "" if unknown.
func (c Code) Template() string {
	return templates[c]
}
