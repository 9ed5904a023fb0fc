package parser

// futureKeywords are identifiers reserved for later versions of the
// language. They lex as names but cannot be used as one.
var futureKeywords = map[string]bool{
	"async":  true,
	"story":  true,
	"assert": true,
	"called": true,
	"mock":   true,
}

// types are the names accepted in function signatures.
var types = map[string]string{
	"int":     "INT_TYPE",
	"float":   "FLOAT_TYPE",
	"number":  "NUMBER_TYPE",
	"string":  "STRING_TYPE",
	"boolean": "BOOLEAN_TYPE",
	"list":    "LIST_TYPE",
	"map":     "MAP_TYPE",
	"object":  "OBJECT_TYPE",
	"any":     "ANY_TYPE",
}
