// SPDX-License-Identifier: MPL-2.0

package script

// reservedWords are shell control-flow and declaration keywords. The parser
// normally consumes these into structured nodes, but the raw-text fallback
// for dynamic invocations can surface them, so they are filtered explicitly.
var reservedWords = map[string]struct{}{
	"if":       {},
	"then":     {},
	"elif":     {},
	"else":     {},
	"fi":       {},
	"for":      {},
	"in":       {},
	"do":       {},
	"done":     {},
	"while":    {},
	"until":    {},
	"case":     {},
	"esac":     {},
	"function": {},
	"select":   {},
	"time":     {},
	"coproc":   {},
	"{":        {},
	"}":        {},
	"!":        {},
	"[[":       {},
	"]]":       {},
}

// operatorTokens are redirection and pipeline tokens that can leak out of
// the raw-text fallback.
var operatorTokens = map[string]struct{}{
	">":   {},
	">>":  {},
	"2>":  {},
	"2>>": {},
	"<":   {},
	"|":   {},
	"|&":  {},
	"&&":  {},
	"||":  {},
	"&":   {},
	";":   {},
	";;":  {},
}

// filterArgCommands are query commands whose arguments are match/predicate
// expressions. An invocation nested anywhere beneath one of these is part of
// the filter expression, not a dependency of the script.
var filterArgCommands = map[string]struct{}{
	"find": {},
	"test": {},
	"[":    {},
	"expr": {},
}

// wrapperCommands run another command named by their operand. The parser
// sees a single invocation, so the wrapped name has to be pulled out of the
// argument list explicitly or a script's real dependency hides behind the
// wrapper.
var wrapperCommands = map[string]struct{}{
	"command": {},
	"builtin": {},
	"exec":    {},
	"env":     {},
	"nohup":   {},
	"sudo":    {},
	"xargs":   {},
}

func isReservedWord(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

func isOperatorToken(name string) bool {
	_, ok := operatorTokens[name]
	return ok
}

func isFilterBearing(name string) bool {
	_, ok := filterArgCommands[name]
	return ok
}

func isWrapperCommand(name string) bool {
	_, ok := wrapperCommands[name]
	return ok
}
