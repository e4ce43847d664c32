// Package token defines the lexical token kinds produced by the lexer
// (spec §4.1) and the source-span type shared by the AST, bytecode
// debug-info, and error reporting.
package token

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	Illegal Kind = iota
	EOF

	// Layout. NewLine and a line's leading Whitespace are emitted; the
	// lexer skips comments and mid-line whitespace, so CommentSingle and
	// CommentMulti are never produced.
	NewLine
	Whitespace // a run of leading indentation on a line
	CommentSingle
	CommentMulti

	Ident
	Int
	Float

	// String forms.
	Str           // "..."
	StrRaw        // '...'  (single-quote, no interpolation)
	StrMultiline  // '''...'''
	StrInterpLit  // literal segment of an interpolated string
	StrInterpExpr // marks entry into an interpolation expression

	// Keywords.
	KwAnd
	KwOr
	KwNot
	KwTrue
	KwFalse
	KwNull
	KwIf
	KwElse
	KwThen
	KwFor
	KwIn
	KwAs
	KwWhile
	KwLoop
	KwBreak
	KwContinue
	KwReturn
	KwFrom
	KwImport
	KwExport
	KwMatch
	KwYield
	KwThrow
	KwTry
	KwCatch
	KwFinally
	KwDebug

	// Operators / punctuation.
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	Eq
	NotEq
	Less
	LessEq
	Greater
	GreaterEq
	Not
	AndAnd
	OrOr
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	DotDot
	DotDotEq
	Ellipsis
	Colon
	Arrow
	FatArrow
	Pipe
	Wildcard // _
	At       // @ prefix for meta-keys
)

var names = map[Kind]string{
	Illegal: "Illegal", EOF: "EOF", NewLine: "NewLine", Whitespace: "Whitespace",
	CommentSingle: "CommentSingle", CommentMulti: "CommentMulti", Ident: "Ident",
	Int: "Int", Float: "Float", Str: "Str", StrRaw: "StrRaw", StrMultiline: "StrMultiline",
	StrInterpLit: "StrInterpLit", StrInterpExpr: "StrInterpExpr",
	KwAnd: "and", KwOr: "or", KwNot: "not", KwTrue: "true", KwFalse: "false", KwNull: "null",
	KwIf: "if", KwElse: "else", KwThen: "then", KwFor: "for", KwIn: "in", KwAs: "as",
	KwWhile: "while", KwLoop: "loop",
	KwBreak: "break", KwContinue: "continue", KwReturn: "return", KwFrom: "from",
	KwImport: "import", KwExport: "export", KwMatch: "match", KwYield: "yield",
	KwThrow: "throw", KwTry: "try", KwCatch: "catch", KwFinally: "finally", KwDebug: "debug",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Assign: "=",
	PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	Eq: "==", NotEq: "!=", Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">=",
	Not: "not", AndAnd: "and", OrOr: "or", LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Comma: ",", Dot: ".", DotDot: "..", DotDotEq: "..=",
	Ellipsis: "...", Colon: ":", Arrow: "->", FatArrow: "=>", Pipe: "|", Wildcard: "_", At: "@",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"and": KwAnd, "or": KwOr, "not": KwNot, "true": KwTrue, "false": KwFalse,
	"null": KwNull, "if": KwIf, "else": KwElse, "then": KwThen, "for": KwFor,
	"in": KwIn, "as": KwAs,
	"while": KwWhile, "loop": KwLoop, "break": KwBreak, "continue": KwContinue,
	"return": KwReturn, "from": KwFrom, "import": KwImport, "export": KwExport,
	"match": KwMatch, "yield": KwYield, "throw": KwThrow, "try": KwTry,
	"catch": KwCatch, "finally": KwFinally, "debug": KwDebug,
}

// LookupIdent classifies a scanned identifier lexeme as a keyword kind
// or as a plain Ident.
func LookupIdent(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Ident
}

// Span is a half-open byte range within a single source file, plus the
// 1-based line/column of its start, used for error messages and as the
// AST's side-table payload (spec §3.3).
type Span struct {
	Start, End int // byte offsets, [Start, End)
	Line, Col  int
}

// Token is one lexical token: its kind, the literal value (for
// Int/Float/Str variants), and its span.
type Token struct {
	Kind    Kind
	Lexeme  string
	Literal interface{} // int64, float64, or string depending on Kind; int indent width for Whitespace
	Span    Span
}
