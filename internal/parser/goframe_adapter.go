package parser

import (
	"github.com/sevigo/goframe/parsers"
)

// GoframeValidator backs SyntaxValidator with goframe's tree-sitter-based
// ParserRegistry; only validation uses the registry, node extraction does
// not. A language is "recognized" when the registry resolves a
// parser for it; validity is whatever that parser's own Chunk pass reports.
type GoframeValidator struct {
	Registry parsers.ParserRegistry
}

// NewGoframeValidator wraps a parser registry as a SyntaxValidator.
func NewGoframeValidator(registry parsers.ParserRegistry) *GoframeValidator {
	return &GoframeValidator{Registry: registry}
}

// Validate resolves a parser for language (treated as a pseudo file name so
// the registry can dispatch on extension) and reports whether content
// chunks without error.
func (g *GoframeValidator) Validate(language, content string) (valid bool, recognized bool) {
	if g.Registry == nil {
		return false, false
	}
	fileName := "edit." + language
	p, err := g.Registry.GetParserForFile(fileName, nil)
	if err != nil {
		return false, false
	}
	if _, err := p.Chunk(content, fileName, nil); err != nil {
		return false, true
	}
	return true, true
}
