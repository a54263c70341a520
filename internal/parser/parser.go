// Package parser implements the Code Parser (C5): extraction of typed
// CodeNodes from source text, and syntax validation of proposed edits.
package parser

import (
	"bufio"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sevigo/coderag/internal/core"
)

// ContentCap is the per-node content length used when formatting a node for
// embedding (spec.md §4.5: "first 800 characters").
const ContentCap = 800

// SyntaxValidator is the narrow boundary to the concrete language-parser
// library that validates proposed edits, kept external per spec.md §1's
// explicit Non-goal. Registry is the default implementation's hook for
// goframe's tree-sitter-backed parsers; a nil Registry falls back to the
// heuristic brace-balance check.
type SyntaxValidator interface {
	// Validate reports whether content is syntactically valid for language.
	// A SyntaxValidator that does not recognize language returns
	// recognized == false (GoframeValidator returns (false, false)); the
	// Extractor then ignores valid and uses its brace-balance fallback.
	Validate(language, content string) (valid bool, recognized bool)
}

// Extractor implements extract() and validate(). Extraction always uses the
// keyword + brace-balance heuristic splitter; validation asks the optional
// SyntaxValidator first and falls back to brace-balance checking when it is
// nil or does not recognize the language.
type Extractor struct {
	Validator SyntaxValidator
}

// New returns an Extractor. validator may be nil.
func New(validator SyntaxValidator) *Extractor {
	return &Extractor{Validator: validator}
}

var definitionPattern = regexp.MustCompile(
	`^\s*(?:(?:public|private|protected|static|async|export|func|function|def|class|struct|interface|type|fn)\s+)+([A-Za-z_][A-Za-z0-9_]*)`,
)

// Extract splits content into a file-level node plus one node per
// top-level definition found by a keyword + brace-balance heuristic. Each
// node's id is derived from filePath and its qualified name.
func (e *Extractor) Extract(filePath, content string) []core.CodeNode {
	var nodes []core.CodeNode
	if content == "" {
		return nodes
	}

	fileNode := core.CodeNode{
		ID:       core.MakeNodeID(filePath, ""),
		Name:     filepath.Base(filePath),
		Kind:     core.NodeFile,
		FilePath: filePath,
		Content:  capContent(content),
	}
	nodes = append(nodes, fileNode)
	nodes = append(nodes, e.extractDefinitions(filePath, content)...)
	return nodes
}

func (e *Extractor) extractDefinitions(filePath, content string) []core.CodeNode {
	lines := strings.Split(content, "\n")
	var nodes []core.CodeNode

	i := 0
	for i < len(lines) {
		line := lines[i]
		m := definitionPattern.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}
		name := m[1]
		start := i
		end := findDefinitionEnd(lines, i)
		span := strings.Join(lines[start:end+1], "\n")

		kind := core.NodeFunction
		if strings.Contains(line, "class ") || strings.Contains(line, "struct ") || strings.Contains(line, "interface ") {
			kind = core.NodeClass
		}

		nodes = append(nodes, core.CodeNode{
			ID:        core.MakeNodeID(filePath, name),
			Name:      name,
			Kind:      kind,
			FilePath:  filePath,
			Content:   capContent(span),
			StartLine: start + 1,
			EndLine:   end + 1,
		})
		i = end + 1
	}
	return nodes
}

// findDefinitionEnd walks forward from a definition's opening line until
// its brace (or indentation, for brace-less languages) balances back to
// zero, returning the index of the last line belonging to the definition.
func findDefinitionEnd(lines []string, start int) int {
	depth := 0
	seenBrace := false
	baseIndent := indentOf(lines[start])

	for i := start; i < len(lines); i++ {
		opens := strings.Count(lines[i], "{")
		closes := strings.Count(lines[i], "}")
		depth += opens - closes
		if opens > 0 {
			seenBrace = true
		}
		if seenBrace && depth <= 0 && i > start {
			return i
		}
		if !seenBrace && i > start {
			// indentation-delimited body (e.g. Python): stop at the first
			// line that returns to the definition's own indentation level
			// and is non-blank.
			trimmed := strings.TrimSpace(lines[i])
			if trimmed != "" && indentOf(lines[i]) <= baseIndent {
				return i - 1
			}
		}
	}
	return len(lines) - 1
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

func capContent(s string) string {
	n := 0
	for i := range s {
		if n == ContentCap {
			return s[:i]
		}
		n++
	}
	return s
}

// Validate reports whether content is syntactically valid. Content shorter
// than 10 bytes is always invalid. When the SyntaxValidator is nil or does
// not recognize language, the brace-balance heuristic decides; an
// unrecognized language is not treated as valid on that ground alone.
func (e *Extractor) Validate(language, content string) bool {
	if len(content) < 10 {
		return false
	}
	if e.Validator != nil {
		if valid, recognized := e.Validator.Validate(language, content); recognized {
			return valid
		}
	}
	return braceBalanceValid(content)
}

// braceBalanceValid is the heuristic fallback used when no concrete
// validator recognizes the language: every opened bracket must close, in
// order, accounting for quoted strings so that a brace inside a string
// literal is not mistaken for code structure.
func braceBalanceValid(content string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	openers := map[rune]bool{'(': true, '[': true, '{': true}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	inString := false
	var quote rune
	for scanner.Scan() {
		line := scanner.Text()
		escaped := false
		for _, r := range line {
			if inString {
				if escaped {
					escaped = false
					continue
				}
				if r == '\\' {
					escaped = true
					continue
				}
				if r == quote {
					inString = false
				}
				continue
			}
			switch {
			case r == '"' || r == '\'' || r == '`':
				inString = true
				quote = r
			case openers[r]:
				stack = append(stack, r)
			case pairs[r] != 0:
				if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
					return false
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	return len(stack) == 0
}
