// Package parse defines the Provider interface for dependency-parse
// backends.
//
// A parse provider segments text into sentences and annotates every token
// with its lemma, part of speech and dependency relation, producing a
// [Document] that downstream analysis can walk as a tree. [Sentence] carries
// the traversal helpers (children, ancestors, right dependents, neighbour)
// so callers never have to reimplement head-index arithmetic.
//
// Implementations must be safe for concurrent use.
package parse

import "context"

// Document is a parsed text: its sentences in order.
type Document struct {
	Sentences []Sentence `json:"sentences"`
}

// Sentence is one sentence with its dependency-annotated tokens.
type Sentence struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
}

// Token is one token within a sentence. Index and Head are sentence-local,
// 0-based; the root token's Head is its own Index.
type Token struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Dep   string `json:"dep"`
	Head  int    `json:"head"`
}

// Provider is the abstraction over a dependency-parse backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Provider interface {
	// Parse runs the named parser model over text and returns the parsed
	// document. An empty text yields a document with no sentences.
	Parse(ctx context.Context, model, text string) (*Document, error)
}

// Children returns the direct dependents of t in token order. The root's
// self-reference is not counted as a dependency.
func (s *Sentence) Children(t Token) []Token {
	var out []Token
	for _, c := range s.Tokens {
		if c.Head == t.Index && c.Index != t.Index {
			out = append(out, c)
		}
	}
	return out
}

// Ancestors returns the chain of heads above t, nearest first, ending at the
// sentence root. A malformed head cycle terminates the walk rather than
// looping forever.
func (s *Sentence) Ancestors(t Token) []Token {
	var out []Token
	seen := map[int]bool{t.Index: true}
	cur := t
	for cur.Head != cur.Index {
		if cur.Head < 0 || cur.Head >= len(s.Tokens) || seen[cur.Head] {
			break
		}
		cur = s.Tokens[cur.Head]
		seen[cur.Index] = true
		out = append(out, cur)
	}
	return out
}

// Rights returns the dependents of t that sit to its right, in token order.
func (s *Sentence) Rights(t Token) []Token {
	var out []Token
	for _, c := range s.Children(t) {
		if c.Index > t.Index {
			out = append(out, c)
		}
	}
	return out
}

// Next returns the token immediately after t, if any.
func (s *Sentence) Next(t Token) (Token, bool) {
	i := t.Index + 1
	if i < 0 || i >= len(s.Tokens) {
		return Token{}, false
	}
	return s.Tokens[i], true
}
