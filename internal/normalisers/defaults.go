package normalisers

import (
	"github.com/custodia-labs/clause/internal/normalisers/html"
	"github.com/custodia-labs/clause/internal/normalisers/markdown"
	"github.com/custodia-labs/clause/internal/normalisers/plaintext"
)

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	return r
}
