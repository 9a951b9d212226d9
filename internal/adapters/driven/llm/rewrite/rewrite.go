// Package rewrite holds the prompt and response handling shared by the
// query rewriter adapters.
package rewrite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// DefaultMaxQueries caps reformulations when no limit is configured.
const DefaultMaxQueries = 3

// DefaultPrompt is used when no prompt store is configured.
const DefaultPrompt = `You help a lawyer search a contract.
Rewrite the search query below into at most %[1]d alternative queries that
use the wording a contract would use: defined terms, clause titles and
synonyms. Keep each query short.

Respond with JSON only, in the form {"queries": ["...", "..."]}.

Query: %[2]s`

// ResponseSchema is the JSON schema a rewriter response must satisfy.
const ResponseSchema = `{
  "type": "object",
  "required": ["queries"],
  "properties": {
    "queries": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

var (
	schemaLoader = gojsonschema.NewStringLoader(ResponseSchema)
	listMarker   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
	codeFence    = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// Prompt renders the rewrite prompt, preferring the store's template.
func Prompt(store driven.PromptStore, query string, maxQueries int) string {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	template := DefaultPrompt
	if store != nil {
		if custom, err := store.Load(driven.PromptQueryRewrite); err == nil && strings.TrimSpace(custom) != "" {
			template = custom
		}
	}
	return fmt.Sprintf(template, maxQueries, query)
}

type response struct {
	Queries []string `json:"queries"`
}

// Parse extracts reformulations from a model reply. JSON replies must
// match ResponseSchema; anything else is read as one query per line with
// list markers stripped. At most maxQueries results are returned.
func Parse(reply string, maxQueries int) ([]string, error) {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	text := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var queries []string
	if strings.HasPrefix(text, "{") {
		parsed, err := parseJSON(text)
		if err != nil {
			return nil, err
		}
		queries = parsed
	} else {
		queries = parseLines(text)
	}

	out := make([]string, 0, min(len(queries), maxQueries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxQueries {
			break
		}
	}
	return out, nil
}

func parseJSON(text string) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("rewrite response: %w: %w", domain.ErrRewriterUnavailable, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("rewrite response failed validation: %s: %w",
			strings.Join(details, "; "), domain.ErrRewriterUnavailable)
	}

	var resp response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("rewrite response: %w: %w", domain.ErrRewriterUnavailable, err)
	}
	return resp.Queries, nil
}

func parseLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
