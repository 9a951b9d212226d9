package semantic

import "github.com/custodia-labs/clause/internal/normalisers/textclean"

// MergeOrphans folds chunks with fewer than minWords words into the
// previous emitted chunk. Short chunks that precede every full chunk are
// prepended to the first full one; if none exists they are emitted together.
func MergeOrphans(chunks []string, minWords int) []string {
	if len(chunks) == 0 {
		return chunks
	}

	merged := make([]string, 0, len(chunks))
	leading := ""
	for _, chunk := range chunks {
		if textclean.WordCount(chunk) < minWords {
			if len(merged) > 0 {
				merged[len(merged)-1] += " " + chunk
			} else {
				leading = join(leading, chunk)
			}
			continue
		}
		if leading != "" {
			chunk = leading + " " + chunk
			leading = ""
		}
		merged = append(merged, chunk)
	}

	if leading != "" {
		merged = append(merged, leading)
	}
	return merged
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
