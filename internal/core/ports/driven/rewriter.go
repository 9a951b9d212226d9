package driven

import "context"

// QueryRewriter produces alternative phrasings of a user query.
// This is an optional service - when nil, retrieval searches the original query only.
type QueryRewriter interface {
	// Rewrite returns reformulations of query. The result may be empty.
	Rewrite(ctx context.Context, query string) ([]string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
