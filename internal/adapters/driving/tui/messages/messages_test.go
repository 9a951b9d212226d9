package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewQuery, "query"},
		{ViewPassage, "passage"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestViewType_QueryIsDefault(t *testing.T) {
	var v ViewType

	assert.Equal(t, ViewQuery, v)
}

func TestQueryCompleted_CarriesResultOrError(t *testing.T) {
	ok := QueryCompleted{Result: &domain.RetrievalResult{Query: "q"}}
	failed := QueryCompleted{Err: errors.New("boom")}

	assert.Equal(t, "q", ok.Result.Query)
	assert.NoError(t, ok.Err)
	assert.Nil(t, failed.Result)
	assert.EqualError(t, failed.Err, "boom")
}
