package orchestrator

import (
	"context"
	"testing"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/retrieval"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/coderag/mocks"
)

func TestAsk_UsesRetrieverExactlyOnceOnCacheMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().
		Retrieve(gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "ctx from mock"}).
		Times(1)

	c := cache.NewAnswerCache()
	gen := &fakeGenerator{responses: []string{"the answer"}}
	o := New(c, &fakeEmbedder{}, gen, retriever)

	result, err := o.Ask(context.Background(), "what is bar?", AskOptions{})
	require.NoError(t, err)
	require.Equal(t, "the answer", result.Text)

	// a second call against the same question must hit the answer cache
	// and must not call the retriever again.
	_, err = o.Ask(context.Background(), "what is bar?", AskOptions{})
	require.NoError(t, err)
}
