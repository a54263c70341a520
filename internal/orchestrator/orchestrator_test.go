package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	return []float32{1, 2, 3}, nil
}

type fakeGenerator struct {
	responses []string
	i         int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (core.GenerateResult, error) {
	r := f.responses[f.i]
	f.i++
	return core.GenerateResult{Text: r, OK: true}, nil
}

type fakeRetriever struct {
	result retrieval.Result
}

func (f *fakeRetriever) Retrieve(queryEmbedding []float32, opts retrieval.Options) retrieval.Result {
	return f.result
}

func TestAsk_CacheHitSkipsRetrieval(t *testing.T) {
	c := cache.NewAnswerCache()
	c.Set("what is foo?", "cached answer")
	o := New(c, &fakeEmbedder{}, &fakeGenerator{}, &fakeRetriever{})

	result, err := o.Ask(context.Background(), "what is foo?", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cached answer", result.Text)
}

func TestAsk_CacheMissRetrievesAndGenerates(t *testing.T) {
	c := cache.NewAnswerCache()
	gen := &fakeGenerator{responses: []string{"the answer"}}
	node := core.CodeNode{ID: "n1", Name: "Foo", Kind: core.NodeFunction, FilePath: "a.py", StartLine: 1, EndLine: 3}
	o := New(c, &fakeEmbedder{}, gen, &fakeRetriever{result: retrieval.Result{Context: "ctx", Nodes: []core.CodeNode{node}}})

	result, err := o.Ask(context.Background(), "what is foo?", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Text)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "n1", result.Nodes[0].ID)

	cached, ok := c.Get("what is foo?")
	assert.True(t, ok)
	assert.Equal(t, "the answer", cached)
}

func TestCandidates_ReturnsRetrievedNodesWithoutGenerating(t *testing.T) {
	c := cache.NewAnswerCache()
	node := core.CodeNode{ID: "n1", Name: "Foo", Kind: core.NodeFunction, FilePath: "a.py", StartLine: 1, EndLine: 3}
	gen := &fakeGenerator{responses: []string{"should not be used"}}
	o := New(c, &fakeEmbedder{}, gen, &fakeRetriever{result: retrieval.Result{Context: "ctx", Nodes: []core.CodeNode{node}}})

	nodes, err := o.Candidates(context.Background(), "what is foo?", AskOptions{})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "n1", nodes[0].ID)
	assert.Equal(t, 0, gen.i)
}

func TestAsk_HyDEDraftsBeforeEmbedding(t *testing.T) {
	c := cache.NewAnswerCache()
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{responses: []string{"hyde draft", "final answer"}}
	o := New(c, emb, gen, &fakeRetriever{})

	_, err := o.Ask(context.Background(), "what is foo?", AskOptions{UseHyDE: true})
	require.NoError(t, err)
	require.Len(t, emb.calls, 1)
	assert.Equal(t, "hyde draft", emb.calls[0])
}

func TestDispatcher_RunsQueuedJob(t *testing.T) {
	d := NewDispatcher(1, discardLogger())
	defer d.Stop()

	done := make(chan struct{})
	job := &SyncJob{
		Sync: func(ctx context.Context) (core.SyncResult, error) {
			return core.SyncResult{Updated: 1}, nil
		},
		Result: func(r core.SyncResult, err error) {
			close(done)
		},
	}
	require.NoError(t, d.Dispatch(context.Background(), job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run in time")
	}
}
