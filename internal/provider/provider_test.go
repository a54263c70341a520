package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/keypool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls      int
	failUntil  int
	terminal   bool
	returnVec  []float32
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, model, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failUntil {
		if f.terminal {
			return nil, &Failure{Transient: false, Err: errors.New("bad request")}
		}
		return nil, &Failure{Transient: true, Err: errors.New("429 rate limited")}
	}
	return f.returnVec, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.returnVec
	}
	return out, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, model, prompt string) (core.GenerateResult, error) {
	return core.GenerateResult{Text: "answer", OK: true}, nil
}

func newPool(t *testing.T, keys ...string) *keypool.Pool {
	t.Helper()
	p, err := keypool.New(keypool.Config{Keys: keys, Models: []string{"m1"}})
	require.NoError(t, err)
	return p
}

func TestClient_Embed_CacheHitBypassesProvider(t *testing.T) {
	c := cache.New[[]float32](10, cache.EmbeddingTTL)
	c.Set("hello", []float32{1, 2, 3})
	fe := &fakeEmbedder{returnVec: []float32{9, 9, 9}}
	client := New(newPool(t, "k1"), fe, fakeGenerator{}, c)

	v, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, 0, fe.calls)
}

func TestClient_Embed_RotatesOnTransientFailure(t *testing.T) {
	fe := &fakeEmbedder{failUntil: 1, returnVec: []float32{1}}
	client := New(newPool(t, "k1", "k2"), fe, fakeGenerator{}, nil)

	v, err := client.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
}

func TestClient_Embed_TerminalFailureSurfacesImmediately(t *testing.T) {
	fe := &fakeEmbedder{failUntil: 1, terminal: true}
	client := New(newPool(t, "k1", "k2"), fe, fakeGenerator{}, nil)

	_, err := client.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, core.KindProviderTerminal, core.KindOf(err))
}

func TestClient_Generate(t *testing.T) {
	client := New(newPool(t, "k1"), &fakeEmbedder{}, fakeGenerator{}, nil)
	res, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Text)
}

func TestClient_EmbedBatch_PreservesOrderAndUsesCache(t *testing.T) {
	c := cache.New[[]float32](10, cache.EmbeddingTTL)
	c.Set("a", []float32{1})
	fe := &fakeEmbedder{returnVec: []float32{2}}
	client := New(newPool(t, "k1"), fe, fakeGenerator{}, c)

	out, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {2}}, out)
}

func TestTruncateUTF8_CutsOnRuneBoundary(t *testing.T) {
	s := "héllo" // 'é' is 2 bytes
	out := TruncateUTF8(s, 2)
	assert.Equal(t, "h", out)
}
