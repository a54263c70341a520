package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrie_IncludeOverridesIgnore(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("A/B", Ignore))
	require.NoError(t, tr.Insert("A/B/C", Include))

	assert.Equal(t, Ignore, tr.Classify("A/B"))
	assert.Equal(t, Include, tr.Classify("A/B/C"))
}

func TestTrie_DeepestMatchWins(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("build", Ignore))
	require.NoError(t, tr.Insert("build/keep.py", Include))

	assert.Equal(t, Ignore, tr.Classify("build/skip.py"))
	assert.Equal(t, Include, tr.Classify("build/keep.py"))
}

func TestTrie_DeeperIgnoreOverridesShallowerInclude(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("src", Include))
	require.NoError(t, tr.Insert("src/generated", Ignore))

	assert.Equal(t, Include, tr.Classify("src/main.go"))
	assert.Equal(t, Ignore, tr.Classify("src/generated/file.go"))
}

func TestTrie_NoRuleIsNone(t *testing.T) {
	tr := New()
	assert.Equal(t, None, tr.Classify("src/main.go"))
}

func TestTrie_WalkStopsAtMissingChild(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("vendor", Ignore))
	assert.Equal(t, Ignore, tr.Classify("vendor/pkg/file.go"))
}

func TestTrie_GlobRule(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("**/*_test.go", Ignore))
	assert.Equal(t, Ignore, tr.Classify("internal/foo/bar_test.go"))
	assert.Equal(t, None, tr.Classify("internal/foo/bar.go"))
}

func TestBuildFromRules_S3IncludeOverride(t *testing.T) {
	tr := BuildFromRules([]string{"build"}, []string{"build/keep.py"})
	assert.Equal(t, Ignore, tr.Classify("build/skip.py"))
	assert.Equal(t, Include, tr.Classify("build/keep.py"))
}
