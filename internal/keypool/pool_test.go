package keypool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RotationS5(t *testing.T) {
	p, err := New(Config{Keys: []string{"k1", "k2", "k3"}, Models: []string{"m1"}})
	require.NoError(t, err)

	cred, _ := p.Current()
	assert.Equal(t, "k1", cred)

	p.ReportRateLimit()
	p.ReportRateLimit()
	p.ReportRateLimit()
	assert.False(t, p.IsActive())

	p.RotateKey()
	cred, _ = p.Current()
	assert.Equal(t, "k2", cred)
}

func TestPool_RotateModelResetsKeyCursor(t *testing.T) {
	p, err := New(Config{Keys: []string{"k1", "k2"}, Models: []string{"m1", "m2"}})
	require.NoError(t, err)

	p.RotateKey()
	cred, model := p.Current()
	assert.Equal(t, "k2", cred)
	assert.Equal(t, "m1", model)

	p.RotateModel()
	cred, model = p.Current()
	assert.Equal(t, "k1", cred)
	assert.Equal(t, "m2", model)
}

func TestPool_ModelsFallbackToPrimarySecondary(t *testing.T) {
	p, err := New(Config{Keys: []string{"k1"}, Primary: "p", Secondary: "s"})
	require.NoError(t, err)
	_, models := p.Size()
	assert.Equal(t, 2, models)
}

func TestPool_ModelsFallbackToDefaults(t *testing.T) {
	p, err := New(Config{Keys: []string{"k1"}})
	require.NoError(t, err)
	_, m := p.Current()
	assert.Equal(t, "default", m)
}

func TestPool_RequiresAtLeastOneKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestDecodeConfig_UnknownKeysReported(t *testing.T) {
	raw := []byte(`{"keys":["k1"],"bogus":true}`)
	cfg, unknown, err := DecodeConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, cfg.Keys)
	assert.Equal(t, []string{"bogus"}, unknown)
}
