// Package keypool implements the thread-safe credential/model rotation pool
// with failure-driven decommissioning.
package keypool

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sevigo/coderag/internal/telemetry"
)

// FailThreshold is the fail_count above which a key is decommissioned.
const FailThreshold = 2

var defaultModels = []string{"default"}

type keyState struct {
	credential string
	active     bool
	failCount  int
}

// Config is the recognized shape of a project's keys.json. Unknown
// top-level keys are detected by the loader and logged, never surfaced
// here.
type Config struct {
	Keys      []string `json:"keys"`
	Models    []string `json:"models,omitempty"`
	Primary   string   `json:"primary,omitempty"`
	Secondary string   `json:"secondary,omitempty"`
	Serper    string   `json:"serper,omitempty"`
}

var recognizedKeys = map[string]bool{
	"keys": true, "models": true, "primary": true, "secondary": true, "serper": true,
}

// DecodeConfig parses raw into a Config, returning the set of unrecognized
// top-level keys alongside it so the caller can log and discard them per
// Design Note §9 ("unknown keys are logged and ignored").
func DecodeConfig(raw []byte) (Config, []string, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("keypool: decode config: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Config{}, nil, fmt.Errorf("keypool: decode config fields: %w", err)
	}
	var unknown []string
	for k := range fields {
		if !recognizedKeys[k] {
			unknown = append(unknown, k)
		}
	}
	return cfg, unknown, nil
}

// Pool rotates credentials and model ids with atomic cursors. Reads run
// concurrently under a shared lock; reload and mutation take the exclusive
// lock.
type Pool struct {
	mu       sync.RWMutex
	keys     []*keyState
	models   []string
	keyIdx   atomic.Int64
	modelIdx atomic.Int64

	// Telemetry, if set, counts every key/model rotation.
	Telemetry *telemetry.Sink
}

// New builds a pool from a Config, applying the fallback chain:
// models -> primary+secondary -> built-in defaults.
func New(cfg Config) (*Pool, error) {
	if len(cfg.Keys) == 0 {
		return nil, fmt.Errorf("keypool: at least one key is required")
	}

	models := cfg.Models
	if len(models) == 0 {
		if cfg.Primary != "" {
			models = append(models, cfg.Primary)
		}
		if cfg.Secondary != "" {
			models = append(models, cfg.Secondary)
		}
	}
	if len(models) == 0 {
		models = append([]string(nil), defaultModels...)
	}

	p := &Pool{models: models}
	for _, k := range cfg.Keys {
		p.keys = append(p.keys, &keyState{credential: k, active: true})
	}
	return p, nil
}

// Current returns the current (credential, model-id) pair, reducing both
// cursors modulo pool size.
func (p *Pool) Current() (credential, model string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ki := int(p.keyIdx.Load()) % len(p.keys)
	mi := int(p.modelIdx.Load()) % len(p.models)
	return p.keys[ki].credential, p.models[mi]
}

// RotateKey advances the key cursor by one, modulo pool size. It never
// skips inactive keys; the caller's retry policy decides how to react to an
// inactive credential.
func (p *Pool) RotateKey() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := int64(len(p.keys))
	p.keyIdx.Store((p.keyIdx.Load() + 1) % n)
	if p.Telemetry != nil {
		p.Telemetry.KeyRotations.Inc()
	}
}

// RotateModel advances the model cursor and resets the key cursor to 0,
// giving the new model's freshest-quota key first.
func (p *Pool) RotateModel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := int64(len(p.models))
	p.modelIdx.Store((p.modelIdx.Load() + 1) % n)
	p.keyIdx.Store(0)
	if p.Telemetry != nil {
		p.Telemetry.KeyRotations.Inc()
	}
}

// ReportRateLimit increments the current key's fail count and decommissions
// it once the count exceeds FailThreshold.
func (p *Pool) ReportRateLimit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	ki := int(p.keyIdx.Load()) % len(p.keys)
	k := p.keys[ki]
	k.failCount++
	if k.failCount > FailThreshold {
		k.active = false
	}
}

// IsActive reports whether the credential at the current key cursor is
// active.
func (p *Pool) IsActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ki := int(p.keyIdx.Load()) % len(p.keys)
	return p.keys[ki].active
}

// Reload replaces the pool's keys and models under the exclusive lock,
// resetting both cursors. Existing fail counters are discarded: a reload
// represents a fresh configuration, not an incremental patch.
func (p *Pool) Reload(cfg Config) error {
	fresh, err := New(cfg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = fresh.keys
	p.models = fresh.models
	p.keyIdx.Store(0)
	p.modelIdx.Store(0)
	return nil
}

// Size returns the number of configured keys and models.
func (p *Pool) Size() (keys, models int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys), len(p.models)
}
