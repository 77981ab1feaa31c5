package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tskit/internal/ports"
)

type stubProvider struct{ err error }

func (s stubProvider) Translate(context.Context, ports.Segment, ports.TranslateParams) (ports.TranslateResult, error) {
	return ports.TranslateResult{}, nil
}

func (s stubProvider) ListModels(context.Context) ([]ports.ModelInfo, error) { return nil, s.err }

func (s stubProvider) Test(context.Context) error { return s.err }

func TestRegistry(t *testing.T) {
	r := New()
	r.Register("remote", stubProvider{err: errors.New("connection refused")})
	r.Register("local", stubProvider{})
	r.Register("broken", nil)

	assert.Equal(t, []string{"broken", "local", "remote"}, r.Names())
	_, ok := r.Get("missing")
	assert.False(t, ok)

	health := r.HealthCheck(context.Background())
	assert.NoError(t, health["local"])
	assert.EqualError(t, health["remote"], "connection refused")
	assert.Error(t, health["broken"])
}
