package dns

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	Register("fake-test", func(_ logr.Logger, settings map[string]string) (Provider, error) {
		return newFakeProvider(map[string]string{settings["domain"]: "z1"}), nil
	})

	assert.Contains(t, Registered(), "fake-test")

	p, err := NewProvider("fake-test", logr.Discard(), map[string]string{"domain": "example.com"})
	require.NoError(t, err)
	id, err := p.ZoneID(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "z1", id)

	_, err = NewProvider("nope", logr.Discard(), nil)
	assert.ErrorContains(t, err, "unsupported DNS provider")

	assert.Panics(t, func() {
		Register("fake-test", nil)
	})
}
