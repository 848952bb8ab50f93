package data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypash/crypash/internal/model"
)

type stubSource struct {
	meta Metadata
	err  error
}

func (s stubSource) FetchMetadata(context.Context, string) (Metadata, error) {
	return s.meta, s.err
}

func TestChain_EarlierSourceWins(t *testing.T) {
	chain := NewChain(
		stubSource{meta: Metadata{Name: "Apple", PE: model.Known(28)}},
		stubSource{meta: Metadata{Name: "Apple Inc.", PE: model.Known(30), ROE: model.Known(0.9)}},
	)

	meta, err := chain.FetchMetadata(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple", meta.Name)
	assert.Equal(t, 28.0, meta.PE.Value)
	// Gap filled from the fallback.
	require.True(t, meta.ROE.Valid)
	assert.Equal(t, 0.9, meta.ROE.Value)
}

func TestChain_FallbackCoversPrimaryFailure(t *testing.T) {
	chain := NewChain(
		stubSource{err: errors.New("upstream 500")},
		stubSource{meta: Metadata{Name: "Bitcoin", MarketCap: model.Known(1e12)}},
	)

	meta, err := chain.FetchMetadata(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", meta.Name)
}

func TestChain_AllFailReturnsFirstError(t *testing.T) {
	first := errors.New("first failure")
	chain := NewChain(stubSource{err: first}, stubSource{err: errors.New("second")})

	_, err := chain.FetchMetadata(context.Background(), "X")
	assert.ErrorIs(t, err, first)
}

func TestChain_NoSources(t *testing.T) {
	_, err := NewChain().FetchMetadata(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestChain_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(stubSource{meta: Metadata{Name: "x"}})
	_, err := chain.FetchMetadata(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
}
