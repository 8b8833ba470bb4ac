package dict

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmed/callscore/internal/model"
)

type stubSource struct {
	calls int
	terms []model.DictionaryTerm
	err   error
}

func (s *stubSource) GetTerms(_ context.Context, _, _ string, _ bool) ([]model.DictionaryTerm, error) {
	s.calls++
	return s.terms, s.err
}

func TestCache_CompilesOnce(t *testing.T) {
	src := &stubSource{terms: []model.DictionaryTerm{
		term("complaints", "refund", model.MatchPhrase, 5),
	}}
	c := NewCache(src, 4)

	first, err := c.Get(context.Background(), "complaints", "v1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = c.Get(context.Background(), "complaints", "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestCache_EvictsOldest(t *testing.T) {
	src := &stubSource{}
	c := NewCache(src, 2)

	ctx := context.Background()
	_, err := c.Get(ctx, "complaints", "v1")
	require.NoError(t, err)
	_, err = c.Get(ctx, "complaints", "v2")
	require.NoError(t, err)
	_, err = c.Get(ctx, "risk", "v1")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, src.calls)

	// complaints/v1 was least recently used, so it refetches.
	_, err = c.Get(ctx, "complaints", "v1")
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
}

func TestCache_Invalidate(t *testing.T) {
	src := &stubSource{}
	c := NewCache(src, 4)

	ctx := context.Background()
	_, err := c.Get(ctx, "complaints", "v1")
	require.NoError(t, err)

	c.Invalidate("complaints", "v1")
	_, err = c.Get(ctx, "complaints", "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCache_SourceError(t *testing.T) {
	src := &stubSource{err: eris.New("connection refused")}
	c := NewCache(src, 4)

	_, err := c.Get(context.Background(), "complaints", "v1")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
