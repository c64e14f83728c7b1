package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-whitz/wzdetect/lib/detect/mocks"
)

func floatPtr(v float64) *float64 { return &v }

func testEntries() []Entry {
	return []Entry{
		{Word: "shit", Category: "profanity", Language: "en", Level: 2},
		{Word: "idiot", Category: "abuse", Language: "en", Level: 1},
		{Word: "puta", Category: "profanity", Language: "es", Level: 2},
	}
}

func testDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(context.Background(), Config{Seed: 42}, testEntries(), histEmbedder())
	require.NoError(t, err)
	return d
}

func TestNewDetector(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		d := testDetector(t)
		assert.Equal(t, 0.72, d.Threshold)
		assert.Equal(t, 200, d.MaxTokens)
		assert.Equal(t, 10, d.MaxVariants)
		words, variants := d.CorpusSize()
		assert.Equal(t, 3, words)
		assert.GreaterOrEqual(t, variants, words, "every word embeds at least its canonical form")
	})

	t.Run("embedder required", func(t *testing.T) {
		_, err := NewDetector(context.Background(), Config{}, testEntries(), nil)
		assert.Error(t, err)
	})

	t.Run("bad corpus rejected", func(t *testing.T) {
		_, err := NewDetector(context.Background(), Config{Seed: 42}, []Entry{}, histEmbedder())
		assert.Error(t, err)
	})
}

func TestDetect(t *testing.T) {
	ctx := context.Background()
	d := testDetector(t)

	t.Run("obfuscated profanity flagged", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "you are a sh1t person"})
		require.NoError(t, err)
		assert.Equal(t, []string{"you", "are", "a", "shit", "person"}, res.Tokens)

		v := res.Verdicts["shit"]
		assert.True(t, v.Flagged)
		assert.Equal(t, "profanity", v.Category)
		assert.Equal(t, "en", v.Language)
		assert.Equal(t, "shit", v.Word)
		assert.Equal(t, 2, v.Level)

		assert.False(t, res.Verdicts["you"].Flagged)
		assert.False(t, res.Verdicts["person"].Flagged)
		assert.Greater(t, res.Elapsed, 0.0)
	})

	t.Run("empty input", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "   \n\t  "})
		require.NoError(t, err)
		assert.Empty(t, res.Tokens)
		assert.Empty(t, res.Verdicts)
		assert.Zero(t, res.Elapsed, "no timing reported for empty tokenization")
	})

	t.Run("block overrides similarity", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "hello world", Block: []string{"hello"}})
		require.NoError(t, err)
		v := res.Verdicts["hello"]
		assert.True(t, v.Flagged)
		assert.Equal(t, "blocked", v.Category)
		assert.Equal(t, 1, v.Level)
		assert.Equal(t, "unknown", v.Language)
		assert.False(t, res.Verdicts["world"].Flagged)
	})

	t.Run("block entries canonicalized", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "hello world", Block: []string{"H3LL0"}})
		require.NoError(t, err)
		assert.True(t, res.Verdicts["hello"].Flagged, "obfuscated block entry matches canonical token")
	})

	t.Run("only flagged subset", func(t *testing.T) {
		full, err := d.Detect(ctx, Request{Text: "you are a sh1t person"})
		require.NoError(t, err)
		flagged, err := d.Detect(ctx, Request{Text: "you are a sh1t person", OnlyFlagged: true})
		require.NoError(t, err)

		assert.Equal(t, []string{"shit"}, flagged.Tokens)
		for tok, v := range flagged.Verdicts {
			assert.True(t, v.Flagged)
			assert.Equal(t, full.Verdicts[tok], v, "verdict identical to the unfiltered run")
		}
	})

	t.Run("language allow-list", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "you are a sh1t person", Languages: []string{"es"}})
		require.NoError(t, err)
		assert.False(t, res.Verdicts["shit"].Flagged, "en entry disqualified by es-only allow-list")

		res, err = d.Detect(ctx, Request{Text: "you are a sh1t person", Languages: []string{"en", "es"}})
		require.NoError(t, err)
		assert.True(t, res.Verdicts["shit"].Flagged)
	})

	t.Run("custom category threshold", func(t *testing.T) {
		// exact match scores 1.0, a per-category threshold above it suppresses the hit
		res, err := d.Detect(ctx, Request{Text: "sh1t", CustomThreshold: map[string]float64{"profanity": 1.1}})
		require.NoError(t, err)
		assert.False(t, res.Verdicts["shit"].Flagged)

		res, err = d.Detect(ctx, Request{Text: "sh1t", Threshold: floatPtr(1.5), CustomThreshold: map[string]float64{"profanity": 0.9}})
		require.NoError(t, err)
		assert.True(t, res.Verdicts["shit"].Flagged, "custom threshold wins over the request threshold")
	})

	t.Run("explicit zero threshold is honored", func(t *testing.T) {
		// zero means "flag on any positive similarity", not "use the default"
		res, err := d.Detect(ctx, Request{Text: "you", Threshold: floatPtr(0)})
		require.NoError(t, err)
		assert.True(t, res.Verdicts["you"].Flagged)

		res, err = d.Detect(ctx, Request{Text: "you"})
		require.NoError(t, err)
		assert.False(t, res.Verdicts["you"].Flagged, "nil threshold falls back to the default")
	})

	t.Run("raising threshold never flags more", func(t *testing.T) {
		countFlagged := func(res Result) (n int) {
			for _, v := range res.Verdicts {
				if v.Flagged {
					n++
				}
			}
			return n
		}
		low, err := d.Detect(ctx, Request{Text: "you are a sh1t person", Threshold: floatPtr(0.5)})
		require.NoError(t, err)
		high, err := d.Detect(ctx, Request{Text: "you are a sh1t person", Threshold: floatPtr(0.9)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, countFlagged(low), countFlagged(high))
		assert.True(t, high.Verdicts["shit"].Flagged, "exact match survives a 0.9 threshold")
	})

	t.Run("max tokens truncation", func(t *testing.T) {
		res, err := d.Detect(ctx, Request{Text: "you are a sh1t person", MaxTokens: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"you", "are"}, res.Tokens)
	})

	t.Run("variants disabled still exact-matches", func(t *testing.T) {
		off := false
		res, err := d.Detect(ctx, Request{Text: "sh1t", IncludeVariants: &off})
		require.NoError(t, err)
		assert.True(t, res.Verdicts["shit"].Flagged)
	})

	t.Run("deterministic for fixed seed", func(t *testing.T) {
		r1, err := d.Detect(ctx, Request{Text: "you are a sh1t person"})
		require.NoError(t, err)
		r2, err := d.Detect(ctx, Request{Text: "you are a sh1t person"})
		require.NoError(t, err)
		assert.Equal(t, r1.Tokens, r2.Tokens)
		assert.Equal(t, r1.Verdicts, r2.Verdicts)
	})

	t.Run("embedder failure propagated", func(t *testing.T) {
		calls := 0
		flaky := &mocks.EmbedderMock{
			EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				calls++
				if calls > 1 { // first call builds the index, the rest serve requests
					return nil, errors.New("api down")
				}
				return histEmbedder().EmbedFunc(ctx, texts)
			},
		}
		fd, err := NewDetector(ctx, Config{Seed: 42}, testEntries(), flaky)
		require.NoError(t, err)
		_, err = fd.Detect(ctx, Request{Text: "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api down")
	})
}
