package detect

import (
	"context"
	"fmt"
	"log"
	"time"
)

//go:generate moq --out mocks/embedder.go --pkg mocks --skip-ensure --with-resets . Embedder

// Embedder computes vector representations for a batch of texts. Implementations
// must be deterministic for identical input within a single model version.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Detector matches tokens of free text against an embedded badword corpus,
// thread-safe after construction as the index is read-only.
type Detector struct {
	Config
	index    *index
	gen      *variantGenerator
	embedder Embedder
}

// Config is a set of parameters for Detector.
type Config struct {
	Threshold   float64 // similarity cutoff for a corpus match, 0.0 - 1.0
	MaxTokens   int     // maximum number of tokens evaluated per request
	MaxVariants int     // cap of adversarial variants generated per word
	Seed        int64   // seed for variant generation randomness, 0 picks the current time
}

// Request is a single detection request.
type Request struct {
	Text            string             `json:"text"`
	Threshold       *float64           `json:"threshold,omitempty"`        // overrides Config.Threshold, nil keeps the default so a literal 0 stays requestable
	CustomThreshold map[string]float64 `json:"custom_threshold,omitempty"` // per-category threshold override
	IncludeVariants *bool              `json:"include_variants,omitempty"` // nil means true
	Block           []string           `json:"block,omitempty"`            // tokens flagged unconditionally
	MaxTokens       int                `json:"max_tokens,omitempty"`       // overrides Config.MaxTokens if set
	Languages       []string           `json:"languages,omitempty"`        // allow-list of corpus languages
	OnlyFlagged     bool               `json:"return_only_flagged,omitempty"`
}

// Verdict is a per-token detection outcome. For corpus matches the matched
// badword metadata is merged in.
type Verdict struct {
	Flagged  bool   `json:"flagged"`
	Level    int    `json:"profanity_level"`
	Category string `json:"profanity_category,omitempty"`
	Language string `json:"language,omitempty"`
	Word     string `json:"matched_word,omitempty"`
}

// Result is a detection outcome for a whole text. Tokens keeps first-seen
// order of the verdict keys so output is deterministic.
type Result struct {
	Tokens   []string           `json:"tokens"`
	Verdicts map[string]Verdict `json:"verdicts"`
	Elapsed  float64            `json:"detection_time_seconds,omitempty"`
}

// NewDetector builds a detector with the given config, badword corpus and
// embedding capability. The corpus index build is all-or-nothing, a partial
// corpus never results in a working detector.
func NewDetector(ctx context.Context, cfg Config, entries []Entry, embedder Embedder) (*Detector, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.72
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 200
	}
	if cfg.MaxVariants == 0 {
		cfg.MaxVariants = 10
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	gen := &variantGenerator{seed: cfg.Seed}
	ix, err := newIndex(ctx, entries, embedder, gen, cfg.MaxVariants)
	if err != nil {
		return nil, fmt.Errorf("can't build corpus index: %w", err)
	}
	log.Printf("[INFO] corpus index built: %d badwords, %d embedded variants", len(ix.entries), ix.size())

	return &Detector{Config: cfg, index: ix, gen: gen, embedder: embedder}, nil
}

// CorpusSize returns the number of badwords and embedded variant rows in the index.
func (d *Detector) CorpusSize() (words, variants int) {
	return len(d.index.entries), d.index.size()
}

// Detect tokenizes the text, expands each token to its adversarial variants,
// matches every variant against the corpus index and applies the
// threshold/block/language policy to produce per-token verdicts.
func (d *Detector) Detect(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = d.MaxTokens
	}
	tokens := splitText(req.Text)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	res := Result{Verdicts: map[string]Verdict{}}
	if len(tokens) == 0 {
		return res, nil // empty tokenization yields an empty result without the timing field
	}

	threshold := d.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	includeVariants := true
	if req.IncludeVariants != nil {
		includeVariants = *req.IncludeVariants
	}

	block := map[string]struct{}{}
	for _, b := range req.Block {
		if c := Canonicalize(b); c != "" {
			block[c] = struct{}{}
		}
	}
	var languages map[string]struct{}
	if len(req.Languages) > 0 {
		languages = map[string]struct{}{}
		for _, l := range req.Languages {
			languages[l] = struct{}{}
		}
	}

	// expand all tokens first so the embedding runs as a single batch
	type span struct{ from, to int }
	texts := []string{}
	spans := make([]span, len(tokens))
	for i, tok := range tokens {
		variants := []string{tok}
		if includeVariants {
			if vs := d.gen.generate(tok, d.MaxVariants); len(vs) > 0 {
				variants = vs
			}
		}
		spans[i] = span{from: len(texts), to: len(texts) + len(variants)}
		texts = append(texts, variants...)
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("can't embed token variants: %w", err)
	}
	if len(vectors) != len(texts) {
		return Result{}, fmt.Errorf("embedder returned %d vectors for %d variants", len(vectors), len(texts))
	}

	for i, tok := range tokens {
		verdict, flagged := d.evaluate(tok, vectors[spans[i].from:spans[i].to], block, threshold, req.CustomThreshold, languages)
		if !flagged && req.OnlyFlagged {
			continue
		}
		res.Tokens = append(res.Tokens, tok)
		res.Verdicts[tok] = verdict
	}

	res.Elapsed = time.Since(start).Seconds()
	return res, nil
}

// evaluate applies the match policy for a single token. Variants are checked
// in generation order and the first qualifying one wins. A language mismatch
// disqualifies the candidate only, not the whole token.
func (d *Detector) evaluate(token string, vectors [][]float32, block map[string]struct{},
	threshold float64, custom map[string]float64, languages map[string]struct{}) (Verdict, bool) {

	if _, ok := block[token]; ok {
		// explicit block overrides everything, independent of similarity
		return Verdict{Flagged: true, Level: 1, Category: "blocked", Language: "unknown"}, true
	}

	for _, vec := range vectors {
		word, score := d.index.bestMatch(vec)
		if word == "" {
			continue
		}
		entry := d.index.entries[word]

		effective := threshold
		if t, ok := custom[entry.Category]; ok {
			effective = t
		}
		if score <= effective {
			continue
		}
		if languages != nil {
			if _, ok := languages[entry.Language]; !ok {
				continue
			}
		}
		return Verdict{Flagged: true, Level: entry.Level, Category: entry.Category,
			Language: entry.Language, Word: entry.Word}, true
	}

	return Verdict{Flagged: false}, false
}
