// Package pipeline orchestrates one image upload end to end: validate,
// extract metadata, render each configured variant, and publish the encoded
// buffers to the object store. Validation failure aborts the request before
// any store write; everything after validation is isolated per variant.
package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/imageflow/cache"
	"github.com/leeforge/imageflow/concurrency"
	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/meta"
	"github.com/leeforge/imageflow/policy"
	"github.com/leeforge/imageflow/render"
	"github.com/leeforge/imageflow/storage"
	"github.com/leeforge/imageflow/validate"
)

// DefaultPublishTimeout bounds a single store write so one hanging call
// cannot stall the whole batch.
const DefaultPublishTimeout = 30 * time.Second

// Config tunes the orchestrator.
type Config struct {
	// PublishTimeout is the per-variant store write deadline.
	PublishTimeout time.Duration `mapstructure:"publish-timeout" json:"publishTimeout" default:"30s"`

	// MaxConcurrentRenders bounds simultaneous variant work. Zero means the
	// host CPU count.
	MaxConcurrentRenders int `mapstructure:"max-concurrent-renders" json:"maxConcurrentRenders"`
}

// Pipeline drives validation, rendering, metadata extraction and publishing
// for incoming images. Safe for concurrent use; it holds no per-request
// state.
type Pipeline struct {
	cfg       Config
	table     *policy.Table
	validator *validate.Validator
	extractor *meta.Extractor
	store     storage.Store
	metaCache cache.MetadataCache
	limiter   *concurrency.Limiter
	logger    logging.Logger
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithConfig overrides the orchestrator tuning.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithTable replaces the default policy table.
func WithTable(table *policy.Table) Option {
	return func(p *Pipeline) { p.table = table }
}

// WithValidator replaces the default validator.
func WithValidator(v *validate.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithExtractor replaces the default metadata extractor.
func WithExtractor(e *meta.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithMetadataCache enables metadata memoization by source digest.
func WithMetadataCache(c cache.MetadataCache) Option {
	return func(p *Pipeline) { p.metaCache = c }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a Pipeline publishing to store. A nil store is rejected up
// front with store_unavailable rather than discovered per request.
func New(store storage.Store, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New(errors.KindStoreUnavailable, "object store is not configured")
	}

	p := &Pipeline{
		cfg:   Config{PublishTimeout: DefaultPublishTimeout},
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.cfg.PublishTimeout <= 0 {
		p.cfg.PublishTimeout = DefaultPublishTimeout
	}
	if p.logger == nil {
		p.logger = logging.Global()
	}
	p.logger = p.logger.Named("pipeline")
	if p.table == nil {
		p.table = policy.DefaultTable()
	}
	if p.validator == nil {
		p.validator = validate.New(validate.Config{}, p.logger)
	}
	if p.extractor == nil {
		p.extractor = meta.New(meta.Config{}, p.logger)
	}
	p.limiter = concurrency.NewLimiter(p.cfg.MaxConcurrentRenders)

	return p, nil
}

// Process runs the full pipeline for one source image. logicalKey is the
// caller-supplied identifier the per-variant object keys derive from;
// groupName selects the policy group.
func (p *Pipeline) Process(ctx context.Context, data []byte, logicalKey, groupName string) (*Result, error) {
	variants, ok := p.table.Get(groupName)
	if !ok {
		return nil, errors.NewUnknownPolicyGroup(groupName)
	}
	logicalKey = storage.SanitizeKey(logicalKey)

	src, err := p.validator.Validate(ctx, data)
	if err != nil {
		p.logger.Warn("source rejected",
			zap.String("key", logicalKey),
			zap.Error(err))
		return nil, err
	}

	// Metadata extraction runs alongside variant work; neither blocks the
	// other.
	metaCh := make(chan meta.Visual, 1)
	go func() {
		metaCh <- p.extractMeta(ctx, src)
	}()

	outcomes := p.runVariants(ctx, src, logicalKey, variants)

	result := &Result{Meta: <-metaCh}
	for _, o := range outcomes {
		switch {
		case o.skipped:
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		default:
			result.Images = append(result.Images, o.image)
		}
	}

	p.logger.Info("pipeline finished",
		zap.String("key", logicalKey),
		zap.String("group", groupName),
		zap.Int("published", len(result.Images)),
		zap.Int("failed", len(result.Failures)),
		zap.Int("configured", len(variants)))

	return result, nil
}

// ProcessMobile renders the density-tier variants (1x/2x/3x over the mobile
// base width) under a mobile/ key prefix.
func (p *Pipeline) ProcessMobile(ctx context.Context, data []byte, logicalKey string) (*Result, error) {
	return p.Process(ctx, data, "mobile/"+logicalKey, policy.GroupMobile)
}

// variantOutcome is the per-variant slot filled by the worker pool.
type variantOutcome struct {
	skipped bool
	failure *VariantFailure
	image   ProcessedImage
}

// runVariants fans the variant list out over the bounded limiter and
// collects one outcome per descriptor, preserving policy order.
func (p *Pipeline) runVariants(ctx context.Context, src *validate.Source, logicalKey string, variants []policy.Variant) []variantOutcome {
	outcomes := make([]variantOutcome, len(variants))
	tasks := make([]func() error, len(variants))

	for i, variant := range variants {
		i, variant := i, variant
		tasks[i] = func() error {
			outcomes[i] = p.processVariant(ctx, src, logicalKey, variant)
			return nil
		}
	}

	results := p.limiter.RunAll(ctx, tasks)
	for i, err := range results {
		// a slot only errors when cancellation kept the task from starting
		if err != nil {
			outcomes[i] = variantOutcome{failure: &VariantFailure{
				Variant: variants[i].Name,
				Kind:    errors.KindPublishFailed,
				Reason:  err.Error(),
			}}
		}
	}
	return outcomes
}

// processVariant renders one variant and publishes it. Failures are
// converted to data here, at the variant boundary; they never propagate to
// siblings or the caller.
func (p *Pipeline) processVariant(ctx context.Context, src *validate.Source, logicalKey string, variant policy.Variant) variantOutcome {
	if err := ctx.Err(); err != nil {
		return variantOutcome{failure: &VariantFailure{
			Variant: variant.Name,
			Kind:    errors.KindPublishFailed,
			Reason:  err.Error(),
		}}
	}

	rendered, err := render.Render(src, variant)
	if stderrors.Is(err, render.ErrSkip) {
		p.logger.Debug("variant skipped",
			zap.String("variant", variant.Name),
			zap.Int("target_width", variant.Width),
			zap.Int("source_width", src.Width))
		return variantOutcome{skipped: true}
	}
	if err != nil {
		p.logger.Warn("variant render failed",
			zap.String("variant", variant.Name),
			zap.Error(err))
		return variantOutcome{failure: &VariantFailure{
			Variant: variant.Name,
			Kind:    errors.KindRenderFailed,
			Reason:  err.Error(),
		}}
	}

	// cancellation checkpoint between render and publish
	if err := ctx.Err(); err != nil {
		return variantOutcome{failure: &VariantFailure{
			Variant: variant.Name,
			Kind:    errors.KindPublishFailed,
			Reason:  err.Error(),
		}}
	}

	key := storage.DeriveKey(logicalKey, variant.Name, variant.Format)

	pctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	url, err := p.store.Put(pctx, key, rendered.Data, rendered.ContentType())
	cancel()
	if err != nil {
		kind := errors.KindPublishFailed
		if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			kind = errors.KindTimeout
		}
		p.logger.Warn("variant publish failed",
			zap.String("variant", variant.Name),
			zap.String("object_key", key),
			zap.Error(err))
		return variantOutcome{failure: &VariantFailure{
			Variant: variant.Name,
			Kind:    kind,
			Reason:  err.Error(),
		}}
	}

	return variantOutcome{image: ProcessedImage{
		Key:     key,
		URL:     url,
		Variant: variant.Name,
		Width:   rendered.Width,
		Height:  rendered.Height,
		Size:    int64(len(rendered.Data)),
		Format:  variant.Format,
	}}
}

// extractMeta computes (or recalls) the visual metadata for src. Extraction
// is best-effort end to end: a broken cache degrades to re-extraction, a
// broken source degrades to the fallback record inside the extractor.
func (p *Pipeline) extractMeta(ctx context.Context, src *validate.Source) meta.Visual {
	if p.metaCache == nil {
		return p.extractor.Extract(src)
	}

	digest := cache.Digest(src.Data)
	if visual, ok := p.metaCache.Get(ctx, digest); ok {
		return visual
	}
	visual := p.extractor.Extract(src)
	p.metaCache.Set(ctx, digest, visual)
	return visual
}
