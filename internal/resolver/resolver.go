// Package resolver produces one metadata record per file, consulting the
// cache before falling back to extraction.
package resolver

import (
	"context"
	"log/slog"

	"tonearm/internal/logging"
	"tonearm/internal/mediameta"
	"tonearm/internal/metacache"
	"tonearm/internal/services"
)

// Extractor produces a metadata record for a file identity.
type Extractor interface {
	Extract(ctx context.Context, id mediameta.Identity) (mediameta.Record, error)
}

// Fingerprinter computes an acoustic fingerprint for a file.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (string, error)
}

// Resolver resolves paths to records. A nil Cache disables caching; a nil
// Fingerprinter disables fingerprint enrichment.
type Resolver struct {
	cache         *metacache.Store
	extractor     Extractor
	fingerprinter Fingerprinter
	logger        *slog.Logger
}

// New builds a resolver around the given collaborators.
func New(cache *metacache.Store, extractor Extractor, fingerprinter Fingerprinter, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:         cache,
		extractor:     extractor,
		fingerprinter: fingerprinter,
		logger:        logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve stats the file, serves a cached record when the identity still
// matches, and otherwise extracts and caches a fresh one. Extraction
// failures leave the cache untouched. Cache IO failures degrade to
// extraction with a warning rather than failing the file.
func (r *Resolver) Resolve(ctx context.Context, path string) (mediameta.Record, error) {
	id, err := mediameta.Stat(path)
	if err != nil {
		return mediameta.Record{}, services.Wrap(services.ErrExtraction, "resolver", "resolve", "stat file", err)
	}

	if r.cache != nil {
		record, ok, cacheErr := r.cache.Get(ctx, id)
		switch {
		case cacheErr != nil:
			r.logger.Warn("cache read failed, extracting directly",
				logging.String(logging.FieldPath, id.Path),
				logging.Error(cacheErr))
		case ok:
			return record, nil
		}
	}

	record, err := r.extractor.Extract(ctx, id)
	if err != nil {
		return mediameta.Record{}, err
	}
	record.Identity = id

	if r.fingerprinter != nil && record.Fingerprint == "" {
		fp, fpErr := r.fingerprinter.Fingerprint(ctx, id.Path)
		if fpErr != nil {
			r.logger.Warn("fingerprint failed, continuing without one",
				logging.String(logging.FieldPath, id.Path),
				logging.Error(fpErr))
		} else {
			record.Fingerprint = fp
		}
	}

	if r.cache != nil {
		if putErr := r.cache.Put(ctx, record); putErr != nil {
			r.logger.Warn("cache write failed",
				logging.String(logging.FieldPath, id.Path),
				logging.Error(putErr))
		}
	}

	return record, nil
}
