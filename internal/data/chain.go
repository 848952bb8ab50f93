package data

import "context"

// MetadataSource is one provider of static symbol metadata.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, symbol string) (Metadata, error)
}

// Chain queries sources in order and merges their fields, earlier
// sources winning. A source error is tolerated as long as at least one
// source answered; ErrNoData from every source is ErrNoData.
type Chain struct {
	sources []MetadataSource
}

func NewChain(sources ...MetadataSource) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) FetchMetadata(ctx context.Context, symbol string) (Metadata, error) {
	var merged Metadata
	var firstErr error
	answered := false

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return merged, err
		}
		meta, err := src.FetchMetadata(ctx, symbol)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		answered = true
		merged = merged.Merge(meta)
	}

	if !answered {
		if firstErr != nil {
			return merged, firstErr
		}
		return merged, ErrNoData
	}
	return merged, nil
}
