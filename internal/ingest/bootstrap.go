package ingest

import (
	"context"

	"github.com/flower-explorer/vistool/internal/datastore"
)

// Bootstrap prepares the catalog schema and, only when the schema was just created, runs the
// pipeline once. The returned report is nil when the catalog already existed.
func Bootstrap(ctx context.Context, store datastore.Interface, pipeline *Pipeline) (*Report, error) {
	created, err := store.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}
	pipeline.log.Info("empty catalog, running initial ingestion")
	return pipeline.Run(ctx)
}
