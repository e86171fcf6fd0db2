package service

import (
	"context"
	"time"

	"github.com/vocdoni/tokenzk/circuits"
	"golang.org/x/sync/errgroup"
)

// DownloadArtifacts downloads the artifacts of every circuit provided
// concurrently into the store.
func DownloadArtifacts(timeout time.Duration, store *circuits.ArtifactStore, artifacts ...*circuits.CircuitArtifacts) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			return a.DownloadAll(ctx, store)
		})
	}
	return g.Wait()
}
