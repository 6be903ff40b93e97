package people

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/people-agent/server/internal/agent/model"
	logx "github.com/people-agent/server/pkg/logger"
)

// ResourceTTL is how long a fetched result, failures included, is reused.
const ResourceTTL = 60 * time.Second

// Directory is the slice of the Graph client the agent needs.
type Directory interface {
	Searcher
	Fetch(ctx context.Context, token string, kind model.ResourceKind, identity string) model.Result
}

// resourceKey is the call signature a result is cached under.
type resourceKey struct {
	kind     model.ResourceKind
	identity string
}

// getOrFetch returns the cached result for kind when it is younger than the
// TTL, and otherwise calls the directory and caches whatever comes back.
func (a *Agent) getOrFetch(ctx context.Context, token string, kind model.ResourceKind) model.Result {
	key := resourceKey{kind: kind, identity: a.identity}
	if r, age, ok := a.resources.Get(key); ok {
		logx.Debug().Str("identity", a.identity).Str("kind", string(kind)).Dur("age", age).Msg("resource cache hit")
		return r
	}

	start := time.Now()
	r := a.dir.Fetch(ctx, token, kind, a.identity)
	a.resources.Put(key, r)

	ev := logx.Debug()
	if r.Err != nil {
		ev = logx.Warn().Err(r.Err)
	}
	ev.Str("identity", a.identity).Str("kind", string(kind)).Dur("duration", time.Since(start)).Msg("resource fetched")
	return r
}

// fetchAll issues every kind concurrently and waits for all of them. The
// result slice is positional: results[i] belongs to kinds[i] whatever the
// completion order. A panicking fetch turns into an error result for its
// kind only.
func (a *Agent) fetchAll(ctx context.Context, token string, kinds []model.ResourceKind) []model.Result {
	results := make([]model.Result, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					results[i] = model.Failed(kind, &model.ResourceError{Kind: kind, Err: fmt.Errorf("panic: %v", p)})
				}
			}()
			results[i] = a.getOrFetch(ctx, token, kind)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
