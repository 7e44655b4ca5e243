// Package geo resolves city names to coordinates through a chain of public
// geocoding services, with a persistent cache in front of them.
package geo

import (
	"context"
	"sync"

	"github.com/oplik0/scht-lab/pkg/util"
)

// resolveParallelism bounds concurrent lookups so the public services are
// not hammered when a large topology loads.
const resolveParallelism = 8

// Geocoder resolves place names through a provider chain with caching.
// Providers are consulted strictly in order for a single name; distinct
// names resolve concurrently.
type Geocoder struct {
	providers []Provider
	cache     Cache
}

// New creates a Geocoder. A nil cache disables caching; nil providers
// selects the default chain.
func New(providers []Provider, cache Cache) *Geocoder {
	if providers == nil {
		providers = DefaultProviders(nil)
	}
	return &Geocoder{providers: providers, cache: cache}
}

// Resolve returns coordinates for a place name, or nil when every provider
// fails. Provider errors never propagate: exhaustion yields nil.
func (g *Geocoder) Resolve(ctx context.Context, name string) *Coords {
	if g.cache != nil {
		if c, ok, err := g.cache.Get(ctx, name); err == nil && ok {
			return &c
		} else if err != nil {
			util.WithCity(name).Debugf("geocache read failed: %v", err)
		}
	}

	for _, p := range g.providers {
		c, err := p.Locate(ctx, name)
		if err != nil {
			util.WithCity(name).Debugf("provider %s failed: %v", p.Name(), err)
			continue
		}
		if g.cache != nil {
			if err := g.cache.Put(ctx, name, c); err != nil {
				util.WithCity(name).Debugf("geocache write failed: %v", err)
			}
		}
		return &c
	}

	util.WithCity(name).Warn("no geocoder could resolve city, coordinates unset")
	return nil
}

// ResolveAll resolves a set of names concurrently and returns the results
// keyed by name. Names no provider could resolve map to nil.
func (g *Geocoder) ResolveAll(ctx context.Context, names []string) map[string]*Coords {
	results := make(map[string]*Coords, len(names))

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, resolveParallelism)

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			c := g.Resolve(ctx, name)
			mu.Lock()
			results[name] = c
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return results
}
