package agent

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentDiscovery = 8

var emptyDescriptor = json.RawMessage(`{}`)

// CapabilitySummary is what the planner is told about one provider.
type CapabilitySummary struct {
	ServerName string          `json:"server_name"`
	Keywords   string          `json:"keywords"`
	Endpoint   string          `json:"endpoint"`
	Descriptor json.RawMessage `json:"manifest"`
}

// Gatherer builds the capability list for one run.
type Gatherer struct {
	Registry CapabilityRegistry
	Provider Provider
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Gather fetches every registered provider's manifest concurrently. A failed
// fetch yields an empty descriptor; only a registry read failure is an error.
// The result keeps registry order.
func (g *Gatherer) Gather(ctx context.Context, sessionID string) ([]CapabilitySummary, error) {
	servers, err := g.Registry.ListServers(ctx)
	if err != nil {
		return nil, newError(KindConfiguration, err, "failed to read capability registry")
	}

	summaries := make([]CapabilitySummary, len(servers))
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentDiscovery)
	for i, srv := range servers {
		summaries[i] = CapabilitySummary{
			ServerName: srv.Name,
			Keywords:   srv.Keywords,
			Endpoint:   srv.EndpointURL,
			Descriptor: emptyDescriptor,
		}
		i, srv := i, srv
		eg.Go(func() error {
			manifest, err := g.Provider.Manifest(ctx, srv.EndpointURL)
			if err != nil {
				log.Printf("[DISCOVERY] Manifest fetch failed for %s: %v", srv.EndpointURL, err)
				g.Logger.LogProviderError(sessionID, 0, srv.EndpointURL, err)
				g.Metrics.DiscoveryFailed()
				return nil
			}
			summaries[i].Descriptor = manifest
			return nil
		})
	}
	_ = eg.Wait()
	return summaries, nil
}
