// Package reqcontext builds the immutable per-request value (C9) that
// carries the enriched request, trigger delimiter, resolved upstream
// config and request id through the rest of the pipeline.
package reqcontext

import (
	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/channel"
	"github.com/relaybridge/toolbridge/pkg/promptinject"
)

// Build resolves the upstream (C3) and enriches the request with a tool
// catalog and trigger signal (C2), returning the assembled RequestContext.
// Delimiter is nil iff original has no tools.
func Build(
	requestID string,
	original bridgetypes.ClientRequest,
	cfg channel.Config,
	clientAPIKey string,
) (bridgetypes.RequestContext, error) {
	upstreamCfg, err := channel.Resolve(original.Model, cfg, clientAPIKey)
	if err != nil {
		return bridgetypes.RequestContext{}, err
	}

	enriched, delimiter, ok, err := promptinject.Inject(original)
	if err != nil {
		return bridgetypes.RequestContext{}, err
	}

	rc := bridgetypes.RequestContext{
		RequestID:    requestID,
		Upstream:     upstreamCfg,
		Original:     original,
		Enriched:     enriched,
		ClientAPIKey: clientAPIKey,
	}
	if ok {
		rc.Delimiter = &delimiter
	}
	return rc, nil
}
