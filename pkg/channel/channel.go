// Package channel resolves a client-supplied model string into a concrete
// upstream endpoint, following the channel -> numbered multi-config ->
// legacy single-upstream precedence order.
package channel

import (
	"strings"

	"github.com/relaybridge/toolbridge/pkg/bridgeerrors"
	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

// Channel is a named upstream endpoint plus credentials plus protocol,
// selectable by prefixing a client model string with "name+".
type Channel struct {
	Name     string
	BaseURL  string
	APIKey   string
	Protocol bridgetypes.Protocol
}

// MultiUpstream is one numbered UPSTREAM_CONFIG_n entry, matched by its
// NameModel against the client's exact model string.
type MultiUpstream struct {
	NameModel    string
	BaseURL      string
	APIKey       string
	RequestModel string
	Protocol     bridgetypes.Protocol
}

// LegacyUpstream is the single fallback upstream configured via the
// un-numbered UPSTREAM_* variables.
type LegacyUpstream struct {
	BaseURL       string
	APIKey        string
	ModelOverride string
	Protocol      bridgetypes.Protocol
}

// Config bundles every configured routing target plus the passthrough
// policy. Channels, MultiUpstreams and Legacy are tried in that order for a
// given model string; the first one that applies supplies the route.
type Config struct {
	Channels          []Channel
	MultiUpstreams    []MultiUpstream
	Legacy            *LegacyUpstream
	PassthroughAPIKey bool
}

// Resolve implements C3. clientAPIKey is the key the client presented on
// this request, if any; it overrides the resolved key only when
// Config.PassthroughAPIKey is true and clientAPIKey is non-empty.
func Resolve(model string, cfg Config, clientAPIKey string) (bridgetypes.UpstreamConfig, error) {
	upstream, err := resolveBase(model, cfg)
	if err != nil {
		return bridgetypes.UpstreamConfig{}, err
	}
	if cfg.PassthroughAPIKey && clientAPIKey != "" {
		upstream.APIKey = clientAPIKey
	}
	return upstream, nil
}

func resolveBase(model string, cfg Config) (bridgetypes.UpstreamConfig, error) {
	if idx := strings.Index(model, "+"); idx >= 0 {
		channelName, rest := model[:idx], model[idx+1:]
		for _, ch := range cfg.Channels {
			if ch.Name == channelName {
				return bridgetypes.UpstreamConfig{
					BaseURL:       ch.BaseURL,
					APIKey:        ch.APIKey,
					UpstreamModel: rest,
					Protocol:      ch.Protocol,
				}, nil
			}
		}
	}

	for _, m := range cfg.MultiUpstreams {
		if m.NameModel == model {
			upstreamModel := m.RequestModel
			if upstreamModel == "" {
				upstreamModel = model
			}
			return bridgetypes.UpstreamConfig{
				BaseURL:       m.BaseURL,
				APIKey:        m.APIKey,
				UpstreamModel: upstreamModel,
				Protocol:      m.Protocol,
			}, nil
		}
	}

	if cfg.Legacy != nil {
		upstreamModel := cfg.Legacy.ModelOverride
		if upstreamModel == "" {
			upstreamModel = model
		}
		return bridgetypes.UpstreamConfig{
			BaseURL:       cfg.Legacy.BaseURL,
			APIKey:        cfg.Legacy.APIKey,
			UpstreamModel: upstreamModel,
			Protocol:      cfg.Legacy.Protocol,
		}, nil
	}

	return bridgetypes.UpstreamConfig{}, &bridgeerrors.ConfigError{
		Message: "no channel, upstream config, or legacy upstream matches model " + model,
	}
}
