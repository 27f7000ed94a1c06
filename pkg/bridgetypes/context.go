package bridgetypes

// Protocol names the wire dialect a configured upstream speaks.
type Protocol string

const (
	ProtocolOpenAI    Protocol = "openai"
	ProtocolAnthropic Protocol = "anthropic"
)

// UpstreamConfig names where a resolved request should be sent.
type UpstreamConfig struct {
	BaseURL       string
	APIKey        string
	UpstreamModel string
	Protocol      Protocol
}

// TriggerDelimiter bundles the per-request markers the injector writes into
// the system prompt and the parser watches for in the upstream's reply.
// Fixed markers never change across requests; TCStart is freshly generated.
type TriggerDelimiter struct {
	TCStart     string
	InvokeOpen  string
	InvokeClose string
	ParamOpen   string
	ParamClose  string
}

const (
	invokeOpen  = `<invoke name="`
	invokeClose = `</invoke>`
	paramOpen   = `<parameter name="`
	paramClose  = `</parameter>`
)

// NewTriggerDelimiter bundles a freshly generated trigger signal with the
// fixed XML markers the injector and parser share.
func NewTriggerDelimiter(tcStart string) TriggerDelimiter {
	return TriggerDelimiter{
		TCStart:     tcStart,
		InvokeOpen:  invokeOpen,
		InvokeClose: invokeClose,
		ParamOpen:   paramOpen,
		ParamClose:  paramClose,
	}
}

// RequestContext is the immutable per-request value threaded through C3/C2's
// output into the forwarder. Delimiter is present iff Original.HasTools().
type RequestContext struct {
	RequestID    string
	Upstream     UpstreamConfig
	Original     ClientRequest
	Enriched     ClientRequest
	Delimiter    *TriggerDelimiter
	ClientAPIKey string
}
