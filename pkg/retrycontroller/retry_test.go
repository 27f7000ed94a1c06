package retrycontroller

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/streamparser"
	"github.com/relaybridge/toolbridge/pkg/upstream"
)

// fakeAdapter builds a placeholder request body and holds the canned
// non-streaming responses, and the call count, that fakeCaller serves in order.
type fakeAdapter struct {
	responses []string
	calls     int
}

func (a *fakeAdapter) Name() string { return "fake" }
func (a *fakeAdapter) BuildHeaders(cfg bridgetypes.UpstreamConfig) map[string]string {
	return nil
}
func (a *fakeAdapter) BuildRequestBody(req bridgetypes.ClientRequest, cfg bridgetypes.UpstreamConfig, stream bool) ([]byte, error) {
	return []byte("{}"), nil
}
func (a *fakeAdapter) ParseResponse(body []byte) (upstream.Response, error) {
	return upstream.Response{}, nil
}
func (a *fakeAdapter) NewStreamDecoder(body io.Reader) upstream.StreamDecoder { return nil }

type fakeCaller struct {
	adapter *fakeAdapter
}

func (c *fakeCaller) CallNonStreaming(ctx context.Context, body []byte) (upstream.Response, error) {
	idx := c.adapter.calls
	c.adapter.calls++
	if idx >= len(c.adapter.responses) {
		return upstream.Response{Text: ""}, nil
	}
	return upstream.Response{Text: c.adapter.responses[idx]}, nil
}

func testDelim() bridgetypes.TriggerDelimiter {
	return bridgetypes.NewTriggerDelimiter("<<CALL_retry>>")
}

func failedEvent(priorText, failedContent string) streamparser.Event {
	return streamparser.Event{
		Kind:          streamparser.KindToolCallFailed,
		PriorText:     priorText,
		FailedContent: failedContent,
	}
}

func TestResolve_SucceedsOnFirstRetry(t *testing.T) {
	delim := testDelim()
	adapter := &fakeAdapter{
		responses: []string{
			delim.TCStart + `<invoke name="get_weather"><parameter name="city">"NYC"</parameter></invoke>`,
		},
	}
	caller := &fakeCaller{adapter: adapter}

	res, err := Resolve(context.Background(), DefaultOptions(), caller, adapter,
		bridgetypes.UpstreamConfig{}, bridgetypes.ClientRequest{}, delim,
		failedEvent("", delim.TCStart+`<invoke name="get_weather">`), nil)

	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, "get_weather", res.ToolName)
	assert.Equal(t, "NYC", res.ToolArgs["city"])
	assert.Equal(t, 1, adapter.calls)
}

func TestResolve_DegradesAfterExhaustingRetries(t *testing.T) {
	delim := testDelim()
	adapter := &fakeAdapter{
		responses: []string{
			delim.TCStart + `<invoke name="x">`, // still malformed
			delim.TCStart + `<invoke name="x">`, // still malformed
			delim.TCStart + `<invoke name="x">`, // still malformed
		},
	}
	caller := &fakeCaller{adapter: adapter}
	opts := Options{MaxRetries: 3, KeepAlive: false}

	res, err := Resolve(context.Background(), opts, caller, adapter,
		bridgetypes.UpstreamConfig{}, bridgetypes.ClientRequest{}, delim,
		failedEvent("oops ", delim.TCStart+`<invoke name="x">`), nil)

	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.Equal(t, 3, adapter.calls)
	assert.NotEmpty(t, res.Text)
}

func TestResolve_StopsRetryingOnUpstreamError(t *testing.T) {
	delim := testDelim()
	adapter := &fakeAdapter{}
	errCaller := erroringCaller{}

	res, err := Resolve(context.Background(), DefaultOptions(), errCaller, adapter,
		bridgetypes.UpstreamConfig{}, bridgetypes.ClientRequest{}, delim,
		failedEvent("", "broken"), nil)

	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.Equal(t, "broken", res.Text)
}

type erroringCaller struct{}

func (erroringCaller) CallNonStreaming(ctx context.Context, body []byte) (upstream.Response, error) {
	return upstream.Response{}, assertErr
}

var assertErr = context.DeadlineExceeded

func TestResolve_PingCalledEveryAttemptWhenKeepAliveOn(t *testing.T) {
	delim := testDelim()
	adapter := &fakeAdapter{
		responses: []string{
			delim.TCStart + `<invoke name="x">`,
			delim.TCStart + `<invoke name="y"></invoke>`,
		},
	}
	caller := &fakeCaller{adapter: adapter}

	var pings int
	ping := func() error {
		pings++
		return nil
	}

	res, err := Resolve(context.Background(), Options{MaxRetries: 2, KeepAlive: true}, caller, adapter,
		bridgetypes.UpstreamConfig{}, bridgetypes.ClientRequest{}, delim,
		failedEvent("", delim.TCStart+`<invoke name="x">`), ping)

	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, 2, pings)
}
