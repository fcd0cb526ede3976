package fakeclient

import (
	"testing"

	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDeliversRegisteredFixtureOnTick(t *testing.T) {
	c := New()
	c.Set("https://example.test/a.js", Fixture{Status: 200, Body: []byte("console.log(1)")})

	var gotStatus int
	var gotBody []byte
	var done bool

	_, err := c.Request(httpfetch.RequestOptions{
		URL: "https://example.test/a.js",
		HeaderCallback: func(status int, header map[string][]string) error {
			gotStatus = status
			return nil
		},
		DataCallback: func(chunk []byte) { gotBody = append(gotBody, chunk...) },
		DoneCallback: func() { done = true },
	})
	require.NoError(t, err)

	assert.False(t, done, "callbacks must not fire before Tick")
	require.NoError(t, c.Tick(0))
	assert.Equal(t, 200, gotStatus)
	assert.Equal(t, []byte("console.log(1)"), gotBody)
	assert.True(t, done)
}

func TestRequestWithoutFixtureReportsError(t *testing.T) {
	c := New()
	var gotErr error
	_, err := c.Request(httpfetch.RequestOptions{
		URL:           "https://example.test/missing.js",
		ErrorCallback: func(err error) { gotErr = err },
	})
	require.NoError(t, err)
	require.NoError(t, c.Tick(0))
	assert.Error(t, gotErr)
}

func TestDelayedFixtureRequiresExtraTicks(t *testing.T) {
	c := New()
	c.Set("https://example.test/slow.js", Fixture{Status: 200, Body: []byte("x"), Delay: 2})

	var done bool
	_, err := c.Request(httpfetch.RequestOptions{
		URL:          "https://example.test/slow.js",
		DoneCallback: func() { done = true },
	})
	require.NoError(t, err)

	require.NoError(t, c.Tick(0))
	assert.False(t, done)
	require.NoError(t, c.Tick(0))
	assert.False(t, done)
	require.NoError(t, c.Tick(0))
	assert.True(t, done)
}

func TestAbortHandleSkipsDeliveryAndReportsAborted(t *testing.T) {
	c := New()
	c.Set("https://example.test/a.js", Fixture{Status: 200, Body: []byte("x")})

	var gotErr error
	var done bool
	h, err := c.Request(httpfetch.RequestOptions{
		URL:           "https://example.test/a.js",
		DoneCallback:  func() { done = true },
		ErrorCallback: func(err error) { gotErr = err },
	})
	require.NoError(t, err)

	h.Abort()
	require.NoError(t, c.Tick(0))
	assert.False(t, done)
	assert.ErrorIs(t, gotErr, httpfetch.ErrAborted)
}

func TestClientAbortCancelsAllOutstandingRequests(t *testing.T) {
	c := New()
	c.Set("https://example.test/a.js", Fixture{Status: 200, Body: []byte("x")})
	c.Set("https://example.test/b.js", Fixture{Status: 200, Body: []byte("y")})

	var aCalled, bCalled bool
	_, err := c.Request(httpfetch.RequestOptions{URL: "https://example.test/a.js", DoneCallback: func() { aCalled = true }})
	require.NoError(t, err)
	_, err = c.Request(httpfetch.RequestOptions{URL: "https://example.test/b.js", DoneCallback: func() { bCalled = true }})
	require.NoError(t, err)

	c.Abort()
	require.NoError(t, c.Tick(0))
	assert.False(t, aCalled)
	assert.False(t, bCalled)
}

func TestBlockingRequestResolvesImmediatelyIgnoringDelay(t *testing.T) {
	c := New()
	c.Set("https://example.test/mod.js", Fixture{Status: 200, Body: []byte("export {}"), Delay: 5})

	resp, err := c.BlockingRequest(httpfetch.RequestOptions{URL: "https://example.test/mod.js"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("export {}"), resp.Body)
}

func TestHeaderCallbackErrorAbortsBeforeDataAndDone(t *testing.T) {
	c := New()
	c.Set("https://example.test/bad.js", Fixture{Status: 404, Body: []byte("not found")})

	var dataCalled, doneCalled bool
	var gotErr error
	_, err := c.Request(httpfetch.RequestOptions{
		URL: "https://example.test/bad.js",
		HeaderCallback: func(status int, header map[string][]string) error {
			if status != 200 {
				return assert.AnError
			}
			return nil
		},
		DataCallback:  func(chunk []byte) { dataCalled = true },
		DoneCallback:  func() { doneCalled = true },
		ErrorCallback: func(err error) { gotErr = err },
	})
	require.NoError(t, err)
	require.NoError(t, c.Tick(0))

	assert.False(t, dataCalled)
	assert.False(t, doneCalled)
	assert.Equal(t, assert.AnError, gotErr)
}
