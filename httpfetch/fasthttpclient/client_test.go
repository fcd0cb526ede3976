package fasthttpclient

import (
	"testing"

	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMethodOfDefaultsToGet(t *testing.T) {
	assert.Equal(t, "GET", methodOf(httpfetch.RequestOptions{}))
	assert.Equal(t, "POST", methodOf(httpfetch.RequestOptions{Method: "POST"}))
}

func TestStatusClassGrouping(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(502))
	assert.Equal(t, "error", statusClass(0))
}

func TestAbortCancelsAllPendingHandles(t *testing.T) {
	c := New(0, 0, zap.NewNop())

	cancelled := 0
	h1 := &requestHandle{cancel: func() { cancelled++ }}
	h2 := &requestHandle{cancel: func() { cancelled++ }}
	c.pending[h1] = struct{}{}
	c.pending[h2] = struct{}{}

	c.Abort()
	assert.Equal(t, 2, cancelled)
	assert.Empty(t, c.pending)
}
