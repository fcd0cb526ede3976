package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallowynd/pageruntime/config"
	"github.com/kallowynd/pageruntime/domevent"
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/httpfetch/fakeclient"
	"github.com/kallowynd/pageruntime/jsengine"
)

func domtreeLink(t *testing.T, href string) *domtree.Element {
	t.Helper()
	el := domtree.NewElement("a")
	el.SetAttribute("href", href)
	return el
}

func newTestSession(delegate NavigationDelegate, client *fakeclient.Client) *Session {
	cfg := config.Default()
	return New(cfg, nil, delegate, func() jsengine.Engine { return &fakeEngine{} }, func() httpfetch.Client { return client }, nil)
}

func TestCreatePageFailsWhenPageAlreadyExists(t *testing.T) {
	s := newTestSession(&fakeDelegate{}, fakeclient.New())
	_, err := s.CreatePage()
	require.NoError(t, err)

	_, err = s.CreatePage()
	assert.Error(t, err)
}

func TestNavigateWithoutPageErrors(t *testing.T) {
	s := newTestSession(&fakeDelegate{}, fakeclient.New())
	err := s.Navigate("https://example.com/", NavigateOptions{})
	assert.Error(t, err)
}

func TestFirstNavigationRunsImmediatelyAndBuildsDocument(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/", fakeclient.Fixture{Status: 200, Body: []byte("<html></html>")})
	delegate := &fakeDelegate{}
	s := newTestSession(delegate, client)

	_, err := s.CreatePage()
	require.NoError(t, err)

	err = s.Navigate("https://example.com/", NavigateOptions{})
	require.NoError(t, err)

	require.NoError(t, client.Tick(0))

	require.NotNil(t, s.Page().Document)
	assert.Equal(t, []string{"https://example.com/"}, s.History)
	assert.Len(t, delegate.bodies, 1)
	assert.Equal(t, "<html></html>", string(delegate.bodies[0]))
}

func TestRobotsDisallowRejectsNavigation(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/robots.txt", fakeclient.Fixture{
		Status: 200,
		Body:   []byte("User-agent: *\nDisallow: /private\n"),
	})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)

	err = s.Navigate("https://example.com/private/page", NavigateOptions{})
	assert.Error(t, err)
}

func TestRobotsCheckSkippedWhenRequested(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/robots.txt", fakeclient.Fixture{
		Status: 200,
		Body:   []byte("User-agent: *\nDisallow: /\n"),
	})
	client.Set("https://example.com/page", fakeclient.Fixture{Status: 200, Body: []byte("ok")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)

	err = s.Navigate("https://example.com/page", NavigateOptions{SkipRobotsCheck: true})
	require.NoError(t, err)
	require.NoError(t, client.Tick(0))
	assert.NotNil(t, s.Page().Document)
}

func TestMissingRobotsTxtDefaultsToAllowed(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/page", fakeclient.Fixture{Status: 200, Body: []byte("ok")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)

	err = s.Navigate("https://example.com/page", NavigateOptions{})
	require.NoError(t, err)
	require.NoError(t, client.Tick(0))
	assert.NotNil(t, s.Page().Document)
}

func TestSecondNavigationIsQueuedAndProcessedByWait(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/one", fakeclient.Fixture{Status: 200, Body: []byte("one")})
	client.Set("https://example.com/two", fakeclient.Fixture{Status: 200, Body: []byte("two")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)
	require.NoError(t, s.Navigate("https://example.com/one", NavigateOptions{SkipRobotsCheck: true}))
	require.NoError(t, client.Tick(0))

	firstPageID := s.Page().ID

	require.NoError(t, s.Navigate("https://example.com/two", NavigateOptions{SkipRobotsCheck: true}))
	assert.Equal(t, "one", s.Page().URL[len(s.Page().URL)-3:])

	result, err := s.Wait(0)
	require.NoError(t, err)
	assert.Equal(t, Done, result)
	require.NoError(t, client.Tick(0))

	assert.Equal(t, firstPageID, s.Page().ID, "processScheduledNavigation must reuse the same numeric page id")
	assert.Equal(t, "https://example.com/two", s.Page().URL)
}

func TestWaitReportsNoPageWhenSessionHasNone(t *testing.T) {
	s := newTestSession(&fakeDelegate{}, fakeclient.New())
	result, err := s.Wait(0)
	require.NoError(t, err)
	assert.Equal(t, NoPage, result)
}

func TestFailedFetchSurfacesAsWaitError(t *testing.T) {
	client := fakeclient.New() // no fixture => fetch errors
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)
	require.NoError(t, s.Navigate("https://example.com/missing", NavigateOptions{SkipRobotsCheck: true}))
	require.NoError(t, client.Tick(0))

	result, err := s.Wait(0)
	assert.Equal(t, Done, result)
	assert.Error(t, err)
	assert.Nil(t, s.Page())
}

func TestRemovePageClearsSlot(t *testing.T) {
	s := newTestSession(&fakeDelegate{}, fakeclient.New())
	_, err := s.CreatePage()
	require.NoError(t, err)

	require.NoError(t, s.RemovePage())
	assert.Nil(t, s.Page())
	assert.Error(t, s.RemovePage())
}

func TestReplacePageReusesID(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/reload", fakeclient.Fixture{Status: 200, Body: []byte("x")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)
	id := s.Page().ID

	require.NoError(t, s.ReplacePage("https://example.com/reload", NavigateOptions{SkipRobotsCheck: true}))
	assert.Equal(t, id, s.Page().ID)
	require.NoError(t, client.Tick(0))
	assert.NotNil(t, s.Page().Document)
}

func TestHandleClickOnLinkQueuesNavigation(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/start", fakeclient.Fixture{Status: 200, Body: []byte("start")})
	client.Set("https://example.com/next", fakeclient.Fixture{Status: 200, Body: []byte("next")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)
	require.NoError(t, s.Navigate("https://example.com/start", NavigateOptions{SkipRobotsCheck: true}))
	require.NoError(t, client.Tick(0))

	link := domtreeLink(t, "https://example.com/next")
	s.Page().HandleClick(&link.Node)

	assert.True(t, s.Page().navQueued)
	assert.Equal(t, "https://example.com/next", s.Page().navURL)
}

func TestDocumentLifecycleHooksDispatchEvents(t *testing.T) {
	client := fakeclient.New()
	client.Set("https://example.com/", fakeclient.Fixture{Status: 200, Body: []byte("<html></html>")})
	s := newTestSession(&fakeDelegate{}, client)

	_, err := s.CreatePage()
	require.NoError(t, err)
	require.NoError(t, s.Navigate("https://example.com/", NavigateOptions{}))
	require.NoError(t, client.Tick(0))

	p := s.Page()
	require.NotNil(t, p.Events)

	p.Events.Register(&p.Document.Node, "DOMContentLoaded", domevent.SourceCallback("dom-ready"), domevent.ListenerOptions{})
	p.Events.Register(p.Window, "load", domevent.SourceCallback("win-loaded"), domevent.ListenerOptions{})

	p.DocumentIsLoaded()
	p.DocumentIsComplete()

	fe := p.Engine.(*fakeEngine)
	assert.Contains(t, fe.evaluated, "inline-handler")
	assert.Len(t, fe.evaluated, 2, "both DOMContentLoaded and load handlers should have fired")
}

func TestTransferArenaRetainsCapacityAfterReset(t *testing.T) {
	a := newTransferArena(16)
	got := a.Store("hello")
	assert.Equal(t, "hello", got)

	a.Store(string(make([]byte, 64)))
	a.Reset()
	assert.Equal(t, 0, len(a.buf))
	assert.Equal(t, 16, cap(a.buf), "arena should shrink back to retainCap once it grew past it")
}
