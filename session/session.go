// Package session implements the per-session, single-page lifecycle from
// spec.md §4.6: create/remove/replace, queued navigation processed once
// the current page quiesces, and the wait loop that pumps the scheduler
// and network I/O.
//
// Grounded on the teacher's two ownership idioms: uielement.go's
// ElementStore (a single namespace that owns its constructors and is
// looked up by id, never duplicated) for Session's "owns at most one
// page" invariant, and router.go's Router (external events mutate owned
// state through a narrow registered-handler surface) for how Navigate,
// after a page's first navigation (which runs immediately), mutates the
// page only through the queued-navigation path.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kallowynd/pageruntime/config"
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/jsengine"
	"github.com/kallowynd/pageruntime/metrics"
	"github.com/kallowynd/pageruntime/robots"
)

// WaitResult is the outcome of one Session.Wait call, per spec.md §4.6.
type WaitResult int

const (
	// Done reports that the current wait iteration produced (or found)
	// no further immediately-actionable work.
	Done WaitResult = iota
	// NoPage reports that the session currently owns no page.
	NoPage
	// CDPSocket would report that a DevTools/CDP connection has data
	// ready — DevTools-CDP is an External Collaborator this module never
	// wires (spec.md §1), so Wait never actually returns this value; it
	// is kept as a named result because spec.md's contract names it.
	CDPSocket
)

func (r WaitResult) String() string {
	switch r {
	case Done:
		return "done"
	case NoPage:
		return "no_page"
	case CDPSocket:
		return "cdp_socket"
	default:
		return "unknown"
	}
}

// Notifier receives session lifecycle notifications that, in a full
// browser, would be forwarded on to DevTools/CDP — an External
// Collaborator boundary (spec.md §1) this package only ever calls through
// this narrow interface.
type Notifier interface {
	PageCreated(pageID uint64)
	PageRemoved(pageID uint64)
}

// NoopNotifier discards every notification, for callers (and most tests)
// that have no CDP/inspector layer to forward to.
type NoopNotifier struct{}

func (NoopNotifier) PageCreated(uint64) {}
func (NoopNotifier) PageRemoved(uint64) {}

// NavigationDelegate turns a fetched top-level document response into a
// live *domtree.Document. HTML parsing is out of this module's scope
// (spec.md §1's External Collaborators), so document construction is
// delegated through this narrow interface; everything downstream of a
// built document (event dispatch, script ordering) is this module's own.
type NavigationDelegate interface {
	BuildDocument(url string, body []byte) (*domtree.Document, error)
}

// NavigateOptions configures one navigation's request, mirroring the
// fields httpfetch.RequestOptions exposes plus a robots-check override
// for internal/test navigations.
type NavigateOptions struct {
	Method          string
	Header          map[string]string
	Cookie          string
	SkipRobotsCheck bool
}

// Session owns at most one Page plus the session-scoped storage spec.md
// §3 names: cookie jar, local storage, navigation history and the
// transfer arena bridging a page being destroyed to its replacement.
type Session struct {
	ID string

	cfg      config.RuntimeConfig
	logger   *zap.Logger
	notifier Notifier
	delegate NavigationDelegate

	newEngine func() jsengine.Engine
	newHTTP   func() httpfetch.Client

	nextPageID uint64
	page       *Page

	arena       *transferArena
	robotsCache map[string]robots.RuleSet

	CookieJar map[string]string
	Storage   map[string]string
	History   []string
}

// New constructs an empty session (no current page). newEngine/newHTTP
// are factories so every page gets its own fresh engine and HTTP client,
// matching spec.md §5's "the page arena is the lifetime boundary...
// nothing in the core may outlive the page that owns it".
func New(cfg config.RuntimeConfig, notifier Notifier, delegate NavigationDelegate, newEngine func() jsengine.Engine, newHTTP func() httpfetch.Client, logger *zap.Logger) *Session {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Session{
		ID:          uuid.NewString(),
		cfg:         cfg,
		logger:      logger,
		notifier:    notifier,
		delegate:    delegate,
		newEngine:   newEngine,
		newHTTP:     newHTTP,
		nextPageID:  1,
		arena:       newTransferArena(cfg.Arena.TransferArenaRetainCap),
		robotsCache: make(map[string]robots.RuleSet),
		CookieJar:   make(map[string]string),
		Storage:     make(map[string]string),
	}
}

// Page returns the session's current page, or nil.
func (s *Session) Page() *Page { return s.page }

// CreatePage requires no current page, allocates a fresh one and
// dispatches the page_created notification, per spec.md §4.6. The new
// page has no document until Navigate is called.
func (s *Session) CreatePage() (*Page, error) {
	if s.page != nil {
		return nil, errors.New("session: createPage called while a page already exists")
	}
	id := s.nextPageID
	s.nextPageID++
	p := newPage(id, s)
	s.page = p
	s.notifier.PageCreated(id)
	metrics.ActivePages.Inc()
	return p, nil
}

// RemovePage dispatches page_remove, tears the current page down and
// clears the page slot.
func (s *Session) RemovePage() error {
	if s.page == nil {
		return errors.New("session: removePage called with no current page")
	}
	s.notifier.PageRemoved(s.page.ID)
	s.page.teardown()
	s.page = nil
	metrics.ActivePages.Dec()
	return nil
}

// ReplacePage tears the current page down and creates a new one with the
// SAME numeric id, then begins navigation — the in-place reload path
// spec.md §4.6 names separately from the queued-navigation path.
func (s *Session) ReplacePage(url string, opts NavigateOptions) error {
	if s.page == nil {
		return errors.New("session: replacePage called with no current page")
	}
	id := s.page.ID
	s.page.teardown()
	s.page = newPage(id, s)
	s.notifier.PageCreated(id)
	s.page.everNavigated = true
	return s.page.navigate(url, opts)
}

// Navigate begins or queues a navigation on the current page. A page's
// very first navigation runs immediately (there is nothing to quiesce
// yet); every navigation after that is queued and processed by Wait once
// the page reports Done, per spec.md §4.6's processScheduledNavigation.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	if s.page == nil {
		return errors.New("session: navigate called with no current page")
	}
	if !s.page.everNavigated {
		s.page.everNavigated = true
		return s.page.navigate(url, opts)
	}
	s.page.queueNavigation(url, opts)
	metrics.NavigationsTotal.WithLabelValues("queued").Inc()
	return nil
}

// Wait delegates to the current page's wait loop. If the page reports
// Done while a navigation is queued, the old page is torn down, a new
// page is created with the same id, and the loop re-enters — exactly
// spec.md §4.6's wording for processScheduledNavigation.
func (s *Session) Wait(timeoutMs int64) (WaitResult, error) {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = s.cfg.HTTP.TickTimeout.Get()
	}
	for {
		if s.page == nil {
			return NoPage, nil
		}
		if s.page.navErr != nil {
			err := s.page.navErr
			metrics.NavigationsTotal.WithLabelValues("aborted").Inc()
			s.page.teardown()
			s.page = nil
			metrics.ActivePages.Dec()
			return Done, err
		}

		result := s.page.wait(timeout)
		if result != Done {
			return result, nil
		}
		if s.page.navQueued {
			s.processScheduledNavigation()
			continue
		}
		return Done, nil
	}
}

// processScheduledNavigation copies the queued URL out of the old page
// into the transfer arena before destroying it (so the string survives
// teardown), then creates a replacement page with the same id and begins
// navigation, per spec.md §4.6.
func (s *Session) processScheduledNavigation() {
	old := s.page
	url := s.arena.Store(old.navURL)
	opts := old.navOpts

	old.httpAbortOutstanding()
	id := old.ID
	old.teardown()

	p := newPage(id, s)
	p.everNavigated = true
	s.page = p
	s.notifier.PageCreated(id)

	if err := p.navigate(url, opts); err != nil {
		p.navErr = err
	}
	s.arena.Reset()
}
