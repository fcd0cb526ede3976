package session

import (
	"fmt"
	"time"

	"github.com/kallowynd/pageruntime/domevent"
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/jsengine"
	"github.com/kallowynd/pageruntime/metrics"
	"github.com/kallowynd/pageruntime/robots"
	"github.com/kallowynd/pageruntime/scheduler"
	"github.com/kallowynd/pageruntime/scriptmgr"
	"github.com/kallowynd/pageruntime/urlutil"
)

// Page is one session's live document plus everything scoped to its
// lifetime: its own scheduler, JS engine and HTTP client (spec.md §5: "the
// page arena is the lifetime boundary... nothing may outlive the page
// that owns it"), and — once a document has been fetched and built — its
// event manager and script manager.
type Page struct {
	ID  uint64
	URL string

	Document *domtree.Document
	Window   *domtree.Node

	Engine    jsengine.Engine
	HTTP      httpfetch.Client
	Scheduler *scheduler.Scheduler
	Events    *domevent.Manager
	Scripts   *scriptmgr.Manager

	session *Session

	everNavigated bool
	navQueued     bool
	navURL        string
	navOpts       NavigateOptions
	navErr        error

	closed bool
}

func newPage(id uint64, s *Session) *Page {
	return &Page{
		ID:        id,
		Engine:    s.newEngine(),
		HTTP:      s.newHTTP(),
		Scheduler: scheduler.New(nil),
		session:   s,
	}
}

// DocumentIsLoaded implements scriptmgr.Page: dispatches DOMContentLoaded
// on the document once normal+defer scripts have drained.
func (p *Page) DocumentIsLoaded() {
	if p.Events == nil || p.Document == nil {
		return
	}
	p.Events.Dispatch(&p.Document.Node, domevent.NewEvent("DOMContentLoaded", false, false))
}

// DocumentIsComplete implements scriptmgr.Page: dispatches load on the
// window once DOMContentLoaded has fired and no async script remains.
func (p *Page) DocumentIsComplete() {
	if p.Events == nil || p.Window == nil {
		return
	}
	p.Events.Dispatch(p.Window, domevent.NewEvent("load", false, false))
}

// HandleClick implements domevent.Page's default click action. The only
// default click behavior this module defines is hyperlink activation: a
// click on an <a> with an href queues a navigation, exactly the way a
// real browser's default action for clicking a link does.
func (p *Page) HandleClick(target *domtree.Node) {
	p.activateIfLink(target)
}

// HandleKeydown implements domevent.Page's default keydown action.
// Pressing Enter on a link activates it, mirroring a real browser's
// keyboard-equivalent activation of the mouse click default action.
func (p *Page) HandleKeydown(target *domtree.Node, evt *domevent.Event) {
	if key, ok := evt.Value.(string); ok && key == "Enter" {
		p.activateIfLink(target)
	}
}

func (p *Page) activateIfLink(target *domtree.Node) {
	el, ok := target.Self().(*domtree.Element)
	if !ok || el.Tag != "a" {
		return
	}
	href, ok := el.GetAttribute("href")
	if !ok || href == "" {
		return
	}
	_ = p.session.Navigate(href, NavigateOptions{})
}

// queueNavigation records url/opts for processScheduledNavigation to pick
// up the next time Wait observes this page reporting Done.
func (p *Page) queueNavigation(url string, opts NavigateOptions) {
	p.navQueued = true
	p.navURL = url
	p.navOpts = opts
}

// wait pumps the page's scheduler and HTTP client for up to timeout — the
// module's one real suspension point besides blockingGet, per spec.md §5.
func (p *Page) wait(timeout time.Duration) WaitResult {
	p.Scheduler.Run()
	p.HTTP.Tick(timeout)
	return Done
}

func (p *Page) httpAbortOutstanding() {
	if p.HTTP != nil {
		p.HTTP.Abort()
	}
}

func (p *Page) teardown() {
	if p.closed {
		return
	}
	p.closed = true
	if p.Scripts != nil {
		p.Scripts.Shutdown()
	}
	if p.HTTP != nil {
		p.HTTP.Abort()
	}
	if p.Scheduler != nil {
		p.Scheduler.Close()
	}
}

// navigate resolves url against the page's current location, enforces
// the robots.txt gate (unless overridden) and starts the top-level
// document fetch. Synchronous errors (malformed URL, robots disallow,
// failure to start the request) are returned directly; asynchronous
// fetch failures are recorded on navErr for Session.Wait to surface.
func (p *Page) navigate(rawURL string, opts NavigateOptions) error {
	base := p.URL
	resolved := urlutil.Resolve(base, rawURL, true)

	if !opts.SkipRobotsCheck {
		allowed, err := p.checkRobots(resolved)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("session: %s disallowed by robots.txt", resolved)
		}
	}

	p.navQueued = false
	p.navErr = nil
	return p.fetchDocument(resolved, opts)
}

// checkRobots fetches (or reuses a cached) robots.txt for resolved's
// origin via a reserved blocking handle — robots.txt must be resolved
// before the crawl it gates, so this runs synchronously rather than
// joining the async ready queue.
func (p *Page) checkRobots(resolved string) (bool, error) {
	origin, ok := urlutil.GetOrigin(resolved)
	if !ok {
		return false, fmt.Errorf("session: cannot derive origin for %s", resolved)
	}

	rs, cached := p.session.robotsCache[origin]
	if !cached {
		robotsURL, ok := urlutil.GetRobotsUrl(resolved)
		if !ok {
			return false, fmt.Errorf("session: cannot derive robots.txt URL for %s", resolved)
		}
		resp, err := p.HTTP.BlockingRequest(httpfetch.RequestOptions{URL: robotsURL})
		if err != nil || resp.Status != 200 {
			// Unreachable/non-200 robots.txt is treated as "allow all",
			// the conventional RFC 9309 fallback.
			rs = robots.RuleSet{}
		} else {
			rs = robots.Parse(string(resp.Body), p.session.cfg.Robots.UserAgent)
		}
		p.session.robotsCache[origin] = rs
	}

	return rs.IsAllowed(urlutil.GetPathname(resolved) + urlutil.GetSearch(resolved)), nil
}

// fetchDocument issues the async top-level GET and wires its callbacks to
// onDocumentFetched/navErr. Cookies previously captured for this origin
// are attached automatically when the caller didn't supply one.
func (p *Page) fetchDocument(url string, opts NavigateOptions) error {
	cookie := opts.Cookie
	if cookie == "" {
		if origin, ok := urlutil.GetOrigin(url); ok {
			cookie = p.session.CookieJar[origin]
		}
	}

	var buf []byte
	_, err := p.HTTP.Request(httpfetch.RequestOptions{
		URL:    url,
		Method: opts.Method,
		Header: opts.Header,
		Cookie: cookie,
		HeaderCallback: func(status int, header map[string][]string) error {
			if status != 200 {
				return fmt.Errorf("session: non-200 status %d fetching %s", status, url)
			}
			if setCookies, ok := header["Set-Cookie"]; ok && len(setCookies) > 0 {
				if origin, ok := urlutil.GetOrigin(url); ok {
					p.session.CookieJar[origin] = setCookies[len(setCookies)-1]
				}
			}
			return nil
		},
		DataCallback: func(chunk []byte) {
			buf = append(buf, chunk...)
		},
		DoneCallback: func() {
			p.onDocumentFetched(url, buf)
		},
		ErrorCallback: func(err error) {
			p.navErr = fmt.Errorf("session: navigation to %s failed: %w", url, err)
		},
	})
	if err != nil {
		return fmt.Errorf("session: failed to start navigation to %s: %w", url, err)
	}
	return nil
}

func (p *Page) onDocumentFetched(url string, body []byte) {
	doc, err := p.session.delegate.BuildDocument(url, body)
	if err != nil {
		p.navErr = fmt.Errorf("session: building document for %s: %w", url, err)
		return
	}

	p.URL = url
	p.Document = doc
	p.Window = &doc.Node
	p.Events = domevent.NewManager(p.Engine, p.Window, p, p.session.logger)
	p.Scripts = scriptmgr.NewManager(p.Engine, p.HTTP, p.Events, p, p.session.logger)
	p.session.History = append(p.session.History, url)
	metrics.NavigationsTotal.WithLabelValues("committed").Inc()
}
