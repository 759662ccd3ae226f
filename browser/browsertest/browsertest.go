// Package browsertest provides an in-memory browser.Driver backed by
// goquery documents. Pages are registered by URL; clicks and scrolls can
// mutate the live document to simulate consent banners, load-more buttons
// and infinite scroll.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/flowscout/browser"
)

// ErrNotFound is returned by Navigate for URLs with no registered page.
var ErrNotFound = errors.New("net::ERR_NAME_NOT_RESOLVED")

const errorPage = "chrome-error://chromewebdata/"

type clickHandler struct {
	selector string
	fn       func(doc *goquery.Document)
}

// Driver is a fake browser.Driver. Configure it before handing it to the
// code under test.
type Driver struct {
	mu         sync.Mutex
	pages      map[string]string
	hang       map[string]bool
	slow       map[string]bool
	clicks     []clickHandler
	onScroll   func(doc *goquery.Document, pass int)
	sessionErr error
	htmlErr    error
	sessions   []*Session
}

// New returns an empty fake driver.
func New() *Driver {
	return &Driver{
		pages: make(map[string]string),
		hang:  make(map[string]bool),
		slow:  make(map[string]bool),
	}
}

// AddPage registers the HTML served for url.
func (d *Driver) AddPage(url, html string) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = html
	return d
}

// Hang makes navigation to url block until its context is done without
// committing a document.
func (d *Driver) Hang(url string) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hang[url] = true
	return d
}

// Slow registers html for url but makes Navigate report a timeout after
// the document has been committed.
func (d *Driver) Slow(url, html string) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = html
	d.slow[url] = true
	return d
}

// OnClick runs fn against the live document whenever an element matching
// selector is clicked.
func (d *Driver) OnClick(selector string, fn func(doc *goquery.Document)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, clickHandler{selector: selector, fn: fn})
	return d
}

// OnScroll runs fn after every scroll evaluation. pass counts from 1 per
// session.
func (d *Driver) OnScroll(fn func(doc *goquery.Document, pass int)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onScroll = fn
	return d
}

// FailSessions makes every NewSession call fail with err.
func (d *Driver) FailSessions(err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionErr = err
	return d
}

// FailSnapshots makes every Session.HTML call fail with err.
func (d *Driver) FailSnapshots(err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.htmlErr = err
	return d
}

// Sessions returns every session opened so far.
func (d *Driver) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.sessions...)
}

// OpenSessions counts sessions that have not been closed.
func (d *Driver) OpenSessions() int {
	n := 0
	for _, s := range d.Sessions() {
		if !s.Closed() {
			n++
		}
	}
	return n
}

func (d *Driver) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sessionErr != nil {
		return nil, d.sessionErr
	}
	s := &Session{driver: d, opts: opts, location: "about:blank"}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *Driver) Close() error { return nil }

func (d *Driver) lookup(url string) (html string, ok, hang, slow bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	html, ok = d.pages[url]
	return html, ok, d.hang[url], d.slow[url]
}

// Session is a fake browser.Session holding one live goquery document.
type Session struct {
	driver *Driver
	opts   browser.SessionOptions

	mu          sync.Mutex
	doc         *goquery.Document
	location    string
	navigations []string
	clicked     []string
	scrolls     int
	closed      int
}

// Options returns the options the session was opened with.
func (s *Session) Options() browser.SessionOptions { return s.opts }

// Closed reports whether Close was called at least once.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// Navigations returns every URL passed to Navigate, in order.
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Clicked returns the trimmed text of every clicked element, in order.
func (s *Session) Clicked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicked...)
}

// Scrolls counts scroll evaluations.
func (s *Session) Scrolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.navigations = append(s.navigations, url)
	s.mu.Unlock()

	html, ok, hang, slow := s.driver.lookup(url)
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok {
		s.mu.Lock()
		s.doc, s.location = nil, errorPage
		s.mu.Unlock()
		return fmt.Errorf("navigate %s: %w", url, ErrNotFound)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc, s.location = doc, url
	s.mu.Unlock()

	if slow {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *Session) WaitNetworkIdle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, nil
	}
	var out []browser.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &Element{session: s, sel: sel})
	})
	return out, nil
}

func (s *Session) Evaluate(ctx context.Context, js string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.Contains(js, "scrollBy") {
		return nil
	}

	s.mu.Lock()
	s.scrolls++
	pass, doc := s.scrolls, s.doc
	s.mu.Unlock()

	s.driver.mu.Lock()
	fn := s.driver.onScroll
	s.driver.mu.Unlock()
	if fn != nil && doc != nil {
		s.mu.Lock()
		fn(doc, pass)
		s.mu.Unlock()
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.driver.mu.Lock()
	htmlErr := s.driver.htmlErr
	s.driver.mu.Unlock()
	if htmlErr != nil {
		return "", htmlErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "<html><head></head><body></body></html>", nil
	}
	return s.doc.Html()
}

func (s *Session) Location(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Element is a fake browser.Element wrapping one goquery node.
type Element struct {
	session *Session
	sel     *goquery.Selection
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// Click fails for elements that are no longer attached to the document or
// are marked hidden, mirroring a real click that cannot find its target.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.session.mu.Lock()
	doc := e.session.doc
	if doc == nil || !doc.Selection.Find("*").IsSelection(e.sel) {
		e.session.mu.Unlock()
		return errors.New("element is detached")
	}
	if _, hidden := e.sel.Attr("hidden"); hidden {
		e.session.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	e.session.clicked = append(e.session.clicked, strings.TrimSpace(e.sel.Text()))
	e.session.mu.Unlock()

	e.session.driver.mu.Lock()
	handlers := append([]clickHandler(nil), e.session.driver.clicks...)
	e.session.driver.mu.Unlock()

	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	for _, h := range handlers {
		if e.sel.Is(h.selector) {
			h.fn(doc)
		}
	}
	return nil
}
