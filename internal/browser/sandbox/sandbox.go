// Package sandbox is an in-process stand-in for the chromedp driver: a goja
// VM plays the page's script engine and goquery serves element lookups over
// static HTML. It implements the same ports, so sessions can run end to end
// without a browser, for tests and dry runs.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
)

// Page is one sandboxed page. Safe for concurrent use; VM access is
// serialized because goja runtimes are single-threaded.
type Page struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	logger *zap.Logger

	html   string
	title  string
	url    string
	routes map[string]string

	clicks map[string]int
	typed  map[string]string
}

// Compile-time port checks.
var (
	_ schemas.Navigator        = (*Page)(nil)
	_ schemas.ScriptExecutor   = (*Page)(nil)
	_ schemas.PageIntrospector = (*Page)(nil)
	_ schemas.ElementLocator   = (*Page)(nil)
)

// New creates an empty sandboxed page.
func New(logger *zap.Logger) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{
		vm:     goja.New(),
		logger: logger.Named("sandbox"),
		routes: make(map[string]string),
		clicks: make(map[string]int),
		typed:  make(map[string]string),
	}
	p.installGlobals()
	return p
}

// installGlobals gives the VM just enough browser surface for the engine's
// scripts to run without throwing. Lock not needed during construction.
func (p *Page) installGlobals() {
	_, _ = p.vm.RunString(`
var window = this;
var navigator = { userAgent: 'sandbox', webdriver: undefined };
var document = { documentElement: {}, querySelector: function () { return null; } };
var screen = { width: 1920, height: 1080, availWidth: 1920, availHeight: 1040 };
window.pageYOffset = 0;
window.innerHeight = 800;
window.scrollTo = function (x, y) { window.pageYOffset = y; };
window.scrollBy = function (x, y) { window.pageYOffset = Math.max(0, window.pageYOffset + y); };
window.performance = { getEntriesByType: function () { return []; } };
`)
}

// SetRoute registers the HTML served when Navigate hits url.
func (p *Page) SetRoute(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = html
}

// SetContent replaces the current document directly.
func (p *Page) SetContent(html, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
	p.title = title
}

// Clicks reports how many times selector was clicked.
func (p *Page) Clicks(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks[selector]
}

// Typed returns the text typed into selector.
func (p *Page) Typed(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

// -- schemas.Navigator --

// Navigate serves the registered route, or an empty document for unknown
// URLs.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	if html, ok := p.routes[url]; ok {
		p.html = html
	} else {
		p.html = "<html><head><title></title></head><body></body></html>"
	}
	p.title = extractTitle(p.html)
	return nil
}

// Quit is a no-op; the sandbox has nothing to tear down.
func (p *Page) Quit(ctx context.Context) error { return nil }

// -- schemas.ScriptExecutor --

// ExecuteScript runs script in the goja VM. The VM is interrupted when ctx
// expires mid-execution.
func (p *Page) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { p.vm.Interrupt(ctx.Err()) })
	defer stop()
	defer p.vm.ClearInterrupt()

	value, err := p.vm.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("sandbox script: %w", err)
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

// -- schemas.PageIntrospector --

func (p *Page) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// -- schemas.ElementLocator --

// FindElement resolves selector against the current document with goquery.
func (p *Page) FindElement(ctx context.Context, selector string) (schemas.ElementHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("sandbox parse: %w", err)
	}
	if doc.Find(selector).Length() == 0 {
		return nil, schemas.ErrNoSuchElement
	}
	return &element{page: p, selector: selector}, nil
}

// -- element handle --

type element struct {
	page     *Page
	selector string
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.clicks[e.selector]++
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if text == "\b" {
		current := e.page.typed[e.selector]
		if len(current) > 0 {
			e.page.typed[e.selector] = current[:len(current)-1]
		}
		return nil
	}
	e.page.typed[e.selector] += text
	return nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	return true, ctx.Err()
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.page.mu.Lock()
	html := e.page.html
	e.page.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, nil
	}
	sel := doc.Find(e.selector).First()
	_, disabled := sel.Attr("disabled")
	return !disabled, nil
}

func (e *element) Location(ctx context.Context) (schemas.Point, error) {
	// Static HTML has no layout; a fixed in-viewport point keeps the
	// motion simulator happy.
	return schemas.Point{X: 200, Y: 200}, ctx.Err()
}

func (e *element) Size(ctx context.Context) (schemas.Size, error) {
	return schemas.Size{Width: 120, Height: 32}, ctx.Err()
}

func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return doc.Find("title").First().Text()
}
