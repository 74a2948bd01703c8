package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
)

// Driver implements every port over one chromedp tab context.
type Driver struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	manager *Manager
	logger  *zap.Logger

	// Virtual pointer position for relative moves.
	mu     sync.Mutex
	cursor schemas.Point
	closed bool
}

// Compile-time port checks.
var (
	_ schemas.Navigator        = (*Driver)(nil)
	_ schemas.ScriptExecutor   = (*Driver)(nil)
	_ schemas.PageIntrospector = (*Driver)(nil)
	_ schemas.ElementLocator   = (*Driver)(nil)
	_ schemas.PointerActor     = (*Driver)(nil)
)

func newDriver(ctx context.Context, cancel context.CancelFunc, m *Manager, id string, logger *zap.Logger) *Driver {
	return &Driver{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		manager: m,
		logger:  logger.Named("driver").With(zap.String("driver_id", id)),
	}
}

// Capabilities bundles this driver into a full capability set.
func (d *Driver) Capabilities() schemas.Capabilities {
	return schemas.Capabilities{
		Navigator: d,
		Script:    d,
		Page:      d,
		Elements:  d,
		Pointer:   d,
	}
}

// run executes chromedp actions on the tab context while honoring the
// caller's context for cancellation and deadlines.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("driver %s is closed", d.id)
	}
	d.mu.Unlock()

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// -- schemas.Navigator --

// Navigate loads url and waits for the document body to be ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Quit closes the tab and unregisters it from the manager. Idempotent.
func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.manager.unregister(d.id)
	d.logger.Debug("driver closed")
	return nil
}

// -- schemas.ScriptExecutor --

// ExecuteScript evaluates script in the page and returns its JSON-decoded
// completion value. Promises are awaited; an undefined result decodes to
// nil; a thrown exception becomes an error.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	var result any
	err := d.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		obj, exp, err := runtime.Evaluate(script).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(cctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return fmt.Errorf("script exception: %s", exp.Error())
		}
		if obj == nil || obj.Value == nil {
			return nil
		}
		return json.Unmarshal(obj.Value, &result)
	}))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// -- schemas.PageIntrospector --

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

// -- schemas.ElementLocator --

// FindElement checks selector existence and hands back a selector-bound
// handle. The handle re-resolves on every operation, which matches how the
// challenge pages mutate their DOM.
func (d *Driver) FindElement(ctx context.Context, selector string) (schemas.ElementHandle, error) {
	res, err := d.ExecuteScript(ctx,
		fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector)))
	if err != nil {
		return nil, err
	}
	found, ok := res.(bool)
	if !ok || !found {
		return nil, schemas.ErrNoSuchElement
	}
	return &element{d: d, selector: selector}, nil
}

// -- schemas.PointerActor --

// MoveBy dispatches a trusted mouse move relative to the tracked cursor.
func (d *Driver) MoveBy(ctx context.Context, dx, dy float64) error {
	d.mu.Lock()
	d.cursor.X += dx
	d.cursor.Y += dy
	x, y := d.cursor.X, d.cursor.Y
	d.mu.Unlock()

	return d.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(cctx)
	}))
}

// Click presses and releases the left button at the tracked cursor.
func (d *Driver) Click(ctx context.Context) error {
	d.mu.Lock()
	x, y := d.cursor.X, d.cursor.Y
	d.mu.Unlock()

	return d.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(cctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(cctx)
	}))
}

// SendKeys types keys into whatever holds focus.
func (d *Driver) SendKeys(ctx context.Context, keys string) error {
	return d.run(ctx, chromedp.KeyEvent(keys))
}

// -- element handle --

type element struct {
	d        *Driver
	selector string
}

func (e *element) Click(ctx context.Context) error {
	return e.d.run(ctx, chromedp.Click(e.selector, chromedp.ByQuery))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, chromedp.SendKeys(e.selector, text, chromedp.ByQuery))
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return false; }
  const r = el.getBoundingClientRect();
  return r.width > 0 && r.height > 0 && window.getComputedStyle(el).visibility !== 'hidden';
})()`, jsString(e.selector))
	res, err := e.d.ExecuteScript(ctx, script)
	if err != nil {
		return false, err
	}
	b, _ := res.(bool)
	return b, nil
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  return el !== null && !el.disabled;
})()`, jsString(e.selector))
	res, err := e.d.ExecuteScript(ctx, script)
	if err != nil {
		return false, err
	}
	b, _ := res.(bool)
	return b, nil
}

func (e *element) rect(ctx context.Context) (map[string]any, error) {
	script := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { return null; }
  const r = el.getBoundingClientRect();
  return { x: r.x, y: r.y, width: r.width, height: r.height };
})()`, jsString(e.selector))
	res, err := e.d.ExecuteScript(ctx, script)
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, schemas.ErrNoSuchElement
	}
	return m, nil
}

func (e *element) Location(ctx context.Context) (schemas.Point, error) {
	r, err := e.rect(ctx)
	if err != nil {
		return schemas.Point{}, err
	}
	return schemas.Point{X: num(r["x"]), Y: num(r["y"])}, nil
}

func (e *element) Size(ctx context.Context) (schemas.Size, error) {
	r, err := e.rect(ctx)
	if err != nil {
		return schemas.Size{}, err
	}
	return schemas.Size{Width: num(r["width"]), Height: num(r["height"])}, nil
}

// jsString JSON-quotes s for safe embedding in a script.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
