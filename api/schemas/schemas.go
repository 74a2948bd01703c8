// Package schemas defines the narrow collaborator ports the engine drives a
// browser through, plus the shared value types they exchange. Concrete
// implementations live in internal/browser; tests use internal/mocks.
package schemas

import (
	"context"
	"errors"
)

// ErrNoSuchElement is returned by ElementLocator implementations when no
// element matches the selector.
var ErrNoSuchElement = errors.New("no such element")

// Point is a coordinate in CSS pixels, viewport relative.
type Point struct {
	X float64
	Y float64
}

// Size is an element's rendered dimensions in CSS pixels.
type Size struct {
	Width  float64
	Height float64
}

// ScriptExecutor evaluates JavaScript in the page. Scripts are plain
// expressions or IIFEs; the result is the JSON-decoded completion value
// (nil when the script completes with undefined).
type ScriptExecutor interface {
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
}

// PageIntrospector exposes read-only page state.
type PageIntrospector interface {
	PageSource(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
}

// ElementHandle is a live reference to a located element.
type ElementHandle interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	Location(ctx context.Context) (Point, error)
	Size(ctx context.Context) (Size, error)
}

// ElementLocator finds elements by CSS selector. A miss is reported as
// ErrNoSuchElement rather than a nil handle.
type ElementLocator interface {
	FindElement(ctx context.Context, selector string) (ElementHandle, error)
}

// PointerActor dispatches raw pointer and keyboard input. It is the one
// optional port: drivers without trusted input synthesis leave it nil and
// the engine falls back to element-level actions.
type PointerActor interface {
	MoveBy(ctx context.Context, dx, dy float64) error
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
}

// Navigator owns page navigation and driver shutdown.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	Quit(ctx context.Context) error
}

// Capabilities bundles the ports a session was constructed with. A nil
// field means the capability is absent and dependent behavior is skipped;
// the set is resolved once at construction and never re-probed.
type Capabilities struct {
	Navigator Navigator
	Script    ScriptExecutor
	Page      PageIntrospector
	Elements  ElementLocator
	Pointer   PointerActor
}

func (c Capabilities) HasScript() bool   { return c.Script != nil }
func (c Capabilities) HasPage() bool     { return c.Page != nil }
func (c Capabilities) HasElements() bool { return c.Elements != nil }
func (c Capabilities) HasPointer() bool  { return c.Pointer != nil }
