package botdetect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/humanoid"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const challengeHTML = `<html><head><title>Just a moment...</title></head>
<body><div class="cf-browser-verification">Checking your browser</div></body></html>`

const cleanHTML = `<html><head><title>Welcome</title></head><body><h1>Content</h1></body></html>`

// flippingPage serves the challenge page until cleared, counting reads.
type flippingPage struct {
	cleared    atomic.Bool
	clearAfter int64 // reads before auto-clearing, 0 = manual only
	reads      atomic.Int64
}

func (p *flippingPage) PageSource(ctx context.Context) (string, error) {
	n := p.reads.Add(1)
	if p.clearAfter > 0 && n > p.clearAfter {
		p.cleared.Store(true)
	}
	if p.cleared.Load() {
		return cleanHTML, nil
	}
	return challengeHTML, nil
}

func (p *flippingPage) Title(ctx context.Context) (string, error) {
	if p.cleared.Load() {
		return "Welcome", nil
	}
	return "Just a moment...", nil
}

func (p *flippingPage) CurrentURL(ctx context.Context) (string, error) {
	return "https://example.com/", nil
}

type instantSleeper struct{}

func (instantSleeper) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newResolver(caps schemas.Capabilities) (*Resolver, *humanoid.Simulator) {
	sim := humanoid.NewSeeded(caps, humanoid.ProfileNormal, zap.NewNop(), 1, 99)
	sim.SetSleeper(instantSleeper{})
	detector := NewDetector(caps, zap.NewNop(), 1)
	return NewResolver(detector, sim, caps, zap.NewNop(), 1), sim
}

func TestResolvePassively(t *testing.T) {
	page := &flippingPage{clearAfter: 2}
	r, sim := newResolver(schemas.Capabilities{Page: page})

	resolved := r.Resolve(context.Background(), 5*time.Second)

	assert.True(t, resolved)
	// The poll loop must have re-checked the page more than once rather
	// than trusting a single read.
	assert.GreaterOrEqual(t, page.reads.Load(), int64(2))
	// Resolution always slows the persona down.
	assert.Equal(t, "careful", sim.Profile().Name)
}

func TestResolveFailsOnPersistentChallenge(t *testing.T) {
	page := &flippingPage{}
	r, _ := newResolver(schemas.Capabilities{Page: page})

	resolved := r.Resolve(context.Background(), 50*time.Millisecond)
	assert.False(t, resolved)
}

func TestResolveThroughInteraction(t *testing.T) {
	page := &flippingPage{}

	button := &mocks.MockElement{}
	button.On("IsDisplayed", mock.Anything).Return(true, nil)
	button.On("IsEnabled", mock.Anything).Return(true, nil)
	button.On("Click", mock.Anything).Run(func(args mock.Arguments) {
		page.cleared.Store(true)
	}).Return(nil)

	locator := &mocks.MockElementLocator{}
	locator.On("FindElement", mock.Anything, "button").Return(button, nil)

	r, _ := newResolver(schemas.Capabilities{Page: page, Elements: locator})

	resolved := r.Resolve(context.Background(), 50*time.Millisecond)

	assert.True(t, resolved)
	button.AssertCalled(t, "Click", mock.Anything)
}

func TestResolveHonorsCancellation(t *testing.T) {
	page := &flippingPage{}
	r, _ := newResolver(schemas.Capabilities{Page: page})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, r.Resolve(ctx, time.Second))
}
