package humanoid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

// ScrollTo scrolls the viewport to targetY in human-sized increments with a
// randomized pause between steps and an occasional longer reading pause.
// Without a script port this is a no-op.
func (s *Simulator) ScrollTo(ctx context.Context, targetY int) error {
	s.mu.Lock()
	exec := s.caps.Script
	s.mu.Unlock()
	if exec == nil {
		return nil
	}

	currentY := s.evalInt(ctx, exec, "window.pageYOffset || 0")
	if currentY == targetY {
		return nil
	}

	for _, pos := range PlanScrollSteps(currentY, targetY) {
		if _, err := exec.ExecuteScript(ctx, fmt.Sprintf("window.scrollTo(0, %d)", pos)); err != nil {
			s.logger.Debug("scroll step failed", zap.Error(err))
			return nil
		}
		if err := s.pauseRange(ctx, s.Profile().ScrollDelay); err != nil {
			return err
		}
		s.mu.Lock()
		readingPause := s.chance(0.1)
		s.mu.Unlock()
		if readingPause {
			if err := s.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScrollToElement brings el near the vertical center of the viewport,
// occasionally overshooting and correcting the way a person does.
func (s *Simulator) ScrollToElement(ctx context.Context, el schemas.ElementHandle) error {
	s.mu.Lock()
	exec := s.caps.Script
	s.mu.Unlock()
	if exec == nil || el == nil {
		return nil
	}

	loc, err := el.Location(ctx)
	if err != nil {
		return nil
	}
	viewportH := s.evalInt(ctx, exec, "window.innerHeight || 0")
	if viewportH <= 0 {
		viewportH = 800
	}
	scrollY := s.evalInt(ctx, exec, "window.pageYOffset || 0")

	target := scrollY + int(loc.Y) - viewportH/2
	if target < 0 {
		target = 0
	}

	s.mu.Lock()
	overshoot := 0
	if s.chance(0.2) {
		overshoot = s.randBetween(50, 150)
	}
	s.mu.Unlock()

	if overshoot > 0 {
		if err := s.ScrollTo(ctx, target+overshoot); err != nil {
			return err
		}
		if err := s.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
			return err
		}
	}
	return s.ScrollTo(ctx, target)
}

// MoveToElement walks the pointer along a jittered Bezier path into a random
// interior point of el. Skipped silently when the pointer port is absent.
func (s *Simulator) MoveToElement(ctx context.Context, el schemas.ElementHandle) error {
	s.mu.Lock()
	pointer := s.caps.Pointer
	s.mu.Unlock()
	if pointer == nil || el == nil {
		return nil
	}

	loc, err := el.Location(ctx)
	if err != nil {
		return nil
	}
	size, err := el.Size(ctx)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	target := schemas.Point{
		X: loc.X + size.Width*(0.3+s.rng.Float64()*0.4),
		Y: loc.Y + size.Height*(0.3+s.rng.Float64()*0.4),
	}
	steps := s.randBetween(s.profile.MouseSteps.Min, s.profile.MouseSteps.Max)
	path := PlanMousePath(s.cursor, target, steps, jitterPx, s.rng)
	s.mu.Unlock()

	for i := 1; i < len(path); i++ {
		dx := path[i].X - path[i-1].X
		dy := path[i].Y - path[i-1].Y
		if err := pointer.MoveBy(ctx, dx, dy); err != nil {
			s.logger.Debug("pointer move failed", zap.Error(err))
			return nil
		}
		s.mu.Lock()
		s.cursor = path[i]
		s.mu.Unlock()

		// Slower toward the end of the path.
		frac := float64(i) / float64(len(path)-1)
		delay := time.Duration(5+10*frac) * time.Millisecond
		if err := s.Pause(ctx, delay, delay+5*time.Millisecond); err != nil {
			return err
		}
	}

	s.mu.Lock()
	correct := s.chance(0.4)
	cdx := float64(s.randBetween(-3, 3))
	cdy := float64(s.randBetween(-3, 3))
	s.mu.Unlock()
	if correct {
		if err := pointer.MoveBy(ctx, cdx, cdy); err == nil {
			s.mu.Lock()
			s.cursor.X += cdx
			s.cursor.Y += cdy
			s.mu.Unlock()
		}
	}
	return nil
}

// Click performs the full human click sequence: scroll into view, approach,
// optional hover, click, settle. The element-level click is the fallback
// when raw pointer input is unavailable or fails.
func (s *Simulator) Click(ctx context.Context, el schemas.ElementHandle) error {
	if el == nil {
		return nil
	}
	if err := s.ScrollToElement(ctx, el); err != nil {
		return err
	}
	if err := s.Pause(ctx, 300*time.Millisecond, 700*time.Millisecond); err != nil {
		return err
	}
	if err := s.MoveToElement(ctx, el); err != nil {
		return err
	}
	if err := s.Pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
		return err
	}

	s.mu.Lock()
	hover := s.chance(0.3)
	pointer := s.caps.Pointer
	s.mu.Unlock()
	if hover {
		if err := s.hesitate(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}

	clicked := false
	if pointer != nil {
		if err := pointer.Click(ctx); err == nil {
			clicked = true
		} else {
			s.logger.Debug("pointer click failed, falling back to element click", zap.Error(err))
		}
	}
	if !clicked {
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("click: %w", err)
		}
	}

	return s.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond)
}

// Type clicks into el and types text with per-key delays, longer pauses
// after punctuation and the occasional typo that gets corrected.
func (s *Simulator) Type(ctx context.Context, el schemas.ElementHandle, text string) error {
	if el == nil {
		return nil
	}
	if err := s.Click(ctx, el); err != nil {
		return err
	}

	for _, r := range text {
		s.mu.Lock()
		typo := s.chance(0.02)
		wrong := rune('a' + s.rng.Intn(26))
		s.mu.Unlock()

		if typo && r >= 'a' && r <= 'z' {
			if err := el.SendKeys(ctx, string(wrong)); err != nil {
				return fmt.Errorf("type: %w", err)
			}
			if err := s.Pause(ctx, 100*time.Millisecond, 400*time.Millisecond); err != nil {
				return err
			}
			if err := el.SendKeys(ctx, "\b"); err != nil {
				return fmt.Errorf("type: %w", err)
			}
		}

		if err := el.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("type: %w", err)
		}
		if err := s.pauseRange(ctx, s.Profile().TypingDelay); err != nil {
			return err
		}
		if strings.ContainsRune(".,!?;", r) {
			if err := s.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
				return err
			}
		}
	}
	return nil
}

// InitialPageScan skims a freshly loaded page: a few short downward scrolls
// with pauses, then sometimes drifting part of the way back up.
func (s *Simulator) InitialPageScan(ctx context.Context) error {
	s.mu.Lock()
	exec := s.caps.Script
	increments := s.randBetween(2, 4)
	s.mu.Unlock()
	if exec == nil {
		return nil
	}

	pos := 0
	for i := 0; i < increments; i++ {
		s.mu.Lock()
		step := s.randBetween(300, 700)
		s.mu.Unlock()
		pos += step
		if err := s.ScrollTo(ctx, pos); err != nil {
			return err
		}
		if err := s.Pause(ctx, 400*time.Millisecond, 1200*time.Millisecond); err != nil {
			return err
		}
	}

	s.mu.Lock()
	backUp := s.chance(0.5)
	s.mu.Unlock()
	if backUp {
		return s.ScrollTo(ctx, pos/2)
	}
	return nil
}

// RandomActions performs a small burst of idle interactions: pointer
// wandering, minor scrolls, the occasional Tab. All failures are absorbed.
func (s *Simulator) RandomActions(ctx context.Context) error {
	s.mu.Lock()
	count := s.randBetween(1, 3)
	s.mu.Unlock()

	for i := 0; i < count; i++ {
		s.mu.Lock()
		roll := s.rng.Intn(3)
		pointer := s.caps.Pointer
		exec := s.caps.Script
		dx := float64(s.randBetween(-100, 100))
		dy := float64(s.randBetween(-100, 100))
		scroll := s.randBetween(-300, 300)
		s.mu.Unlock()

		switch roll {
		case 0:
			if pointer != nil {
				if err := pointer.MoveBy(ctx, dx, dy); err == nil {
					s.mu.Lock()
					s.cursor.X += dx
					s.cursor.Y += dy
					s.mu.Unlock()
				}
			}
		case 1:
			if exec != nil {
				_, _ = exec.ExecuteScript(ctx, fmt.Sprintf("window.scrollBy(0, %d)", scroll))
			}
		case 2:
			if pointer != nil {
				_ = pointer.SendKeys(ctx, "\t")
			}
		}

		if err := s.Pause(ctx, 200*time.Millisecond, 800*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// WaitBetweenPages settles after a navigation for the profile's page wait,
// occasionally stretching into a longer break.
func (s *Simulator) WaitBetweenPages(ctx context.Context) error {
	if err := s.pauseRange(ctx, s.Profile().PageWait); err != nil {
		return err
	}
	s.mu.Lock()
	longBreak := s.chance(0.1)
	s.mu.Unlock()
	if longBreak {
		return s.Pause(ctx, 5*time.Second, 15*time.Second)
	}
	return nil
}

// evalInt runs a script expected to yield a number, returning 0 on any
// failure. The ports decode JSON numbers as float64.
func (s *Simulator) evalInt(ctx context.Context, exec schemas.ScriptExecutor, script string) int {
	res, err := exec.ExecuteScript(ctx, script)
	if err != nil {
		return 0
	}
	switch v := res.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
