// Package botdetect recognizes and resolves anti-bot challenge pages:
// Cloudflare interstitials, CAPTCHA widgets and rate limiting. Detection is
// deliberately forgiving; any probe failure reads as "no challenge" so a
// dead driver never wedges the navigation pipeline.
package botdetect

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"go.uber.org/zap"
)

var (
	cloudflareIndicators = []string{
		"checking your browser",
		"just a moment",
		"ray id",
		"cf-browser-verification",
		"cf-challenge-running",
	}
	captchaIndicators = []string{
		"g-recaptcha",
		"h-captcha",
		"cf-turnstile",
		"challenge-form",
	}
	rateLimitPhrases = []string{
		"rate limit",
		"too many requests",
		"please slow down",
	}

	// DOM probes for challenge scaffolding that may carry no text.
	challengeSelectors = []string{"#cf-challenge-running", ".cf-browser-verification"}
)

// challengeURLMarker appears in Cloudflare challenge redirect URLs.
const challengeURLMarker = "/cdn-cgi/"

// statusProbeJS recovers the HTTP status of the document response through
// the Navigation Timing API, since the driver protocol does not expose it.
const statusProbeJS = "(() => window.performance.getEntriesByType('navigation')[0]?.responseStatus || 0)()"

// retryAfterJS digs a Retry-After hint out of server timing, if any.
const retryAfterJS = `(() => {
  const nav = window.performance.getEntriesByType('navigation')[0];
  if (!nav || !nav.serverTiming) { return 0; }
  const entry = nav.serverTiming.find((t) => t.name.toLowerCase() === 'retry-after');
  return entry ? entry.duration : 0;
})()`

// defaultRetryAfter is the wait applied when a rate limit carries no hint.
const defaultRetryAfter = 60 * time.Second

// Detector answers "is this page a challenge" style questions over the
// read-only ports. It holds no mutable state and is safe for concurrent use.
type Detector struct {
	caps   schemas.Capabilities
	logger *zap.Logger
}

// NewDetector builds a detector over a session's capability set.
func NewDetector(caps schemas.Capabilities, logger *zap.Logger, instanceID int) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		caps:   caps,
		logger: logger.Named("botdetect").With(zap.Int("instance_id", instanceID)),
	}
}

// IsChallengeActive reports whether the current page is an anti-bot
// challenge. Any failure to inspect the page reads as false.
func (d *Detector) IsChallengeActive(ctx context.Context) bool {
	if d.caps.Page == nil {
		return false
	}

	// A driver that cannot even report its URL is not worth probing.
	if _, err := d.caps.Page.CurrentURL(ctx); err != nil {
		return false
	}

	source := d.lowerOrEmpty(d.caps.Page.PageSource(ctx))
	title := d.lowerOrEmpty(d.caps.Page.Title(ctx))

	for _, indicator := range cloudflareIndicators {
		if strings.Contains(source, indicator) || strings.Contains(title, indicator) {
			d.logger.Debug("challenge indicator matched", zap.String("indicator", indicator))
			return true
		}
	}
	for _, indicator := range captchaIndicators {
		if strings.Contains(source, indicator) {
			d.logger.Debug("captcha indicator matched", zap.String("indicator", indicator))
			return true
		}
	}

	if d.scanDOMSignatures(source) {
		return true
	}
	for _, selector := range challengeSelectors {
		if d.isElementPresent(ctx, selector) {
			return true
		}
	}

	status := d.probeStatus(ctx)
	return status == 403 || status == 429
}

// scanDOMSignatures parses the page source and looks for challenge
// scaffolding by selector. Parse failures read as no match.
func (d *Detector) scanDOMSignatures(source string) bool {
	if source == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return false
	}
	for _, selector := range challengeSelectors {
		if doc.Find(selector).Length() > 0 {
			d.logger.Debug("challenge DOM signature matched", zap.String("selector", selector))
			return true
		}
	}
	return false
}

// IsRateLimited reports whether the site is throttling us, by document
// status or by page phrasing.
func (d *Detector) IsRateLimited(ctx context.Context) bool {
	status := d.probeStatus(ctx)
	if status == 429 {
		return true
	}

	if d.caps.Page == nil {
		return false
	}
	source := d.lowerOrEmpty(d.caps.Page.PageSource(ctx))
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(source, phrase) {
			return true
		}
	}
	return false
}

// RecommendedWait returns how long to back off before the next navigation:
// zero when not rate limited, the server's hint when one exists, otherwise
// a conservative default.
func (d *Detector) RecommendedWait(ctx context.Context) time.Duration {
	if !d.IsRateLimited(ctx) {
		return 0
	}
	if d.caps.Script != nil {
		if res, err := d.caps.Script.ExecuteScript(ctx, retryAfterJS); err == nil {
			if seconds, ok := res.(float64); ok && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return defaultRetryAfter
}

// OnChallengePage reports whether the current URL itself is a challenge
// redirect target.
func (d *Detector) OnChallengePage(ctx context.Context) bool {
	if d.caps.Page == nil {
		return false
	}
	url, err := d.caps.Page.CurrentURL(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(url, challengeURLMarker)
}

func (d *Detector) probeStatus(ctx context.Context) int {
	if d.caps.Script == nil {
		return 0
	}
	res, err := d.caps.Script.ExecuteScript(ctx, statusProbeJS)
	if err != nil {
		return 0
	}
	switch v := res.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (d *Detector) isElementPresent(ctx context.Context, selector string) bool {
	if d.caps.Elements == nil {
		return false
	}
	el, err := d.caps.Elements.FindElement(ctx, selector)
	return err == nil && el != nil
}

func (d *Detector) lowerOrEmpty(s string, err error) string {
	if err != nil {
		return ""
	}
	return strings.ToLower(s)
}
