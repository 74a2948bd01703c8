package botdetect

import (
	"context"
	"testing"
	"time"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func pageMock(url, source, title string) *mocks.MockPageIntrospector {
	page := &mocks.MockPageIntrospector{}
	page.On("CurrentURL", mock.Anything).Return(url, nil)
	page.On("PageSource", mock.Anything).Return(source, nil)
	page.On("Title", mock.Anything).Return(title, nil)
	return page
}

func statusMock(status float64) *mocks.MockScriptExecutor {
	exec := &mocks.MockScriptExecutor{}
	exec.On("ExecuteScript", mock.Anything, statusProbeJS, mock.Anything).Return(status, nil)
	exec.On("ExecuteScript", mock.Anything, retryAfterJS, mock.Anything).Return(float64(0), nil)
	return exec
}

func TestChallengeDetectedByTitle(t *testing.T) {
	page := pageMock("https://example.com", "<html><body></body></html>", "Just a moment...")
	d := NewDetector(schemas.Capabilities{Page: page}, zap.NewNop(), 1)

	assert.True(t, d.IsChallengeActive(context.Background()))
}

func TestChallengeDetectedByCaptchaWidget(t *testing.T) {
	page := pageMock("https://example.com", `<div class="g-recaptcha"></div>`, "Login")
	d := NewDetector(schemas.Capabilities{Page: page}, zap.NewNop(), 1)

	assert.True(t, d.IsChallengeActive(context.Background()))
}

func TestCleanPageIsNotAChallenge(t *testing.T) {
	page := pageMock("https://example.com", "<html><body><h1>Welcome</h1></body></html>", "Home")
	d := NewDetector(schemas.Capabilities{Page: page, Script: statusMock(200)}, zap.NewNop(), 1)

	assert.False(t, d.IsChallengeActive(context.Background()))
}

func TestForbiddenStatusReadsAsChallenge(t *testing.T) {
	page := pageMock("https://example.com", "<html><body></body></html>", "")
	d := NewDetector(schemas.Capabilities{Page: page, Script: statusMock(403)}, zap.NewNop(), 1)

	assert.True(t, d.IsChallengeActive(context.Background()))
}

func TestUnresponsiveDriverReadsAsNoChallenge(t *testing.T) {
	page := &mocks.MockPageIntrospector{}
	page.On("CurrentURL", mock.Anything).Return("", assert.AnError)
	d := NewDetector(schemas.Capabilities{Page: page}, zap.NewNop(), 1)

	assert.False(t, d.IsChallengeActive(context.Background()))
}

func TestMissingPagePortReadsAsNoChallenge(t *testing.T) {
	d := NewDetector(schemas.Capabilities{}, zap.NewNop(), 1)
	assert.False(t, d.IsChallengeActive(context.Background()))
}

func TestDOMSignatureScan(t *testing.T) {
	d := NewDetector(schemas.Capabilities{}, zap.NewNop(), 1)

	assert.True(t, d.scanDOMSignatures(`<html><body><div class="cf-browser-verification"></div></body></html>`))
	assert.True(t, d.scanDOMSignatures(`<html><body><div id="cf-challenge-running"></div></body></html>`))
	assert.False(t, d.scanDOMSignatures(`<html><body><p>nothing here</p></body></html>`))
	assert.False(t, d.scanDOMSignatures(""))
}

func TestRateLimitByStatus(t *testing.T) {
	d := NewDetector(schemas.Capabilities{Script: statusMock(429)}, zap.NewNop(), 1)
	assert.True(t, d.IsRateLimited(context.Background()))
}

func TestRateLimitByPagePhrase(t *testing.T) {
	page := pageMock("https://example.com", "<html><body>Too Many Requests</body></html>", "")
	d := NewDetector(schemas.Capabilities{Page: page, Script: statusMock(200)}, zap.NewNop(), 1)

	assert.True(t, d.IsRateLimited(context.Background()))
}

func TestRecommendedWait(t *testing.T) {
	t.Run("zero when not limited", func(t *testing.T) {
		page := pageMock("https://example.com", "<html><body>ok</body></html>", "")
		d := NewDetector(schemas.Capabilities{Page: page, Script: statusMock(200)}, zap.NewNop(), 1)
		assert.Equal(t, time.Duration(0), d.RecommendedWait(context.Background()))
	})

	t.Run("default without server hint", func(t *testing.T) {
		d := NewDetector(schemas.Capabilities{Script: statusMock(429)}, zap.NewNop(), 1)
		assert.Equal(t, defaultRetryAfter, d.RecommendedWait(context.Background()))
	})

	t.Run("honors server hint", func(t *testing.T) {
		exec := &mocks.MockScriptExecutor{}
		exec.On("ExecuteScript", mock.Anything, statusProbeJS, mock.Anything).Return(float64(429), nil)
		exec.On("ExecuteScript", mock.Anything, retryAfterJS, mock.Anything).Return(float64(30), nil)
		d := NewDetector(schemas.Capabilities{Script: exec}, zap.NewNop(), 1)
		assert.Equal(t, 30*time.Second, d.RecommendedWait(context.Background()))
	})
}

func TestOnChallengePage(t *testing.T) {
	page := pageMock("https://example.com/cdn-cgi/challenge-platform/x", "", "")
	d := NewDetector(schemas.Capabilities{Page: page}, zap.NewNop(), 1)
	assert.True(t, d.OnChallengePage(context.Background()))

	clean := pageMock("https://example.com/home", "", "")
	d = NewDetector(schemas.Capabilities{Page: clean}, zap.NewNop(), 1)
	assert.False(t, d.OnChallengePage(context.Background()))
}
