package session

import (
	"fmt"
	"strings"
	"sync"

	"verifront/internal/config"
	"verifront/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// Error means the authenticated session could not be established. It is
// fatal to the whole run: without a session every extraction would fail, so
// there is no partial-session fallback.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// Session is the single authenticated browser context shared by a run.
// One navigable viewport; callers drive it strictly sequentially.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page
}

// Page returns the session's shared page, creating it on first use.
func (s *Session) Page() (playwright.Page, error) {
	if s.page != nil {
		return s.page, nil
	}
	page, err := s.ctx.NewPage()
	if err != nil {
		return nil, &Error{Op: "page", Err: err}
	}
	s.page = page
	return page, nil
}

// Provider establishes the session once per run and hands the same handle
// to every entity iteration. Re-authentication is expensive and rate-limited
// upstream, so Establish is idempotent.
type Provider struct {
	log *logger.Logger
	cfg config.Config

	mu   sync.Mutex
	sess *Session
}

func NewProvider(cfg config.Config) *Provider {
	return &Provider{log: logger.New("SessionProvider"), cfg: cfg}
}

// Establish boots playwright, launches headless Chromium, and creates one
// browser context carrying the API token as a request header and the access
// token seeded into localStorage before any page script runs. A cached
// session is reused; callers never get a second authentication attempt.
func (p *Provider) Establish() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess != nil {
		p.log.LogDebug("reusing established session")
		return p.sess, nil
	}

	if p.cfg.APIToken == "" || p.cfg.AccessToken == "" {
		return nil, &Error{Op: "credentials", Err: fmt.Errorf("FRONTEND_API_TOKEN and FRONTEND_ACCESS_TOKEN must be set")}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &Error{Op: "run", Err: err}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--disable-default-apps",
			"--disable-extensions",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, &Error{Op: "launch", Err: err}
	}

	ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
		ExtraHttpHeaders: map[string]string{
			"Authorization": "Bearer " + p.cfg.APIToken,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, &Error{Op: "context", Err: err}
	}

	seed := fmt.Sprintf(`window.localStorage.setItem('access_token', %q);`, p.cfg.AccessToken)
	if err := ctx.AddInitScript(playwright.Script{Content: playwright.String(seed)}); err != nil {
		_ = ctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, &Error{Op: "seed tokens", Err: err}
	}

	sess := &Session{pw: pw, browser: browser, ctx: ctx}

	if p.cfg.FrontendBaseURL != "" {
		if err := p.verify(sess); err != nil {
			_ = ctx.Close()
			_ = browser.Close()
			_ = pw.Stop()
			return nil, err
		}
	}

	p.log.LogInfo("authenticated session established")
	p.sess = sess
	return sess, nil
}

// verify opens the frontend root and confirms the session is accepted
// rather than bounced to a login view.
func (p *Provider) verify(sess *Session) error {
	page, err := sess.Page()
	if err != nil {
		return err
	}
	resp, err := page.Goto(p.cfg.FrontendBaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(20000),
	})
	if err != nil {
		return &Error{Op: "verify", Err: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return &Error{Op: "verify", Err: fmt.Errorf("frontend responded with status %d", resp.Status())}
	}
	if strings.Contains(page.URL(), "/login") {
		return &Error{Op: "verify", Err: fmt.Errorf("redirected to login, credentials rejected")}
	}
	return nil
}

// Close tears the session down at the end of a run.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return
	}
	if p.sess.ctx != nil {
		_ = p.sess.ctx.Close()
	}
	if p.sess.browser != nil {
		_ = p.sess.browser.Close()
	}
	if p.sess.pw != nil {
		_ = p.sess.pw.Stop()
	}
	p.sess = nil
	p.log.LogDebug("session closed")
}
