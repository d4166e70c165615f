// Package console automates the device-management admin console. The
// console has no API; everything here drives its web UI through a single
// authenticated browser session and degrades to "unresolved" rather than
// failing when the UI drifts.
package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shipenrich/internal/config"
)

const (
	navTimeout    = 30 * time.Second
	findTimeout   = 10 * time.Second
	shortTimeout  = 3 * time.Second
	settleSample  = time.Second
	settleTimeout = 15 * time.Second
)

// Texts that dismiss the optional post-login passkey interstitial. Its
// absence is not an error.
var interstitialDismissTexts = []string{"Not now", "Don't ask again", "No thanks", "Skip", "Close"}

// Session is one authenticated browser context against the admin console.
// It is owned by a single caller for the lifetime of one run and must be
// released with Close on every exit path.
type Session struct {
	cfg    config.ConsoleConfig
	logger *zap.Logger
	runID  string

	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// Open launches a browser, logs in, and handles the optional post-login
// interstitial. On any failure it captures a diagnostic screenshot, releases
// whatever was initialized, and returns an AuthError.
func Open(ctx context.Context, cfg config.ConsoleConfig, logger *zap.Logger) (*Session, error) {
	s := &Session{
		cfg:    cfg,
		logger: logger,
		runID:  uuid.NewString(),
	}

	if err := s.start(ctx); err != nil {
		_ = s.Close()
		return nil, &AuthError{Err: err}
	}
	if err := s.login(); err != nil {
		s.screenshot("login_error")
		_ = s.Close()
		return nil, &AuthError{Err: err}
	}
	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	s.launch = launcher.New().Headless(s.cfg.Headless)
	controlURL, err := s.launch.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             1440,
		Height:            900,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.logger.Warn("failed to set viewport", zap.Error(err))
	}
	return nil
}

// login submits credentials and waits for a stable authenticated state.
func (s *Session) login() error {
	s.logger.Info("logging in to admin console", zap.String("url", s.cfg.URL))

	if err := s.page.Timeout(navTimeout).Navigate(s.cfg.URL); err != nil {
		return fmt.Errorf("navigate to console: %w", err)
	}
	if err := s.page.Timeout(navTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("wait for login page: %w", err)
	}
	s.settle()

	email, err := findFirst(s.page, findTimeout,
		locator{css: `input[type="email"]`},
		locator{css: `input[name="email"]`},
		locator{css: `input[name="username"]`},
		locator{css: `input[placeholder*="mail"]`},
	)
	if err != nil {
		return fmt.Errorf("locate credential form: %w", err)
	}
	if err := email.Input(s.cfg.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	password, err := findFirst(s.page, findTimeout,
		locator{css: `input[type="password"]`},
		locator{css: `input[name="password"]`},
	)
	if err != nil {
		return fmt.Errorf("locate password field: %w", err)
	}
	if err := password.Input(s.cfg.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submit, err := findFirst(s.page, findTimeout,
		locator{css: "button", text: "SIGN IN"},
		locator{css: "button", text: "Sign in"},
		locator{css: "button", text: "LOG IN"},
		locator{css: "button", text: "Log in"},
		locator{css: `button[type="submit"]`},
		locator{css: `input[type="submit"]`},
	)
	if err != nil {
		return fmt.Errorf("locate submit control: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}

	s.settle()
	s.dismissInterstitial()

	// A reachable device search control is the stable authenticated state.
	if _, err := findFirst(s.page, findTimeout, searchLocators...); err != nil {
		return fmt.Errorf("no authenticated state after login: %w", err)
	}

	s.logger.Info("login complete")
	return nil
}

// dismissInterstitial clicks through the passkey prompt when it appears.
func (s *Session) dismissInterstitial() {
	for _, text := range interstitialDismissTexts {
		btn, err := findFirst(s.page, shortTimeout,
			locator{css: `button, a, [role="button"]`, text: text},
		)
		if err != nil {
			continue
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			continue
		}
		s.logger.Info("dismissed post-login interstitial", zap.String("text", text))
		s.settle()
		return
	}
}

// settle waits for the page to stop mutating. Best effort: a noisy page
// that never fully settles is still worth scraping.
func (s *Session) settle() {
	if err := s.page.Timeout(settleTimeout).WaitStable(settleSample); err != nil {
		s.logger.Debug("page did not settle", zap.Error(err))
	}
}

// recoverHome re-navigates to the console landing state after a failed
// interaction so the next lookup starts clean.
func (s *Session) recoverHome() {
	if err := s.page.Timeout(navTimeout).Navigate(s.cfg.URL); err != nil {
		s.logger.Warn("failed to recover console landing page", zap.Error(err))
		return
	}
	s.settle()
}

// screenshot captures a full-page diagnostic artifact. Failures to capture
// are logged, never propagated.
func (s *Session) screenshot(label string) {
	if s.page == nil {
		return
	}
	data, err := s.page.Timeout(shortTimeout * 2).Screenshot(true, nil)
	if err != nil {
		s.logger.Warn("failed to capture screenshot", zap.String("label", label), zap.Error(err))
		return
	}
	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0o755); err != nil {
		s.logger.Warn("failed to create screenshot dir", zap.Error(err))
		return
	}
	path := filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("%s_%s.png", label, s.runID[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("failed to write screenshot", zap.Error(err))
		return
	}
	s.logger.Info("diagnostic screenshot saved", zap.String("path", path))
}

// Close releases the page, browser, and launcher. Idempotent and safe after
// partial initialization.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.closeErr = err
			}
			s.page = nil
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
			s.browser = nil
		}
		if s.launch != nil {
			s.launch.Cleanup()
			s.launch = nil
		}
		s.logger.Info("console session released")
	})
	return s.closeErr
}
