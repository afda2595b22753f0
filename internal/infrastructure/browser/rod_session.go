// Package browser adapts go-rod to the session port used by the login
// automaton and the capture pipeline. Each Open launches a dedicated Chrome
// process so captures never share cookies.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type Provider struct {
	log *logger.Logger
}

func NewProvider(log *logger.Logger) *Provider {
	return &Provider{log: log}
}

func (p *Provider) Open(ctx context.Context, opts port.SessionOptions) (port.Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Leakless(true).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "en-US").
		Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	if opts.ChromeBin != "" {
		l = l.Bin(opts.ChromeBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			p.log.Warn("Failed to override user agent", "error", err.Error())
		}
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.WindowWidth,
			Height:            opts.WindowHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			p.log.Warn("Failed to set viewport", "error", err.Error())
		}
	}

	return &session{launcher: l, browser: b, page: page, log: p.log}, nil
}

type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      *logger.Logger
}

func (s *session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (s *session) Refresh(ctx context.Context) error {
	page := s.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (s *session) WaitReady(ctx context.Context, timeout time.Duration) error {
	return s.page.Context(ctx).Timeout(timeout).WaitLoad()
}

// Find returns the first match without waiting for it to appear; the polling
// loops above this layer decide how long to keep looking.
func (s *session) Find(selector string) (port.Element, error) {
	el, err := s.page.Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &element{el: el}, nil
}

func (s *session) FindAll(selector string) ([]port.Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, mapNotFound(err)
	}
	out := make([]port.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out, nil
}

func (s *session) FindByText(textLower string) (port.Element, error) {
	pattern := "/" + regexp.QuoteMeta(textLower) + "/i"
	el, err := s.page.Sleeper(rod.NotFoundSleeper).
		ElementR("a, button, summary, label, input[type='submit']", pattern)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &element{el: el}, nil
}

func (s *session) Cookie(name string) (string, bool) {
	cookies, err := s.page.Cookies(nil)
	if err != nil {
		s.log.Debug("Failed to read cookies", "error", err.Error())
		return "", false
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func (s *session) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *session) PageSource() string {
	html, err := s.page.HTML()
	if err != nil {
		return ""
	}
	return html
}

func (s *session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (s *session) FullPageScreenshot() ([]byte, error) {
	return s.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (s *session) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

type element struct {
	el *rod.Element
}

func (e *element) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Input(text string) error {
	// Select any pre-filled text so Input replaces instead of appending.
	_ = e.el.SelectAllText()
	return e.el.Input(text)
}

func (e *element) Text() (string, error) {
	return e.el.Text()
}

func (e *element) Attribute(name string) (string, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", port.ErrNotFound
	}
	return *v, nil
}

func (e *element) Visible() bool {
	visible, err := e.el.Visible()
	return err == nil && visible
}

// FontSizePx reports the computed font size, or 0 when it cannot be read.
func (e *element) FontSizePx() float64 {
	res, err := e.el.Eval(`() => getComputedStyle(this).fontSize`)
	if err != nil {
		return 0
	}
	raw := strings.TrimSuffix(strings.TrimSpace(res.Value.Str()), "px")
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return size
}

func mapNotFound(err error) error {
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return port.ErrNotFound
	}
	return err
}
