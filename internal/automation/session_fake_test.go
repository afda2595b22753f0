package automation

import (
	"context"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
)

// fakeElement is a deterministic port.Element for automaton tests.
type fakeElement struct {
	text     string
	fontPx   float64
	hidden   bool
	attrs    map[string]string
	clickErr error
	inputs   []string
	onClick  func()
}

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Input(text string) error {
	e.inputs = append(e.inputs, text)
	return nil
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(name string) (string, error) {
	if v, ok := e.attrs[name]; ok {
		return v, nil
	}
	return "", port.ErrNotFound
}

func (e *fakeElement) Visible() bool {
	return !e.hidden
}

func (e *fakeElement) FontSizePx() float64 {
	return e.fontPx
}

// fakeSession is an in-memory page whose state tests mutate through element
// click hooks and navigation hooks.
type fakeSession struct {
	cookies  map[string]string
	elements map[string][]*fakeElement
	byText   map[string]*fakeElement

	url    string
	source string

	shot     []byte
	fullShot []byte
	shotErr  error

	navErr       error
	waitReadyErr error
	onNavigate   func(url string)

	navigations []string
	refreshes   int
	closed      int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		cookies:  map[string]string{},
		elements: map[string][]*fakeElement{},
		byText:   map[string]*fakeElement{},
		shot:     []byte("png-viewport"),
		fullShot: []byte("png-fullpage"),
	}
}

func (s *fakeSession) authenticate() {
	s.cookies["user_session"] = "tok"
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	if s.navErr != nil {
		return s.navErr
	}
	s.navigations = append(s.navigations, url)
	s.url = url
	if s.onNavigate != nil {
		s.onNavigate(url)
	}
	return nil
}

func (s *fakeSession) Refresh(context.Context) error {
	s.refreshes++
	return nil
}

func (s *fakeSession) WaitReady(context.Context, time.Duration) error {
	return s.waitReadyErr
}

func (s *fakeSession) Find(selector string) (port.Element, error) {
	els := s.elements[selector]
	if len(els) == 0 {
		return nil, port.ErrNotFound
	}
	return els[0], nil
}

func (s *fakeSession) FindAll(selector string) ([]port.Element, error) {
	els := s.elements[selector]
	out := make([]port.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (s *fakeSession) FindByText(textLower string) (port.Element, error) {
	if el, ok := s.byText[textLower]; ok {
		return el, nil
	}
	return nil, port.ErrNotFound
}

func (s *fakeSession) Cookie(name string) (string, bool) {
	v, ok := s.cookies[name]
	return v, ok
}

func (s *fakeSession) CurrentURL() string {
	return s.url
}

func (s *fakeSession) PageSource() string {
	return s.source
}

func (s *fakeSession) Screenshot() ([]byte, error) {
	if s.shotErr != nil {
		return nil, s.shotErr
	}
	return s.shot, nil
}

func (s *fakeSession) FullPageScreenshot() ([]byte, error) {
	if s.shotErr != nil {
		return nil, s.shotErr
	}
	return s.fullShot, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeClock drives injected sleep/now so polling loops run instantly.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingRelay captures relayed challenges.
type recordingRelay struct {
	challenges []port.ApprovalChallenge
	err        error
}

func (r *recordingRelay) Relay(_ context.Context, challenge port.ApprovalChallenge) error {
	r.challenges = append(r.challenges, challenge)
	return r.err
}
