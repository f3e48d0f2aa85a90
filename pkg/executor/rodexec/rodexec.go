// Package rodexec drives a locally launched Chromium page through go-rod,
// implementing the executor contract without a browser extension.
package rodexec

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/executor"
)

// Config controls the launched browser.
type Config struct {
	Headless  bool   `json:"headless"`
	Proxy     string `json:"proxy,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// ControlURL attaches to an already-running browser instead of
	// launching one.
	ControlURL string `json:"control_url,omitempty"`
}

// Executor owns one browser and one page.
type Executor struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
}

// New creates an executor; call Start to launch the browser.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// Start launches the browser and opens a blank page.
func (e *Executor) Start() error {
	return rod.Try(func() {
		url := e.cfg.ControlURL
		if url == "" {
			l := launcher.New().Headless(e.cfg.Headless)
			if e.cfg.Proxy != "" {
				l = l.Proxy(e.cfg.Proxy)
			}
			url = l.MustLaunch()
		}
		e.browser = rod.New().ControlURL(url).MustConnect()
		e.page = e.browser.MustPage("")
	})
}

// Stop closes the browser.
func (e *Executor) Stop() error {
	if e.browser != nil {
		return e.browser.Close()
	}
	return nil
}

var rodKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
}

// Dispatch implements executor.Executor. Failures inside the page become an
// unsuccessful Response rather than an error; only a missing browser is an
// error.
func (e *Executor) Dispatch(ctx context.Context, req executor.Request) (executor.Response, error) {
	if e.page == nil {
		return executor.Response{}, executor.ErrNotConnected
	}

	data := map[string]any{}
	err := rod.Try(func() {
		e.perform(ctx, req, data)
	})
	if err != nil {
		return executor.Response{
			CorrelationID: req.CorrelationID,
			Success:       false,
			Error:         err.Error(),
		}, nil
	}
	return executor.Response{
		CorrelationID: req.CorrelationID,
		Success:       true,
		Data:          data,
	}, nil
}

// perform runs inside rod.Try: Must panics become the dispatch failure.
func (e *Executor) perform(ctx context.Context, req executor.Request, data map[string]any) {
	page := e.page.Context(ctx)
	payload := action.New(req.Kind, req.Payload).Payload

	switch p := payload.(type) {
	case *action.NavigatePayload:
		page.MustNavigate(p.URL).MustWaitLoad()
		info := page.MustInfo()
		data["url"] = info.URL
		data["title"] = info.Title
	case *action.ClickPayload:
		el := page.MustElement(p.Selector)
		for i := 0; i < p.ClickCount; i++ {
			el.MustClick()
		}
	case *action.TypePayload:
		el := page.MustElement(p.Selector)
		if p.ClearFirst {
			el.MustSelectAllText()
		}
		el.MustInput(p.Text)
	case *action.ScrollPayload:
		if p.Selector != "" {
			page.MustElement(p.Selector).MustScrollIntoView()
		} else {
			page.Mouse.MustScroll(p.X, p.Y)
		}
	case *action.WaitPayload:
		if p.Duration > 0 {
			select {
			case <-time.After(time.Duration(p.Duration) * time.Millisecond):
			case <-ctx.Done():
				panic(ctx.Err())
			}
		} else {
			page.MustElement(p.Selector)
		}
	case *action.ScreenshotPayload:
		var buf []byte
		if p.FullPage {
			buf = page.MustScreenshotFullPage()
		} else if p.Selector != "" {
			buf = page.MustElement(p.Selector).MustScreenshot()
		} else {
			buf = page.MustScreenshot()
		}
		data["name"] = p.Name
		data["format"] = p.Format
		data["image"] = base64.StdEncoding.EncodeToString(buf)
	case *action.ExecuteScriptPayload:
		res := page.MustEval(fmt.Sprintf("() => { %s }", p.Script))
		data["result"] = res.Val()
	case *action.KeyPressPayload:
		key, ok := rodKeys[p.Key]
		if !ok {
			runes := []rune(p.Key)
			if len(runes) != 1 {
				panic(fmt.Errorf("unknown key %q", p.Key))
			}
			key = input.Key(runes[0])
		}
		page.Keyboard.MustType(key)
	case *action.HoverPayload:
		page.MustElement(p.Selector).MustHover()
	case *action.SelectPayload:
		page.MustElement(p.Selector).MustSelect(p.First())
	case *action.FocusPayload:
		page.MustElement(p.Selector).MustFocus()
	case *action.BlurPayload:
		page.MustElement(p.Selector).MustEval(`() => this.blur()`)
	case *action.AssertPayload:
		// Only existence checks are supported locally.
		page.MustElement(p.Selector)
	case *action.CommentPayload:
		// Annotations have no runtime effect.
	default:
		panic(fmt.Errorf("unsupported action kind: %s", req.Kind))
	}
}
