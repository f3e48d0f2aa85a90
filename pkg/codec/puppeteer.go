package codec

import (
	"fmt"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// jsKeys normalizes well-known key names to the names puppeteer and
// playwright expect; anything else passes through untouched.
var jsKeys = map[string]string{
	"Enter":      "Enter",
	"Tab":        "Tab",
	"Escape":     "Escape",
	"Backspace":  "Backspace",
	"Delete":     "Delete",
	"ArrowUp":    "ArrowUp",
	"ArrowDown":  "ArrowDown",
	"ArrowLeft":  "ArrowLeft",
	"ArrowRight": "ArrowRight",
}

func jsKey(name string) string {
	if mapped, ok := jsKeys[name]; ok {
		return mapped
	}
	return name
}

type puppeteerCompiler struct{}

func (puppeteerCompiler) indent() string { return "  " }

func (puppeteerCompiler) comment(text string) string { return "// " + text }

func (puppeteerCompiler) header(opts Options) []string {
	return []string{
		"const puppeteer = require('puppeteer');",
		"",
		"(async () => {",
		fmt.Sprintf("  const %s = await puppeteer.launch();", opts.BrowserVar),
		fmt.Sprintf("  const %s = await %s.newPage();", opts.PageVar, opts.BrowserVar),
	}
}

func (puppeteerCompiler) footer(opts Options) []string {
	return []string{
		fmt.Sprintf("  await %s.close();", opts.BrowserVar),
		"})();",
	}
}

func (c puppeteerCompiler) statements(a *action.Action, opts Options) []string {
	pg := opts.PageVar

	switch p := a.Payload.(type) {
	case *action.NavigatePayload:
		return []string{fmt.Sprintf("await %s.goto(%s);", pg, jsString(p.URL))}
	case *action.ClickPayload:
		return []string{fmt.Sprintf("await %s.click(%s);", pg, jsString(p.Selector))}
	case *action.TypePayload:
		if p.ClearFirst {
			return []string{
				fmt.Sprintf("await %s.click(%s, { clickCount: 3 });", pg, jsString(p.Selector)),
				fmt.Sprintf("await %s.type(%s, %s);", pg, jsString(p.Selector), jsString(p.Text)),
			}
		}
		return []string{fmt.Sprintf("await %s.type(%s, %s);", pg, jsString(p.Selector), jsString(p.Text))}
	case *action.ScrollPayload:
		if p.Selector != "" {
			return []string{fmt.Sprintf("await %s.$eval(%s, el => el.scrollIntoView());", pg, jsString(p.Selector))}
		}
		return []string{fmt.Sprintf("await %s.evaluate(() => window.scrollTo(%s, %s));", pg, num(p.X), num(p.Y))}
	case *action.WaitPayload:
		if p.Duration > 0 {
			return []string{fmt.Sprintf("await new Promise(r => setTimeout(r, %d));", p.Duration)}
		}
		return []string{fmt.Sprintf("await %s.waitForSelector(%s, { timeout: %d });", pg, jsString(p.Selector), p.Timeout)}
	case *action.ScreenshotPayload:
		name := p.Name
		if name == "" {
			name = "screenshot"
		}
		return []string{fmt.Sprintf("await %s.screenshot({ path: %s, fullPage: %t });", pg, jsString(name+".png"), p.FullPage)}
	case *action.ExecuteScriptPayload:
		return []string{fmt.Sprintf("await %s.evaluate(%s);", pg, jsString(p.Script))}
	case *action.KeyPressPayload:
		return []string{fmt.Sprintf("await %s.keyboard.press(%s);", pg, jsString(jsKey(p.Key)))}
	case *action.HoverPayload:
		return []string{fmt.Sprintf("await %s.hover(%s);", pg, jsString(p.Selector))}
	case *action.SelectPayload:
		return []string{fmt.Sprintf("await %s.select(%s, %s);", pg, jsString(p.Selector), jsString(p.First()))}
	case *action.CommentPayload:
		return []string{c.comment(p.Text)}
	default:
		return nil
	}
}
