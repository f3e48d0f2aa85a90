package codec

import (
	"fmt"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

type playwrightCompiler struct{}

func (playwrightCompiler) indent() string { return "  " }

func (playwrightCompiler) comment(text string) string { return "// " + text }

func (playwrightCompiler) header(opts Options) []string {
	return []string{
		"const { chromium } = require('playwright');",
		"",
		"(async () => {",
		fmt.Sprintf("  const %s = await chromium.launch();", opts.BrowserVar),
		fmt.Sprintf("  const %s = await %s.newPage();", opts.PageVar, opts.BrowserVar),
	}
}

func (playwrightCompiler) footer(opts Options) []string {
	return []string{
		fmt.Sprintf("  await %s.close();", opts.BrowserVar),
		"})();",
	}
}

func (c playwrightCompiler) statements(a *action.Action, opts Options) []string {
	pg := opts.PageVar

	switch p := a.Payload.(type) {
	case *action.NavigatePayload:
		return []string{fmt.Sprintf("await %s.goto(%s);", pg, jsString(p.URL))}
	case *action.ClickPayload:
		return []string{fmt.Sprintf("await %s.click(%s);", pg, jsString(p.Selector))}
	case *action.TypePayload:
		if p.ClearFirst {
			// fill clears the field before writing.
			return []string{fmt.Sprintf("await %s.fill(%s, %s);", pg, jsString(p.Selector), jsString(p.Text))}
		}
		return []string{fmt.Sprintf("await %s.type(%s, %s);", pg, jsString(p.Selector), jsString(p.Text))}
	case *action.ScrollPayload:
		if p.Selector != "" {
			return []string{fmt.Sprintf("await %s.locator(%s).scrollIntoViewIfNeeded();", pg, jsString(p.Selector))}
		}
		return []string{fmt.Sprintf("await %s.evaluate(() => window.scrollTo(%s, %s));", pg, num(p.X), num(p.Y))}
	case *action.WaitPayload:
		if p.Duration > 0 {
			return []string{fmt.Sprintf("await %s.waitForTimeout(%d);", pg, p.Duration)}
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
		return []string{fmt.Sprintf("await %s.selectOption(%s, %s);", pg, jsString(p.Selector), jsString(p.First()))}
	case *action.CommentPayload:
		return []string{c.comment(p.Text)}
	default:
		return nil
	}
}
