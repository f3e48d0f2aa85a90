package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// Format names a script compilation target.
type Format string

const (
	FormatSeleniumPython Format = "selenium-python"
	FormatPuppeteerJS    Format = "puppeteer-js"
	FormatPlaywrightJS   Format = "playwright-js"
)

// ErrUnknownFormat is returned when Compile is asked for a target it does
// not know.
var ErrUnknownFormat = fmt.Errorf("unknown compile format")

// Options controls script generation. The zero value emits boilerplate and
// uses the conventional handle names for each target.
type Options struct {
	OmitBoilerplate bool
	PageVar         string // puppeteer/playwright page handle
	BrowserVar      string // puppeteer/playwright browser handle
	DriverVar       string // selenium driver handle
}

func (o Options) withDefaults() Options {
	out := o
	if out.PageVar == "" {
		out.PageVar = "page"
	}
	if out.BrowserVar == "" {
		out.BrowserVar = "browser"
	}
	if out.DriverVar == "" {
		out.DriverVar = "driver"
	}
	return out
}

// compiler emits target-specific statements for one action. A nil statements
// result means the target has no mapping for the kind; Compile degrades it to
// a comment instead of failing.
type compiler interface {
	header(opts Options) []string
	footer(opts Options) []string
	statements(a *action.Action, opts Options) []string
	comment(text string) string
	indent() string
}

// Compile renders the action sequence as a script for the given target.
// Unsupported kinds degrade to comments; compilation never aborts mid-way.
func Compile(format Format, actions []*action.Action, opts Options) (string, error) {
	var c compiler
	switch format {
	case FormatSeleniumPython:
		c = seleniumCompiler{}
	case FormatPuppeteerJS:
		c = puppeteerCompiler{}
	case FormatPlaywrightJS:
		c = playwrightCompiler{}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	opts = opts.withDefaults()

	var lines []string
	indent := ""
	if !opts.OmitBoilerplate {
		lines = append(lines, c.header(opts)...)
		indent = c.indent()
	}
	for _, a := range actions {
		stmts := c.statements(a, opts)
		if stmts == nil {
			stmts = []string{c.comment(fmt.Sprintf("unsupported action kind: %s", a.Kind))}
		}
		for _, stmt := range stmts {
			lines = append(lines, indent+stmt)
		}
	}
	if !opts.OmitBoilerplate {
		lines = append(lines, c.footer(opts)...)
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// num formats a coordinate without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// seconds renders a millisecond count as a python sleep argument.
func seconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', -1, 64)
}
