package codec

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

func sampleActions() []*action.Action {
	nav := action.New(action.KindNavigate, map[string]any{"url": "https://x"})
	nav.TimeSinceStart = 0
	nav.PageURL = "https://x"

	click := action.New(action.KindClick, map[string]any{"selector": "#a"})
	click.TimeSinceStart = 1200 * time.Millisecond
	click.TimeSincePrevious = 1200 * time.Millisecond

	typed := action.New(action.KindType, map[string]any{"selector": "#q", "text": "hello", "clearFirst": true})
	typed.TimeSinceStart = 2 * time.Second
	typed.TimeSincePrevious = 800 * time.Millisecond
	typed.Metadata = map[string]any{"merged": true}

	return []*action.Action{nav, click, typed}
}

func TestPortableRoundTrip(t *testing.T) {
	actions := sampleActions()

	back := FromPortable(ToPortable(actions))

	require.Len(t, back, len(actions))
	for i := range actions {
		assert.Equal(t, actions[i].ID, back[i].ID)
		assert.Equal(t, actions[i].Kind, back[i].Kind)
		assert.Equal(t, actions[i].TimeSinceStart, back[i].TimeSinceStart)
		assert.Equal(t, actions[i].TimeSincePrevious, back[i].TimeSincePrevious)
		assert.Equal(t, actions[i].Payload, back[i].Payload)
		assert.Equal(t, actions[i].Metadata, back[i].Metadata)
		assert.Equal(t, actions[i].PageURL, back[i].PageURL)
		assert.Equal(t, actions[i].PageTitle, back[i].PageTitle)
	}
}

func TestPortableRoundTripThroughJSON(t *testing.T) {
	records := ToPortable(sampleActions())

	data, err := json.Marshal(records)
	require.NoError(t, err)

	var decoded []PortableAction
	require.NoError(t, json.Unmarshal(data, &decoded))

	back := FromPortable(decoded)
	orig := FromPortable(records)
	for i := range orig {
		assert.Equal(t, orig[i].Payload, back[i].Payload)
	}
}

func TestPortableUnknownKindSurvives(t *testing.T) {
	a := action.New(action.Kind("swipe"), map[string]any{"direction": "left"})

	back := FromPortable(ToPortable([]*action.Action{a}))

	require.Len(t, back, 1)
	p, ok := back[0].Payload.(*action.OpaquePayload)
	require.True(t, ok)
	assert.Equal(t, "left", p.Fields["direction"])
}

func TestCompilePuppeteerScenario(t *testing.T) {
	actions := []*action.Action{
		action.New(action.KindNavigate, map[string]any{"url": "https://x"}),
		action.New(action.KindClick, map[string]any{"selector": "#a"}),
	}

	out, err := Compile(FormatPuppeteerJS, actions, Options{OmitBoilerplate: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "await page.goto('https://x');", lines[0])
	assert.Equal(t, "await page.click('#a');", lines[1])
}

func TestCompileCustomPageVar(t *testing.T) {
	actions := []*action.Action{action.New(action.KindNavigate, map[string]any{"url": "https://x"})}

	out, err := Compile(FormatPuppeteerJS, actions, Options{OmitBoilerplate: true, PageVar: "tab"})
	require.NoError(t, err)

	assert.Contains(t, out, "await tab.goto('https://x');")
}

func TestCompileBoilerplate(t *testing.T) {
	actions := []*action.Action{action.New(action.KindNavigate, map[string]any{"url": "https://x"})}

	out, err := Compile(FormatPuppeteerJS, actions, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "const puppeteer = require('puppeteer');")
	assert.Contains(t, out, "const browser = await puppeteer.launch();")
	assert.Contains(t, out, "await browser.close();")
	assert.Contains(t, out, "  await page.goto('https://x');")

	out, err = Compile(FormatPlaywrightJS, actions, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "const { chromium } = require('playwright');")

	out, err = Compile(FormatSeleniumPython, actions, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "from selenium import webdriver")
	assert.Contains(t, out, "driver = webdriver.Chrome()")
	assert.Contains(t, out, "driver.quit()")
}

func TestCompileEscapesStrings(t *testing.T) {
	tricky := action.New(action.KindType, map[string]any{
		"selector": "#f",
		"text":     "it's a \"test\"\nwith \\ stuff",
	})

	out, err := Compile(FormatPuppeteerJS, []*action.Action{tricky}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, `it\'s a "test"\nwith \\ stuff`)
	// Exactly one statement despite the embedded newline.
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 1)

	out, err = Compile(FormatSeleniumPython, []*action.Action{tricky}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, `it's a \"test\"\nwith \\ stuff`)
}

func TestCompileUnsupportedKindDegradesToComment(t *testing.T) {
	actions := []*action.Action{
		action.New(action.KindDragDrop, map[string]any{"sourceSelector": "#a", "targetSelector": "#b"}),
		action.New(action.KindClick, map[string]any{"selector": "#c"}),
	}

	out, err := Compile(FormatPuppeteerJS, actions, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "// unsupported action kind: drag_drop")
	assert.Contains(t, out, "await page.click('#c');")

	out, err = Compile(FormatSeleniumPython, actions, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "# unsupported action kind: drag_drop")
}

func TestCompileKeyMapping(t *testing.T) {
	press := action.New(action.KindKeyPress, map[string]any{"key": "Enter"})

	out, err := Compile(FormatSeleniumPython, []*action.Action{press}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "send_keys(Keys.ENTER)")

	out, err = Compile(FormatPlaywrightJS, []*action.Action{press}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "await page.keyboard.press('Enter');")
}

func TestCompileWaitVariants(t *testing.T) {
	byDuration := action.New(action.KindWait, map[string]any{"duration": 1500})
	bySelector := action.New(action.KindWait, map[string]any{"selector": ".done", "timeout": 10000})

	out, err := Compile(FormatSeleniumPython, []*action.Action{byDuration, bySelector}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "time.sleep(1.5)")
	assert.Contains(t, out, `WebDriverWait(driver, 10).until(EC.presence_of_element_located((By.CSS_SELECTOR, ".done")))`)

	out, err = Compile(FormatPuppeteerJS, []*action.Action{byDuration, bySelector}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "await new Promise(r => setTimeout(r, 1500));")
	assert.Contains(t, out, "await page.waitForSelector('.done', { timeout: 10000 });")
}

func TestCompileCommentKind(t *testing.T) {
	note := action.New(action.KindComment, map[string]any{"text": "login flow"})

	out, err := Compile(FormatPuppeteerJS, []*action.Action{note}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "// login flow")

	out, err = Compile(FormatSeleniumPython, []*action.Action{note}, Options{OmitBoilerplate: true})
	require.NoError(t, err)
	assert.Contains(t, out, "# login flow")
}

func TestCompileUnknownFormat(t *testing.T) {
	_, err := Compile(Format("cypress"), nil, Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportBundle(t *testing.T) {
	rec := &action.Recording{
		ID:       "rec-9",
		Name:     "flow",
		Actions:  sampleActions(),
		Duration: 3 * time.Second,
	}

	bundle := ExportBundle(rec)

	assert.Equal(t, "rec-9", bundle.ID)
	assert.Equal(t, 3, bundle.ActionCount)
	assert.Equal(t, int64(3000), bundle.Duration)
	require.Len(t, bundle.Actions, 3)
	assert.Equal(t, "navigate", bundle.Actions[0].Kind)
}
