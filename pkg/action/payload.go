package action

// Payload is the kind-specific body of an Action. Each known kind has a
// fixed field set with explicit defaults; unrecognized kinds are kept as an
// OpaquePayload so a newer recording still round-trips through an older
// engine.
type Payload interface {
	Kind() Kind
	// Map renders the payload as a plain map, the form used for wire
	// serialization, executor dispatch and variable substitution.
	Map() map[string]any
}

// NavigatePayload loads a URL in the page.
type NavigatePayload struct {
	URL       string
	WaitUntil string
	Timeout   int // milliseconds
}

func (p *NavigatePayload) Kind() Kind { return KindNavigate }

func (p *NavigatePayload) Map() map[string]any {
	return map[string]any{
		"url":       p.URL,
		"waitUntil": p.WaitUntil,
		"timeout":   p.Timeout,
	}
}

// ClickPayload clicks an element or a coordinate.
type ClickPayload struct {
	Selector   string
	X          float64
	Y          float64
	Button     string
	ClickCount int
	Humanize   bool
}

func (p *ClickPayload) Kind() Kind { return KindClick }

func (p *ClickPayload) Map() map[string]any {
	return map[string]any{
		"selector":   p.Selector,
		"x":          p.X,
		"y":          p.Y,
		"button":     p.Button,
		"clickCount": p.ClickCount,
		"humanize":   p.Humanize,
	}
}

// TypePayload types text into an element.
type TypePayload struct {
	Selector   string
	Text       string
	ClearFirst bool
	Humanize   bool
	Delay      int // per-keystroke delay in milliseconds
}

func (p *TypePayload) Kind() Kind { return KindType }

func (p *TypePayload) Map() map[string]any {
	return map[string]any{
		"selector":   p.Selector,
		"text":       p.Text,
		"clearFirst": p.ClearFirst,
		"humanize":   p.Humanize,
		"delay":      p.Delay,
	}
}

// ScrollPayload scrolls the page or an element into view.
type ScrollPayload struct {
	X        float64
	Y        float64
	Selector string
	Behavior string
}

func (p *ScrollPayload) Kind() Kind { return KindScroll }

func (p *ScrollPayload) Map() map[string]any {
	return map[string]any{
		"x":        p.X,
		"y":        p.Y,
		"selector": p.Selector,
		"behavior": p.Behavior,
	}
}

// WaitPayload waits for a fixed duration or for a selector to satisfy a
// condition. Exactly one of Duration or Selector is meaningful.
type WaitPayload struct {
	Duration  int // milliseconds; 0 means wait on Selector
	Selector  string
	Condition string
	Timeout   int // milliseconds
}

func (p *WaitPayload) Kind() Kind { return KindWait }

func (p *WaitPayload) Map() map[string]any {
	return map[string]any{
		"duration":  p.Duration,
		"selector":  p.Selector,
		"condition": p.Condition,
		"timeout":   p.Timeout,
	}
}

// ScreenshotPayload captures the page or an element.
type ScreenshotPayload struct {
	Name     string
	FullPage bool
	Selector string
	Format   string
}

func (p *ScreenshotPayload) Kind() Kind { return KindScreenshot }

func (p *ScreenshotPayload) Map() map[string]any {
	return map[string]any{
		"name":     p.Name,
		"fullPage": p.FullPage,
		"selector": p.Selector,
		"format":   p.Format,
	}
}

// ExecuteScriptPayload evaluates a script in the page.
type ExecuteScriptPayload struct {
	Script string
}

func (p *ExecuteScriptPayload) Kind() Kind { return KindExecuteScript }

func (p *ExecuteScriptPayload) Map() map[string]any {
	return map[string]any{"script": p.Script}
}

// KeyPressPayload presses a keyboard key, optionally on a focused element.
type KeyPressPayload struct {
	Key       string
	Selector  string
	Modifiers []string
}

func (p *KeyPressPayload) Kind() Kind { return KindKeyPress }

func (p *KeyPressPayload) Map() map[string]any {
	return map[string]any{
		"key":       p.Key,
		"selector":  p.Selector,
		"modifiers": cloneStrings(p.Modifiers),
	}
}

// HoverPayload moves the mouse over an element.
type HoverPayload struct {
	Selector string
}

func (p *HoverPayload) Kind() Kind { return KindHover }

func (p *HoverPayload) Map() map[string]any {
	return map[string]any{"selector": p.Selector}
}

// SelectPayload chooses option values in a dropdown. Replay and script
// generation use the first value.
type SelectPayload struct {
	Selector string
	Values   []string
}

func (p *SelectPayload) Kind() Kind { return KindSelect }

func (p *SelectPayload) Map() map[string]any {
	return map[string]any{
		"selector": p.Selector,
		"values":   cloneStrings(p.Values),
	}
}

// First returns the first select value, or "".
func (p *SelectPayload) First() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// FocusPayload focuses an element.
type FocusPayload struct {
	Selector string
}

func (p *FocusPayload) Kind() Kind { return KindFocus }

func (p *FocusPayload) Map() map[string]any {
	return map[string]any{"selector": p.Selector}
}

// BlurPayload removes focus from an element.
type BlurPayload struct {
	Selector string
}

func (p *BlurPayload) Kind() Kind { return KindBlur }

func (p *BlurPayload) Map() map[string]any {
	return map[string]any{"selector": p.Selector}
}

// DragDropPayload drags one element onto another.
type DragDropPayload struct {
	SourceSelector string
	TargetSelector string
}

func (p *DragDropPayload) Kind() Kind { return KindDragDrop }

func (p *DragDropPayload) Map() map[string]any {
	return map[string]any{
		"sourceSelector": p.SourceSelector,
		"targetSelector": p.TargetSelector,
	}
}

// AssertPayload checks a condition against an element.
type AssertPayload struct {
	Selector  string
	Condition string
	Expected  string
}

func (p *AssertPayload) Kind() Kind { return KindAssert }

func (p *AssertPayload) Map() map[string]any {
	return map[string]any{
		"selector":  p.Selector,
		"condition": p.Condition,
		"expected":  p.Expected,
	}
}

// CommentPayload is an annotation with no runtime effect.
type CommentPayload struct {
	Text string
}

func (p *CommentPayload) Kind() Kind { return KindComment }

func (p *CommentPayload) Map() map[string]any {
	return map[string]any{"text": p.Text}
}

// OpaquePayload carries an unrecognized kind verbatim.
type OpaquePayload struct {
	RawKind Kind
	Fields  map[string]any
}

func (p *OpaquePayload) Kind() Kind { return p.RawKind }

func (p *OpaquePayload) Map() map[string]any {
	return cloneMap(p.Fields)
}

// newPayload builds the typed payload for kind from loosely typed params,
// applying per-kind defaults. It never fails: missing fields default and an
// unknown kind becomes an OpaquePayload.
func newPayload(kind Kind, params map[string]any) Payload {
	if params == nil {
		params = map[string]any{}
	}
	switch kind {
	case KindNavigate:
		return &NavigatePayload{
			URL:       strField(params, "url", ""),
			WaitUntil: strField(params, "waitUntil", "load"),
			Timeout:   intField(params, "timeout", 30000),
		}
	case KindClick:
		return &ClickPayload{
			Selector:   strField(params, "selector", ""),
			X:          floatField(params, "x", 0),
			Y:          floatField(params, "y", 0),
			Button:     strField(params, "button", "left"),
			ClickCount: intField(params, "clickCount", 1),
			Humanize:   boolField(params, "humanize", true),
		}
	case KindType:
		return &TypePayload{
			Selector:   strField(params, "selector", ""),
			Text:       strField(params, "text", ""),
			ClearFirst: boolField(params, "clearFirst", false),
			Humanize:   boolField(params, "humanize", true),
			Delay:      intField(params, "delay", 0),
		}
	case KindScroll:
		return &ScrollPayload{
			X:        floatField(params, "x", 0),
			Y:        floatField(params, "y", 0),
			Selector: strField(params, "selector", ""),
			Behavior: strField(params, "behavior", "smooth"),
		}
	case KindWait:
		return &WaitPayload{
			Duration:  intField(params, "duration", 0),
			Selector:  strField(params, "selector", ""),
			Condition: strField(params, "condition", "visible"),
			Timeout:   intField(params, "timeout", 30000),
		}
	case KindScreenshot:
		return &ScreenshotPayload{
			Name:     strField(params, "name", ""),
			FullPage: boolField(params, "fullPage", false),
			Selector: strField(params, "selector", ""),
			Format:   strField(params, "format", "png"),
		}
	case KindExecuteScript:
		return &ExecuteScriptPayload{
			Script: strField(params, "script", ""),
		}
	case KindKeyPress:
		return &KeyPressPayload{
			Key:       strField(params, "key", ""),
			Selector:  strField(params, "selector", ""),
			Modifiers: strSliceField(params, "modifiers"),
		}
	case KindHover:
		return &HoverPayload{Selector: strField(params, "selector", "")}
	case KindSelect:
		values := strSliceField(params, "values")
		if len(values) == 0 {
			if v := strField(params, "value", ""); v != "" {
				values = []string{v}
			}
		}
		return &SelectPayload{
			Selector: strField(params, "selector", ""),
			Values:   values,
		}
	case KindFocus:
		return &FocusPayload{Selector: strField(params, "selector", "")}
	case KindBlur:
		return &BlurPayload{Selector: strField(params, "selector", "")}
	case KindDragDrop:
		return &DragDropPayload{
			SourceSelector: strField(params, "sourceSelector", ""),
			TargetSelector: strField(params, "targetSelector", ""),
		}
	case KindAssert:
		return &AssertPayload{
			Selector:  strField(params, "selector", ""),
			Condition: strField(params, "condition", "exists"),
			Expected:  strField(params, "expected", ""),
		}
	case KindComment:
		return &CommentPayload{Text: strField(params, "text", "")}
	default:
		return &OpaquePayload{RawKind: kind, Fields: cloneMap(params)}
	}
}
