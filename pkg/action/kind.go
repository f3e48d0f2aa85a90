package action

// Kind identifies the type of a recorded action.
type Kind string

const (
	KindNavigate      Kind = "navigate"
	KindClick         Kind = "click"
	KindType          Kind = "type"
	KindScroll        Kind = "scroll"
	KindWait          Kind = "wait"
	KindScreenshot    Kind = "screenshot"
	KindExecuteScript Kind = "execute_script"
	KindKeyPress      Kind = "key_press"
	KindHover         Kind = "hover"
	KindSelect        Kind = "select"
	KindFocus         Kind = "focus"
	KindBlur          Kind = "blur"
	KindDragDrop      Kind = "drag_drop"
	KindAssert        Kind = "assert"
	KindComment       Kind = "comment"
)

// knownKinds is the closed enumeration; anything else is carried as an
// opaque payload for forward compatibility.
var knownKinds = map[Kind]bool{
	KindNavigate:      true,
	KindClick:         true,
	KindType:          true,
	KindScroll:        true,
	KindWait:          true,
	KindScreenshot:    true,
	KindExecuteScript: true,
	KindKeyPress:      true,
	KindHover:         true,
	KindSelect:        true,
	KindFocus:         true,
	KindBlur:          true,
	KindDragDrop:      true,
	KindAssert:        true,
	KindComment:       true,
}

// Known reports whether k is part of the closed kind enumeration.
func Known(k Kind) bool {
	return knownKinds[k]
}
