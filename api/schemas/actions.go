// ./api/schemas/actions.go
package schemas

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// -- nth selection --

// Nth selects which of a selector's matches an action targets. The zero
// value targets the first match; a JSON null targets every match; -1 targets
// the last; any other index out of range produces an empty result rather
// than an error.
type Nth struct {
	all bool
	idx int
}

// NthAll targets every matched element.
func NthAll() Nth { return Nth{all: true} }

// NthIndex targets the element at idx; -1 means the last match.
func NthIndex(idx int) Nth { return Nth{idx: idx} }

// NthLast targets the last matched element.
func NthLast() Nth { return Nth{idx: -1} }

// All reports whether every match is targeted.
func (n Nth) All() bool { return n.all }

// Index returns the targeted index; meaningless when All is true.
func (n Nth) Index() int { return n.idx }

func (n Nth) MarshalJSON() ([]byte, error) {
	if n.all {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.idx)), nil
}

func (n *Nth) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Nth{all: true}
		return nil
	}
	var idx int
	if err := json.Unmarshal(b, &idx); err != nil {
		return fmt.Errorf("nth must be an integer or null: %w", err)
	}
	*n = Nth{idx: idx}
	return nil
}

// -- action variants --

// Action is the closed set of operations the dispatcher and the interactor
// understand. Every variant is a struct carrying its own parameters; the
// wire form is an object tagged with an "action" field. New variants must be
// added to DecodeAction, EncodeAction, and every switch that consumes the
// type.
type Action interface {
	// Tag returns the wire name of the variant.
	Tag() string

	isAction()
}

// Selector-context variants.
type (
	// HTMLAction extracts the outer HTML of each matched element.
	HTMLAction struct{}

	// TextAction extracts trimmed text content. In an interaction sequence
	// it captures the whole page body instead.
	TextAction struct{}

	// ClickAction clicks the targeted element(s).
	ClickAction struct {
		Nth Nth
	}

	// FillAction sets the value of the targeted input element(s).
	FillAction struct {
		Value string
		Nth   Nth
	}

	// AttributeAction reads the named attribute off each matched element.
	// A missing attribute yields an empty string, not an error.
	AttributeAction struct {
		Name string
	}

	// RemoveAction deletes the targeted element(s) from the live DOM.
	RemoveAction struct {
		Nth Nth
	}
)

// Interaction-only variants.
type (
	// ScreenshotAction captures the page as PNG bytes.
	ScreenshotAction struct {
		FullPage bool
	}

	// ScrollAction scrolls by a wheel delta.
	ScrollAction struct {
		DX float64
		DY float64
	}

	// ScrollToBottomAction scrolls stepwise until the bottom of the page is
	// reached or the budget runs out. Delays and the budget are in seconds.
	ScrollToBottomAction struct {
		StepPixels float64
		StepDelay  float64
		Timeout    float64
	}

	// MoveAction moves the pointer to viewport coordinates over the given
	// number of intermediate steps.
	MoveAction struct {
		X     float64
		Y     float64
		Steps int
	}

	// MouseClickAction clicks at viewport coordinates. Delay is the
	// press-release gap in milliseconds.
	MouseClickAction struct {
		X          float64
		Y          float64
		Button     string
		ClickCount int
		Delay      float64
	}

	// IdleAction sleeps for the given number of seconds.
	IdleAction struct {
		Duration float64
	}

	// LoginAction sets HTTP basic-auth credentials on the owning context;
	// empty credentials clear them.
	LoginAction struct {
		Username string
		Password string
	}
)

func (HTMLAction) Tag() string           { return "html" }
func (TextAction) Tag() string           { return "text" }
func (ClickAction) Tag() string          { return "click" }
func (FillAction) Tag() string           { return "fill" }
func (AttributeAction) Tag() string      { return "attribute" }
func (RemoveAction) Tag() string         { return "remove" }
func (ScreenshotAction) Tag() string     { return "screenshot" }
func (ScrollAction) Tag() string         { return "scroll" }
func (ScrollToBottomAction) Tag() string { return "scroll_to_bottom" }
func (MoveAction) Tag() string           { return "move" }
func (MouseClickAction) Tag() string     { return "mouse_click" }
func (IdleAction) Tag() string           { return "idle" }
func (LoginAction) Tag() string          { return "login" }

func (HTMLAction) isAction()           {}
func (TextAction) isAction()           {}
func (ClickAction) isAction()          {}
func (FillAction) isAction()           {}
func (AttributeAction) isAction()      {}
func (RemoveAction) isAction()         {}
func (ScreenshotAction) isAction()     {}
func (ScrollAction) isAction()         {}
func (ScrollToBottomAction) isAction() {}
func (MouseClickAction) isAction()     {}
func (MoveAction) isAction()           {}
func (IdleAction) isAction()           {}
func (LoginAction) isAction()          {}

// actionEnvelope is the union of every wire field an action object may carry.
type actionEnvelope struct {
	Action     string  `json:"action"`
	Nth        Nth     `json:"nth"`
	Value      string  `json:"value"`
	Name       string  `json:"name"`
	FullPage   bool    `json:"full_page"`
	DX         float64 `json:"dx"`
	DY         float64 `json:"dy"`
	StepPixels float64 `json:"step_pixels"`
	StepDelay  float64 `json:"step_delay"`
	Timeout    float64 `json:"timeout"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Steps      int     `json:"steps"`
	Button     string  `json:"button"`
	ClickCount int     `json:"click_count"`
	Delay      float64 `json:"delay"`
	Duration   float64 `json:"duration"`
	Username   string  `json:"username"`
	Password   string  `json:"password"`
}

// DecodeAction turns one wire object into its variant. Unknown tags are
// rejected here so they never reach the execution layers.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed action: %w", err)
	}

	switch env.Action {
	case "html":
		return HTMLAction{}, nil
	case "text":
		return TextAction{}, nil
	case "click":
		return ClickAction{Nth: env.Nth}, nil
	case "fill":
		return FillAction{Value: env.Value, Nth: env.Nth}, nil
	case "attribute":
		if env.Name == "" {
			return nil, fmt.Errorf("attribute action requires a name")
		}
		return AttributeAction{Name: env.Name}, nil
	case "remove":
		return RemoveAction{Nth: env.Nth}, nil
	case "screenshot":
		return ScreenshotAction{FullPage: env.FullPage}, nil
	case "scroll":
		return ScrollAction{DX: env.DX, DY: env.DY}, nil
	case "scroll_to_bottom":
		a := ScrollToBottomAction{StepPixels: env.StepPixels, StepDelay: env.StepDelay, Timeout: env.Timeout}
		if a.StepPixels <= 0 {
			a.StepPixels = 500
		}
		if a.Timeout <= 0 {
			a.Timeout = 10
		}
		return a, nil
	case "move":
		a := MoveAction{X: env.X, Y: env.Y, Steps: env.Steps}
		if a.Steps < 1 {
			a.Steps = 1
		}
		return a, nil
	case "mouse_click":
		a := MouseClickAction{X: env.X, Y: env.Y, Button: env.Button, ClickCount: env.ClickCount, Delay: env.Delay}
		if a.Button == "" {
			a.Button = "left"
		}
		if a.ClickCount < 1 {
			a.ClickCount = 1
		}
		return a, nil
	case "idle":
		return IdleAction{Duration: env.Duration}, nil
	case "login":
		return LoginAction{Username: env.Username, Password: env.Password}, nil
	case "":
		return nil, fmt.Errorf("action object is missing the action tag")
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}

// EncodeAction renders a variant back to its wire object.
func EncodeAction(a Action) (json.RawMessage, error) {
	obj := map[string]any{"action": a.Tag()}

	switch v := a.(type) {
	case HTMLAction, TextAction:
	case ClickAction:
		obj["nth"] = v.Nth
	case FillAction:
		obj["value"] = v.Value
		obj["nth"] = v.Nth
	case AttributeAction:
		obj["name"] = v.Name
	case RemoveAction:
		obj["nth"] = v.Nth
	case ScreenshotAction:
		obj["full_page"] = v.FullPage
	case ScrollAction:
		obj["dx"] = v.DX
		obj["dy"] = v.DY
	case ScrollToBottomAction:
		obj["step_pixels"] = v.StepPixels
		obj["step_delay"] = v.StepDelay
		obj["timeout"] = v.Timeout
	case MoveAction:
		obj["x"] = v.X
		obj["y"] = v.Y
		obj["steps"] = v.Steps
	case MouseClickAction:
		obj["x"] = v.X
		obj["y"] = v.Y
		obj["button"] = v.Button
		obj["click_count"] = v.ClickCount
		obj["delay"] = v.Delay
	case IdleAction:
		obj["duration"] = v.Duration
	case LoginAction:
		obj["username"] = v.Username
		obj["password"] = v.Password
	default:
		return nil, fmt.Errorf("unknown action variant %T", a)
	}

	return json.Marshal(obj)
}

// ActionList decodes a wire array of tagged action objects.
type ActionList []Action

func (l *ActionList) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return fmt.Errorf("actions must be an array: %w", err)
	}
	out := make(ActionList, 0, len(raws))
	for i, raw := range raws {
		a, err := DecodeAction(raw)
		if err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

func (l ActionList) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(l))
	for _, a := range l {
		raw, err := EncodeAction(a)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return json.Marshal(raws)
}
