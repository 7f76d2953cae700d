// ./api/schemas/requests.go
package schemas

import "fmt"

// Request bodies for the HTTP surface. Decode each into the matching
// Default* value so absent fields keep their documented defaults, then call
// Validate before handing the request to the core.

// -- Search --

// SearchRequest asks for up to Count deduplicated search results.
type SearchRequest struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// DefaultSearchRequest returns a SearchRequest with the default result count.
func DefaultSearchRequest() SearchRequest {
	return SearchRequest{Count: 5}
}

func (r SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	return nil
}

// -- Content --

// ContentRequest fetches a page and returns its HTML, or its rendered text
// when ReturnHTML is false. Timeout is in milliseconds, Idle in seconds.
type ContentRequest struct {
	URL        string    `json:"url"`
	WaitUntil  WaitUntil `json:"wait_until"`
	Timeout    float64   `json:"timeout"`
	Idle       float64   `json:"idle"`
	ReturnHTML bool      `json:"return_html"`
}

func DefaultContentRequest() ContentRequest {
	return ContentRequest{WaitUntil: WaitUntilCommit, Timeout: 3600, Idle: 1.5, ReturnHTML: true}
}

func (r ContentRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !r.WaitUntil.Valid() {
		return fmt.Errorf("wait_until must be one of commit, domcontentloaded, load, networkidle")
	}
	return nil
}

// -- Selectors --

// SelectorsRequest executes an ordered list of selector specs. An empty URL
// reuses whatever page the session is currently on without navigating.
type SelectorsRequest struct {
	URL       string         `json:"url"`
	Selectors []SelectorSpec `json:"selectors"`
	WaitUntil WaitUntil      `json:"wait_until"`
	Timeout   float64        `json:"timeout"`
	Idle      float64        `json:"idle"`
}

func DefaultSelectorsRequest() SelectorsRequest {
	return SelectorsRequest{WaitUntil: WaitUntilCommit, Timeout: 3600, Idle: 1.5}
}

func (r SelectorsRequest) Validate() error {
	if len(r.Selectors) == 0 {
		return fmt.Errorf("selectors must not be empty")
	}
	for i, s := range r.Selectors {
		if s.Value == "" {
			return fmt.Errorf("selectors[%d]: value is required", i)
		}
		if !s.Type.Valid() {
			return fmt.Errorf("selectors[%d]: type must be css or xpath", i)
		}
	}
	if !r.WaitUntil.Valid() {
		return fmt.Errorf("wait_until must be one of commit, domcontentloaded, load, networkidle")
	}
	return nil
}

// -- Interact --

// InteractRequest runs an ordered mix of pointer, capture, and session
// actions. An empty URL reuses the session's current page.
type InteractRequest struct {
	URL     string     `json:"url"`
	Actions ActionList `json:"actions"`
}

func DefaultInteractRequest() InteractRequest {
	return InteractRequest{}
}

func (r InteractRequest) Validate() error {
	if len(r.Actions) == 0 {
		return fmt.Errorf("actions must not be empty")
	}
	return nil
}

// -- Screenshot --

// ScreenshotRequest captures a page as PNG after navigation settles.
type ScreenshotRequest struct {
	URL       string    `json:"url"`
	FullPage  bool      `json:"full_page"`
	WaitUntil WaitUntil `json:"wait_until"`
	Timeout   float64   `json:"timeout"`
	Idle      float64   `json:"idle"`
}

func DefaultScreenshotRequest() ScreenshotRequest {
	return ScreenshotRequest{WaitUntil: WaitUntilCommit, Timeout: 3600, Idle: 1.5}
}

func (r ScreenshotRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !r.WaitUntil.Valid() {
		return fmt.Errorf("wait_until must be one of commit, domcontentloaded, load, networkidle")
	}
	return nil
}

// -- Pointer --

// MoveRequest moves the pointer to viewport coordinates.
type MoveRequest struct {
	URL   string  `json:"url"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Steps int     `json:"steps"`
}

func DefaultMoveRequest() MoveRequest {
	return MoveRequest{Steps: 1}
}

func (r MoveRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if r.Steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}
	return nil
}

// ClickRequest clicks at viewport coordinates. Delay is the press-release
// gap in milliseconds.
type ClickRequest struct {
	URL        string  `json:"url"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Button     string  `json:"button"`
	ClickCount int     `json:"click_count"`
	Delay      float64 `json:"delay"`
}

func DefaultClickRequest() ClickRequest {
	return ClickRequest{Button: "left", ClickCount: 1}
}

func (r ClickRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	switch r.Button {
	case "left", "right", "middle":
	default:
		return fmt.Errorf("button must be left, right, or middle")
	}
	if r.ClickCount < 1 {
		return fmt.Errorf("click_count must be at least 1")
	}
	return nil
}

// ScrollRequest scrolls the page by a wheel delta.
type ScrollRequest struct {
	URL string  `json:"url"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

func DefaultScrollRequest() ScrollRequest {
	return ScrollRequest{}
}

func (r ScrollRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// -- Profiles --

// CreateProfileRequest provisions a browser profile. An empty ID launches a
// throwaway profile under a generated identifier; a given ID launches a
// persistent profile rooted under the profiles directory.
type CreateProfileRequest struct {
	ID    string         `json:"id,omitempty"`
	Proxy *ProxySettings `json:"proxy,omitempty"`
}

func (r CreateProfileRequest) Validate() error {
	if r.Proxy != nil && r.Proxy.Server == "" {
		return fmt.Errorf("proxy.server is required when proxy is given")
	}
	return nil
}
