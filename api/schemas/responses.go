// ./api/schemas/responses.go
package schemas

// -- Generic --

// PingResponse answers the liveness probe.
type PingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the generic ok/error envelope for operations that carry
// no payload of their own.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse carries a failure description on non-2xx replies.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// -- Sessions --

// SessionResponse reports the session id a start or end call operated on.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// -- Profiles --

// ProfileResponse describes a single browser profile.
type ProfileResponse struct {
	BrowserID  string `json:"browser_id"`
	Persistent bool   `json:"persistent"`
	Message    string `json:"message,omitempty"`
}

// ProfileListResponse lists the ids of every live profile.
type ProfileListResponse struct {
	Browsers []string `json:"browsers"`
}

// -- Search --

// SearchResult is one deduplicated organic result. Image is a data URI and
// is present only when the result carried an inline thumbnail.
type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Image   string `json:"image,omitempty"`
}

// -- Selectors --

// ActionResult holds the per-element values one action produced against a
// resolved selector.
type ActionResult struct {
	Action string   `json:"action"`
	Values []string `json:"values"`
}

// SelectorResult groups the action results for one named selector spec.
type SelectorResult struct {
	Name    string         `json:"name"`
	Results []ActionResult `json:"results"`
}

// -- Interact --

// InteractPayload is the JSON fallback reply for interact calls whose
// actions produced neither a screenshot nor textual content.
type InteractPayload struct {
	Status  string   `json:"status"`
	Actions []string `json:"actions"`
}
