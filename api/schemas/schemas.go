// ./api/schemas/schemas.go

// Package schemas defines the wire types shared between the HTTP surface,
// the browser core, and API clients such as the crawler.
package schemas

// DefaultProfileID is the reserved identifier of the profile that is created
// at startup and can never be torn down individually.
const DefaultProfileID = "default"

// Header names used to address a profile and a session on page-bound routes.
const (
	HeaderBrowserID = "X-Browser-Id"
	HeaderSessionID = "X-Session-Id"
)

// -- Navigation --

// WaitUntil names the load state a navigation waits for.
type WaitUntil string

const (
	WaitUntilCommit           WaitUntil = "commit"
	WaitUntilDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitUntilLoad             WaitUntil = "load"
	WaitUntilNetworkIdle      WaitUntil = "networkidle"
)

// Valid reports whether w is one of the accepted load states.
func (w WaitUntil) Valid() bool {
	switch w {
	case WaitUntilCommit, WaitUntilDOMContentLoaded, WaitUntilLoad, WaitUntilNetworkIdle:
		return true
	}
	return false
}

// -- Selectors --

// SelectorKind distinguishes CSS queries from XPath queries. The wire value
// "xml" is accepted as a synonym for "xpath".
type SelectorKind string

const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
	SelectorXML   SelectorKind = "xml"
)

// Normalize folds the legacy "xml" spelling into SelectorXPath.
func (k SelectorKind) Normalize() SelectorKind {
	if k == SelectorXML {
		return SelectorXPath
	}
	return k
}

// Valid reports whether k names a known selector kind.
func (k SelectorKind) Valid() bool {
	switch k {
	case SelectorCSS, SelectorXPath, SelectorXML:
		return true
	}
	return false
}

// SelectorSpec pairs a selector with the ordered actions to run against its
// matches. Names are caller-chosen labels and are echoed back verbatim; they
// do not have to be unique. An empty action list means a single "html"
// extraction.
type SelectorSpec struct {
	Name    string       `json:"name"`
	Type    SelectorKind `json:"type"`
	Value   string       `json:"value"`
	Actions ActionList   `json:"actions,omitempty"`
}

// -- Proxy --

// ProxySettings configures an outbound proxy for a profile's context.
type ProxySettings struct {
	Server   string `json:"server"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Bypass   string `json:"bypass,omitempty"`
}
