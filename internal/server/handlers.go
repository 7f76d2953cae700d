// internal/server/handlers.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
)

// lease resolves the request's profile and session from the headers. The
// profile is auto-provisioned when the id is unknown; an absent session
// header yields an ad-hoc page that Release closes. The resolved session id
// is echoed on the response before any body is written.
func (s *Server) lease(w http.ResponseWriter, r *http.Request) (*browser.Lease, *browser.Profile, bool) {
	profile, err := s.manager.GetOrCreateProfile(r.Context(), r.Header.Get(schemas.HeaderBrowserID))
	if err != nil {
		s.respondMapped(w, err)
		return nil, nil, false
	}
	lease, err := profile.Sessions().Acquire(r.Context(), r.Header.Get(schemas.HeaderSessionID))
	if err != nil {
		s.respondMapped(w, err)
		return nil, nil, false
	}
	w.Header().Set(schemas.HeaderSessionID, lease.SessionID)
	return lease, profile, true
}

// navigate drives the page to url and lets it settle for idle seconds. An
// empty url keeps the page where it is, so named sessions can act on state
// built up by earlier calls.
func (s *Server) navigate(ctx context.Context, page browser.Page, url string, wait schemas.WaitUntil, timeoutMS, idleSec float64) error {
	if url == "" {
		return nil
	}
	if err := page.Goto(ctx, url, browser.GotoOptions{WaitUntil: wait, TimeoutMS: timeoutMS}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return idleWait(ctx, idleSec)
}

func idleWait(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// -- Liveness --

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, schemas.PingResponse{Status: "ok", Message: "pong"})
}

// -- Sessions --

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	profile, err := s.manager.GetOrCreateProfile(r.Context(), r.Header.Get(schemas.HeaderBrowserID))
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	id, err := profile.Sessions().StartSession(r.Context())
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	w.Header().Set(schemas.HeaderSessionID, id)
	s.respondJSON(w, http.StatusOK, schemas.SessionResponse{SessionID: id, Message: "session started"})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(schemas.HeaderSessionID)
	if id == "" {
		s.respondDetail(w, http.StatusBadRequest, fmt.Sprintf("%s header is required", schemas.HeaderSessionID))
		return
	}
	profile, err := s.manager.GetOrCreateProfile(r.Context(), r.Header.Get(schemas.HeaderBrowserID))
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	msg := "session ended"
	if !profile.Sessions().EndSession(r.Context(), id) {
		msg = "session already ended"
	}
	s.respondJSON(w, http.StatusOK, schemas.SessionResponse{SessionID: id, Message: msg})
}

// -- Search --

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultSearchRequest()
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	results, err := s.paginator.Search(r.Context(), lease.Page, req.Query, req.Count)
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	if results == nil {
		results = []schemas.SearchResult{}
	}
	s.respondJSON(w, http.StatusOK, results)
}

// -- Content --

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultContentRequest()
	s.seedNavDefaults(&req.WaitUntil, &req.Timeout, &req.Idle)
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	if err := s.navigate(r.Context(), lease.Page, req.URL, req.WaitUntil, req.Timeout, req.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	var body string
	var err error
	if req.ReturnHTML {
		body, err = lease.Page.Content(r.Context())
	} else {
		body, err = lease.Page.InnerText(r.Context(), "body")
	}
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondText(w, http.StatusOK, body)
}

// -- Selectors --

func (s *Server) handleSelectors(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultSelectorsRequest()
	s.seedNavDefaults(&req.WaitUntil, &req.Timeout, &req.Idle)
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	if err := s.navigate(r.Context(), lease.Page, req.URL, req.WaitUntil, req.Timeout, req.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	results := s.dispatcher.Execute(r.Context(), lease.Page, req.Selectors)
	s.respondJSON(w, http.StatusOK, results)
}

// -- Screenshot --

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultScreenshotRequest()
	s.seedNavDefaults(&req.WaitUntil, &req.Timeout, &req.Idle)
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	if err := s.navigate(r.Context(), lease.Page, req.URL, req.WaitUntil, req.Timeout, req.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	shot, err := lease.Page.Screenshot(r.Context(), req.FullPage)
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondPNG(w, shot)
}

// -- Interact --

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultInteractRequest()
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, profile, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	nav := s.cfg.Navigation()
	if err := s.navigate(r.Context(), lease.Page, req.URL, schemas.WaitUntil(nav.WaitUntil), nav.Timeout, nav.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	out := s.interactor.Run(r.Context(), lease.Page, profile.Context(), req.Actions)
	switch {
	case len(out.Screenshot) > 0:
		s.respondPNG(w, out.Screenshot)
	case out.Content != "":
		s.respondText(w, http.StatusOK, out.Content)
	default:
		s.respondJSON(w, http.StatusOK, schemas.InteractPayload{Status: "ok", Actions: out.Log})
	}
}

// -- Pointer --

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultMoveRequest()
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	nav := s.cfg.Navigation()
	if err := s.navigate(r.Context(), lease.Page, req.URL, schemas.WaitUntil(nav.WaitUntil), nav.Timeout, nav.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	if err := lease.Page.MouseMove(r.Context(), req.X, req.Y, req.Steps); err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok", Message: fmt.Sprintf("moved to (%g, %g)", req.X, req.Y)})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultClickRequest()
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	nav := s.cfg.Navigation()
	if err := s.navigate(r.Context(), lease.Page, req.URL, schemas.WaitUntil(nav.WaitUntil), nav.Timeout, nav.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	if err := lease.Page.MouseClick(r.Context(), req.X, req.Y, req.Button, req.ClickCount, req.Delay); err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok", Message: fmt.Sprintf("clicked at (%g, %g)", req.X, req.Y)})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	req := schemas.DefaultScrollRequest()
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lease, _, ok := s.lease(w, r)
	if !ok {
		return
	}
	defer lease.Release(r.Context())

	nav := s.cfg.Navigation()
	if err := s.navigate(r.Context(), lease.Page, req.URL, schemas.WaitUntil(nav.WaitUntil), nav.Timeout, nav.Idle); err != nil {
		s.respondMapped(w, err)
		return
	}
	if err := lease.Page.MouseWheel(r.Context(), req.X, req.Y); err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok", Message: fmt.Sprintf("scrolled by (%g, %g)", req.X, req.Y)})
}

// -- Profiles --

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	profile, err := s.manager.CreateProfile(r.Context(), req.ID, req.Proxy)
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	s.logger.Info("Browser profile created.",
		zap.String("browser_id", profile.ID()),
		zap.Bool("persistent", profile.Persistent()),
	)
	s.respondJSON(w, http.StatusCreated, schemas.ProfileResponse{
		BrowserID:  profile.ID(),
		Persistent: profile.Persistent(),
		Message:    "browser profile created",
	})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	ids, err := s.manager.ListProfiles()
	if err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, schemas.ProfileListResponse{Browsers: ids})
}

func (s *Server) handleCloseProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.CloseProfile(r.Context(), id); err != nil {
		s.respondMapped(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok", Message: fmt.Sprintf("browser profile %s closed", id)})
}

// seedNavDefaults overwrites a request's compiled-in navigation defaults
// with the configured ones before the body is decoded, so explicit request
// fields still win.
func (s *Server) seedNavDefaults(wait *schemas.WaitUntil, timeoutMS, idleSec *float64) {
	nav := s.cfg.Navigation()
	*wait = schemas.WaitUntil(nav.WaitUntil)
	*timeoutMS = nav.Timeout
	*idleSec = nav.Idle
}
