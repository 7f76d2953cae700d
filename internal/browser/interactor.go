// internal/browser/interactor.go
package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Outcome is what an interaction sequence produced: the last content
// capture, the last screenshot, and one log line per action.
type Outcome struct {
	Content    string
	Screenshot []byte
	Log        []string
}

// Interactor drives a page through an ordered action sequence. A failed
// action contributes an "error: ..." log line and the sequence keeps going.
type Interactor struct {
	logger *zap.Logger
}

func NewInteractor(logger *zap.Logger) *Interactor {
	return &Interactor{logger: logger.With(zap.String("component", "interactor"))}
}

// Run executes actions in order against page. bctx is the context that owns
// the page; login actions manage its basic-auth credentials.
func (it *Interactor) Run(ctx context.Context, page Page, bctx BrowserContext, actions schemas.ActionList) Outcome {
	var out Outcome
	for _, action := range actions {
		line, err := it.runAction(ctx, page, bctx, action, &out)
		if err != nil {
			out.Log = append(out.Log, "error: "+err.Error())
			it.logger.Debug("Interaction action failed.",
				zap.String("action", action.Tag()), zap.Error(err))
			continue
		}
		out.Log = append(out.Log, line)
	}
	return out
}

func (it *Interactor) runAction(ctx context.Context, page Page, bctx BrowserContext, action schemas.Action, out *Outcome) (string, error) {
	switch a := action.(type) {
	case schemas.ScreenshotAction:
		shot, err := page.Screenshot(ctx, a.FullPage)
		if err != nil {
			return "", err
		}
		out.Screenshot = shot
		return "screenshot captured", nil

	case schemas.ScrollAction:
		if err := page.MouseWheel(ctx, a.DX, a.DY); err != nil {
			return "", err
		}
		return fmt.Sprintf("scrolled by (%g, %g)", a.DX, a.DY), nil

	case schemas.ScrollToBottomAction:
		return it.scrollToBottom(ctx, page, a)

	case schemas.MoveAction:
		if err := page.MouseMove(ctx, a.X, a.Y, a.Steps); err != nil {
			return "", err
		}
		return fmt.Sprintf("moved to (%g, %g)", a.X, a.Y), nil

	case schemas.MouseClickAction:
		if err := page.MouseClick(ctx, a.X, a.Y, a.Button, a.ClickCount, a.Delay); err != nil {
			return "", err
		}
		return fmt.Sprintf("clicked at (%g, %g)", a.X, a.Y), nil

	case schemas.IdleAction:
		if err := sleepCtx(ctx, secondsToDuration(a.Duration)); err != nil {
			return "", err
		}
		return fmt.Sprintf("idled %gs", a.Duration), nil

	case schemas.LoginAction:
		if err := bctx.SetBasicAuth(ctx, a.Username, a.Password); err != nil {
			return "", err
		}
		if a.Username == "" && a.Password == "" {
			return "credentials cleared", nil
		}
		return "credentials set", nil

	case schemas.TextAction:
		text, err := page.InnerText(ctx, "body")
		if err != nil {
			return "", err
		}
		out.Content = text
		return "text captured", nil

	case schemas.HTMLAction:
		html, err := page.Content(ctx)
		if err != nil {
			return "", err
		}
		out.Content = html
		return "html captured", nil

	default:
		return "", fmt.Errorf("action %q requires a selector", action.Tag())
	}
}

// scrollToBottom wheels downward until the viewport reaches the bottom of
// the document or the budget runs out. Running out is an outcome, not an
// error.
func (it *Interactor) scrollToBottom(ctx context.Context, page Page, a schemas.ScrollToBottomAction) (string, error) {
	deadline := time.Now().Add(secondsToDuration(a.Timeout))
	for {
		raw, err := page.Evaluate(ctx, probeAtBottom, nil)
		if err != nil {
			return "", err
		}
		if atBottom, ok := raw.(bool); ok && atBottom {
			return "scrolled to bottom", nil
		}
		if time.Now().After(deadline) {
			return "scroll to bottom stopped at timeout", nil
		}
		if err := page.MouseWheel(ctx, 0, a.StepPixels); err != nil {
			return "", err
		}
		if err := sleepCtx(ctx, secondsToDuration(a.StepDelay)); err != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
