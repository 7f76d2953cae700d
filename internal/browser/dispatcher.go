// internal/browser/dispatcher.go
package browser

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Dispatcher executes selector specs against a live page. Nothing it does
// fails a request: probe and element failures become "error: ..." sentinel
// values in the result lists, and every sibling action and later selector
// still runs.
type Dispatcher struct {
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.With(zap.String("component", "dispatcher"))}
}

// xpathAttributeAxis matches queries that address attribute nodes directly,
// e.g. //a/@href or //img/attribute::src. Those are evaluated as-is; the
// snapshot items are attribute nodes and carry their value in nodeValue.
var xpathAttributeAxis = regexp.MustCompile(`/(@|attribute::)[A-Za-z_][A-Za-z0-9_.:-]*$`)

// SelectIndices resolves an nth selection against a match count. The result
// is nil when there is nothing to target: no matches at all, or an index
// outside the match range. -1 addresses the last match.
func SelectIndices(matchCount int, nth schemas.Nth) []int {
	if matchCount <= 0 {
		return nil
	}
	if nth.All() {
		out := make([]int, matchCount)
		for i := range out {
			out[i] = i
		}
		return out
	}
	idx := nth.Index()
	if idx == -1 {
		idx = matchCount - 1
	}
	if idx < 0 || idx >= matchCount {
		return nil
	}
	return []int{idx}
}

// Execute runs each selector spec in request order and returns one result
// per selector, each holding one ActionResult per action in listed order.
func (d *Dispatcher) Execute(ctx context.Context, page Page, specs []schemas.SelectorSpec) []schemas.SelectorResult {
	results := make([]schemas.SelectorResult, 0, len(specs))
	for _, spec := range specs {
		results = append(results, d.runSpec(ctx, page, spec))
	}
	return results
}

func (d *Dispatcher) runSpec(ctx context.Context, page Page, spec schemas.SelectorSpec) schemas.SelectorResult {
	kind := spec.Type.Normalize()
	actions := spec.Actions
	if len(actions) == 0 {
		actions = schemas.ActionList{schemas.HTMLAction{}}
	}

	out := schemas.SelectorResult{
		Name:    spec.Name,
		Results: make([]schemas.ActionResult, 0, len(actions)),
	}
	for _, action := range actions {
		out.Results = append(out.Results, schemas.ActionResult{
			Action: action.Tag(),
			Values: d.runAction(ctx, page, kind, spec.Value, action),
		})
	}
	return out
}

func (d *Dispatcher) runAction(ctx context.Context, page Page, kind schemas.SelectorKind, selector string, action schemas.Action) []string {
	switch a := action.(type) {
	case schemas.HTMLAction:
		return d.readAll(ctx, page, htmlProbe(kind), selector)
	case schemas.TextAction:
		return d.readAll(ctx, page, textProbe(kind), selector)
	case schemas.AttributeAction:
		if kind == schemas.SelectorXPath && xpathAttributeAxis.MatchString(selector) {
			return d.readAll(ctx, page, probeAttributeDirectXPath, selector)
		}
		return d.evalStrings(ctx, page, attributeProbe(kind), []any{selector, a.Name})
	case schemas.ClickAction:
		return d.mutate(ctx, page, kind, selector, a.Nth, clickProbe(kind), nil, false)
	case schemas.FillAction:
		return d.mutate(ctx, page, kind, selector, a.Nth, fillProbe(kind), &a.Value, false)
	case schemas.RemoveAction:
		return d.mutate(ctx, page, kind, selector, a.Nth, removeProbe(kind), nil, true)
	default:
		return []string{fmt.Sprintf("error: action %q cannot run against a selector", action.Tag())}
	}
}

// readAll evaluates a probe that takes only the selector and returns every
// match's value.
func (d *Dispatcher) readAll(ctx context.Context, page Page, probe, selector string) []string {
	raw, err := page.Evaluate(ctx, probe, selector)
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	values := toStringSlice(raw)
	d.logger.Debug("Selector probe resolved.", zap.Int("matches", len(values)))
	return values
}

func (d *Dispatcher) evalStrings(ctx context.Context, page Page, probe string, args []any) []string {
	raw, err := page.Evaluate(ctx, probe, args)
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	values := toStringSlice(raw)
	d.logger.Debug("Selector probe resolved.", zap.Int("matches", len(values)))
	return values
}

// mutate runs the two-step flow for actions that change the page: count the
// matches, resolve the nth selection in Go, then hand the probe the explicit
// index list. Removal walks indices highest first so earlier deletions never
// shift later targets; results are reported back in original index order.
func (d *Dispatcher) mutate(ctx context.Context, page Page, kind schemas.SelectorKind, selector string, nth schemas.Nth, probe string, fillValue *string, descending bool) []string {
	raw, err := page.Evaluate(ctx, countProbe(kind), selector)
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	matchCount := toInt(raw)
	d.logger.Debug("Selector matches counted.", zap.Int("matches", matchCount))

	indices := SelectIndices(matchCount, nth)
	if len(indices) == 0 {
		return []string{}
	}
	if descending {
		sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	}

	args := []any{selector}
	if fillValue != nil {
		args = append(args, *fillValue)
	}
	args = append(args, indices)

	out, err := page.Evaluate(ctx, probe, args)
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	values := toStringSlice(out)
	if descending {
		reverse(values)
	}
	return values
}

// toStringSlice converts an Evaluate result into per-element strings. Probe
// results are JS string arrays; any other payload is stringified so it still
// shows up in the output instead of vanishing.
func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case nil:
		return []string{}
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// toInt folds the numeric types Evaluate may hand back for a JS number.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
