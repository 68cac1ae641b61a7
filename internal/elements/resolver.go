// Package elements implements the Element Resolver of spec §4.1: turning
// an element descriptor into a selector that a live Frame can act on.
package elements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/model"
)

const (
	// DefaultResolveTimeout is the default wait for uniqueSelector/xpath resolution.
	DefaultResolveTimeout = 3 * time.Second
	// ClickableTimeout bounds the overall ensureClickable search across all
	// xpath candidates.
	ClickableTimeout = 10 * time.Second
	// clickablePerCandidateTimeout bounds the presence+visibility wait for
	// a single xpath candidate within ensureClickable.
	clickablePerCandidateTimeout = 3 * time.Second
)

// ErrNoDescriptor is returned when an action needs an element but its
// descriptor carries neither a uniqueSelector nor an xpath.
var ErrNoDescriptor = errors.New("elements: descriptor has no uniqueSelector or xpath")

// Resolution is a resolved, actionable selector.
type Resolution struct {
	Selector string
	ByXPath  bool
}

// Resolver implements the Element Resolver contract.
type Resolver struct{}

// NewResolver constructs a Resolver. It has no state; it exists as a type
// so callers depend on an interface-shaped value the way other core
// components do.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve applies the §4.1 policy: uniqueSelector (if present) is tried
// first; only if absent do xpath candidates get tried in declared order.
// uniqueSelector is validated with cascadia before any browser round trip,
// so a malformed selector fails immediately instead of idling out the
// full timeout.
func (r *Resolver) Resolve(ctx context.Context, descriptor *model.ElementDescriptor, frame browserdrv.Frame, timeout time.Duration) (Resolution, error) {
	if descriptor == nil {
		return Resolution{}, ErrNoDescriptor
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}

	if descriptor.UniqueSelector != "" {
		if _, parseErr := cascadia.ParseGroup(descriptor.UniqueSelector); parseErr != nil {
			return Resolution{}, fmt.Errorf("elements: invalid uniqueSelector %q: %w", descriptor.UniqueSelector, parseErr)
		}
		if err := frame.WaitSelector(ctx, descriptor.UniqueSelector, timeout); err != nil {
			return Resolution{}, err
		}
		return Resolution{Selector: descriptor.UniqueSelector}, nil
	}

	for _, xpath := range descriptor.XPath {
		if xpath == "" {
			continue
		}
		if err := frame.WaitXPath(ctx, xpath, timeout); err == nil {
			return Resolution{Selector: xpath, ByXPath: true}, nil
		}
	}
	if len(descriptor.XPath) > 0 {
		return Resolution{}, fmt.Errorf("%w: %v", browserdrv.ErrElementNotFound, descriptor.XPath)
	}
	return Resolution{}, ErrNoDescriptor
}

// EnsureClickable iterates xpath candidates in order, waiting up to 3s per
// candidate for presence and visibility (offsetParent !== null), bounded
// overall by 10s. It returns the first visible candidate's xpath.
func (r *Resolver) EnsureClickable(ctx context.Context, frame browserdrv.Frame, xpaths []string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = ClickableTimeout
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for _, xpath := range xpaths {
		if xpath == "" {
			continue
		}
		select {
		case <-deadlineCtx.Done():
			return "", fmt.Errorf("%w: ensureClickable timed out", browserdrv.ErrElementNotFound)
		default:
		}
		visible, err := frame.IsVisibleXPath(deadlineCtx, xpath, clickablePerCandidateTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		if visible {
			return xpath, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: no clickable candidate", browserdrv.ErrElementNotFound)
}
