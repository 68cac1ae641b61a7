// Package interpreter implements the Action Interpreter of spec §4.4: it
// dispatches on action kind, invokes the Frame Locator, Element Resolver,
// and Variable Resolver as needed, performs the browser operation, then
// always runs the Assertion Evaluator.
package interpreter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/f-sync/uiflow/internal/assertions"
	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/elements"
	"github.com/f-sync/uiflow/internal/frames"
	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/variables"
)

const (
	navigatePollInterval = 1 * time.Second
	navigateAssertTimeout = 10 * time.Second
	scrollSettleDelay     = 1 * time.Second
	scrollIntoViewSettle  = 300 * time.Millisecond
)

// Outcome is the result of running one action, before assertions are
// folded in by the Step Runner.
type Outcome struct {
	Success bool
	Message string
}

// Interpreter ties the leaf components together to execute one Action.
type Interpreter struct {
	frameLocator *frames.Locator
	resolver     *elements.Resolver
	variables    *variables.Resolver
	assertions   *assertions.Evaluator
}

// New constructs an Interpreter from its collaborators.
func New(frameLocator *frames.Locator, resolver *elements.Resolver, variableResolver *variables.Resolver, assertionEvaluator *assertions.Evaluator) *Interpreter {
	return &Interpreter{
		frameLocator: frameLocator,
		resolver:     resolver,
		variables:    variableResolver,
		assertions:   assertionEvaluator,
	}
}

// Run executes action against page, returning the action's own outcome
// and the assertion results evaluated afterward. nextAction is the action
// immediately following this one in the test case, if any — mousedown
// uses it to detect an imminent fileSelect and avoid clicking a file
// input's native picker.
func (i *Interpreter) Run(ctx context.Context, action model.Action, nextAction *model.Action, page browserdrv.Page) (Outcome, []model.AssertionResult) {
	frame, err := i.frameLocator.Locate(ctx, action, page)
	if err != nil {
		outcome := Outcome{Success: false, Message: err.Error()}
		return outcome, i.assertions.Evaluate(ctx, action, page, action.Element)
	}

	outcome := i.dispatch(ctx, action, nextAction, page, frame)
	results := i.assertions.Evaluate(ctx, action, frame, action.Element)
	return outcome, results
}

func (i *Interpreter) dispatch(ctx context.Context, action model.Action, nextAction *model.Action, page browserdrv.Page, frame browserdrv.Frame) Outcome {
	switch {
	case action.Type == model.ActionSystemNavigate:
		return i.systemNavigate(ctx, action, frame)
	case action.Type == model.ActionNavigate:
		return i.navigateAssertive(ctx, action, frame)
	case action.Type == model.ActionMouseDown:
		return i.mousedown(ctx, action, nextAction, frame)
	case action.Type == model.ActionChange:
		return i.change(ctx, action, frame)
	case action.Type == model.ActionHover:
		return i.hover(ctx, action, page)
	case action.Type == model.ActionScroll:
		return i.scroll(ctx, action, frame)
	case action.Type.IsKeyPress():
		return i.keyPress(ctx, action, page)
	case action.Type == model.ActionFileSelect:
		return i.fileSelect(ctx, action, frame)
	case action.Type == model.ActionDragStart:
		return i.dragStart(ctx, action, page, frame)
	case action.Type == model.ActionDragEnd:
		return i.dragEnd(ctx, action, page, frame)
	default:
		return Outcome{Success: false, Message: fmt.Sprintf("Unsupported action type: %s", action.Type)}
	}
}

func (i *Interpreter) systemNavigate(ctx context.Context, action model.Action, frame browserdrv.Frame) Outcome {
	if err := frame.Navigate(ctx, action.URL, true); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Message: "Navigated"}
}

// navigateAssertive never fails: its contract is observational (spec §9
// Open Question (b)). It polls the current URL for up to 10s and reports
// whether the normalized current URL matches the normalized expected one.
func (i *Interpreter) navigateAssertive(ctx context.Context, action model.Action, frame browserdrv.Frame) Outcome {
	expected := frames.NormalizeURL(action.URL)
	deadline := time.Now().Add(navigateAssertTimeout)
	var current string
pollLoop:
	for {
		current, _ = frame.URL(ctx)
		if frames.NormalizeURL(current) == expected {
			return Outcome{Success: true, Message: fmt.Sprintf("URL matches %q", expected)}
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			break pollLoop
		case <-time.After(navigatePollInterval):
		}
	}
	return Outcome{Success: true, Message: fmt.Sprintf("URL is %q, expected %q", frames.NormalizeURL(current), expected)}
}

func (i *Interpreter) mousedown(ctx context.Context, action model.Action, nextAction *model.Action, frame browserdrv.Frame) Outcome {
	if nextAction != nil && nextAction.Type == model.ActionFileSelect {
		return Outcome{Success: true, Message: "Click avoided before file select"}
	}
	if action.Element != nil && action.Element.IsAlert {
		return Outcome{Success: true, Message: "Click avoided on alert element"}
	}
	if action.Element == nil || len(action.Element.XPath) == 0 {
		return Outcome{Success: false, Message: elements.ErrNoDescriptor.Error()}
	}

	xpath, err := i.resolver.EnsureClickable(ctx, frame, action.Element.XPath, 0)
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	scrollIntoView(ctx, frame, xpath, true)

	if err := frame.ClickXPath(ctx, xpath); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Message: "Clicked"}
}

func (i *Interpreter) change(ctx context.Context, action model.Action, frame browserdrv.Frame) Outcome {
	if action.Element != nil && action.Element.IsAlert {
		return Outcome{Success: true, Message: "ignored"}
	}

	resolution, err := i.resolver.Resolve(ctx, action.Element, frame, 0)
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	scrollIntoView(ctx, frame, resolution.Selector, resolution.ByXPath)

	var kind browserdrv.ElementKind
	if resolution.ByXPath {
		kind, err = frame.DescribeElementXPath(ctx, resolution.Selector)
	} else {
		kind, err = frame.DescribeElementSelector(ctx, resolution.Selector)
	}
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}

	switch kind {
	case browserdrv.ElementText:
		value := action.Value
		if action.Variable != nil && action.Variable.Name != "" {
			value = i.variables.Resolve(action.Variable)
		}
		if resolution.ByXPath {
			err = frame.FillXPath(ctx, resolution.Selector, value)
		} else {
			err = frame.FillSelector(ctx, resolution.Selector, value)
		}
		if err != nil {
			return Outcome{Success: false, Message: err.Error()}
		}
		return Outcome{Success: true, Message: "Text entered"}

	case browserdrv.ElementCheckbox:
		if resolution.ByXPath {
			err = frame.CheckXPath(ctx, resolution.Selector, false)
		} else {
			err = frame.CheckSelector(ctx, resolution.Selector, false)
		}
		if err != nil {
			if action.Element.UniqueSelector != "" {
				if labelErr := frame.ClickLabelFor(ctx, action.Element.UniqueSelector); labelErr != nil {
					return Outcome{Success: false, Message: labelErr.Error()}
				}
				return Outcome{Success: true, Message: "Checked via label"}
			}
			return Outcome{Success: false, Message: err.Error()}
		}
		return Outcome{Success: true, Message: "Checked"}

	case browserdrv.ElementRadio:
		if resolution.ByXPath {
			err = frame.CheckXPath(ctx, resolution.Selector, false)
		} else {
			err = frame.CheckSelector(ctx, resolution.Selector, false)
		}
		if err != nil {
			return Outcome{Success: false, Message: err.Error()}
		}
		return Outcome{Success: true, Message: "Selected"}

	case browserdrv.ElementSelect:
		if resolution.ByXPath {
			err = frame.SelectByValueXPath(ctx, resolution.Selector, action.Value)
		} else {
			err = frame.SelectByValueSelector(ctx, resolution.Selector, action.Value)
		}
		if err != nil {
			return Outcome{Success: false, Message: err.Error()}
		}
		return Outcome{Success: true, Message: "Option selected"}

	default:
		return Outcome{Success: false, Message: "Unsupported Type"}
	}
}

func (i *Interpreter) hover(ctx context.Context, action model.Action, page browserdrv.Page) Outcome {
	resolution, err := i.resolver.Resolve(ctx, action.Element, page, 0)
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	scrollIntoView(ctx, page, resolution.Selector, resolution.ByXPath)
	var hoverErr error
	if resolution.ByXPath {
		hoverErr = page.HoverXPath(ctx, resolution.Selector)
	} else {
		hoverErr = page.HoverSelector(ctx, resolution.Selector)
	}
	if hoverErr != nil {
		return Outcome{Success: false, Message: hoverErr.Error()}
	}
	return Outcome{Success: true, Message: "Hovered"}
}

func (i *Interpreter) scroll(ctx context.Context, action model.Action, frame browserdrv.Frame) Outcome {
	var err error
	if action.ContainerXPath != "" {
		err = frame.ScrollContainer(ctx, action.ContainerXPath, action.ScrollX, action.ScrollY)
	} else {
		err = frame.ScrollWindow(ctx, action.ScrollX, action.ScrollY)
	}
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	sleep(ctx, scrollSettleDelay)
	return Outcome{Success: true, Message: "Scrolled"}
}

func (i *Interpreter) keyPress(ctx context.Context, action model.Action, page browserdrv.Page) Outcome {
	if err := page.Keyboard().Press(ctx, string(action.Type)); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Message: fmt.Sprintf("Pressed %s", action.Type)}
}

func (i *Interpreter) fileSelect(ctx context.Context, action model.Action, frame browserdrv.Frame) Outcome {
	if action.StorageData == nil {
		return Outcome{Success: false, Message: "fileSelect requires storageData"}
	}
	resolution, err := i.resolver.Resolve(ctx, action.Element, frame, 0)
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	scrollIntoView(ctx, frame, resolution.Selector, resolution.ByXPath)

	payload, err := decodeDataURLPayload(action.StorageData.Content)
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	file := browserdrv.UploadFile{
		Name:     action.StorageData.Name,
		MimeType: action.StorageData.Type,
		Buffer:   payload,
	}
	if resolution.ByXPath {
		err = frame.SetInputFilesXPath(ctx, resolution.Selector, file)
	} else {
		err = frame.SetInputFilesSelector(ctx, resolution.Selector, file)
	}
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Message: "File selected"}
}

func (i *Interpreter) dragStart(ctx context.Context, action model.Action, page browserdrv.Page, frame browserdrv.Frame) Outcome {
	rawInput, ok := page.RawInput()
	if !ok {
		return Outcome{Success: false, Message: browserdrv.ErrRawInputUnavailable.Error()}
	}
	if action.Element == nil || len(action.Element.XPath) == 0 {
		return Outcome{Success: false, Message: elements.ErrNoDescriptor.Error()}
	}
	box, err := frame.BoundingBoxXPath(ctx, action.Element.XPath[0])
	if err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	if err := frame.InjectNoScrollStyle(ctx); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}

	x, y := box.Center()
	if err := rawInput.MoveTo(ctx, x, y); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	if err := rawInput.MouseDown(ctx, x, y); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	return Outcome{Success: true, Message: "Drag started"}
}

func (i *Interpreter) dragEnd(ctx context.Context, action model.Action, page browserdrv.Page, frame browserdrv.Frame) Outcome {
	rawInput, ok := page.RawInput()
	if !ok {
		return Outcome{Success: false, Message: browserdrv.ErrRawInputUnavailable.Error()}
	}

	var x, y float64
	if action.DropTarget != nil && len(action.DropTarget.XPath) > 0 {
		box, err := frame.BoundingBoxXPath(ctx, action.DropTarget.XPath[0])
		if err == nil {
			x, y = box.Center()
		}
	}
	if x == 0 && y == 0 {
		box, err := frame.BoundingBoxSelector(ctx, "body")
		if err == nil {
			x, y = box.Center()
		}
	}

	if err := rawInput.MoveTo(ctx, x, y); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	if err := rawInput.MouseUp(ctx, x, y); err != nil {
		return Outcome{Success: false, Message: err.Error()}
	}
	_ = frame.RemoveNoScrollStyle(ctx)
	return Outcome{Success: true, Message: "Drag ended"}
}

func scrollIntoView(ctx context.Context, frame browserdrv.Frame, selector string, byXPath bool) {
	var err error
	if byXPath {
		err = frame.ScrollIntoViewXPath(ctx, selector)
	} else {
		err = frame.ScrollIntoViewSelector(ctx, selector)
	}
	if err != nil {
		return
	}
	sleep(ctx, scrollIntoViewSettle)
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

var errMissingDataURLComma = errors.New("interpreter: storageData content is not a valid data URL")

func decodeDataURLPayload(content string) ([]byte, error) {
	idx := strings.IndexByte(content, ',')
	if idx < 0 {
		return nil, errMissingDataURLComma
	}
	return base64.StdEncoding.DecodeString(content[idx+1:])
}
