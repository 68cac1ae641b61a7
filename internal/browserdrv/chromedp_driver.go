package browserdrv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	noScrollStyleElementID = "uiflow-no-scroll-style"
	noScrollStyleCSS       = "html,body{overflow:hidden!important;height:100%!important;touch-action:none!important;}"
	settleDelay            = 300 * time.Millisecond
	scrollSettleDelay      = 1 * time.Second
	pollInterval           = 250 * time.Millisecond
)

// ChromedpBrowser launches chromedp-backed sessions. It is the production
// Browser implementation; the orchestrator depends only on the Browser
// interface so tests can substitute a fake.
type ChromedpBrowser struct {
	// BinaryPath overrides the Chrome/Chromium executable chromedp
	// auto-discovers; empty uses chromedp's default resolution.
	BinaryPath string
}

// NewSession launches a new allocator + browser context per the requested engine.
func (b *ChromedpBrowser) NewSession(ctx context.Context, opts LaunchOptions) (Session, error) {
	if opts.Engine != EngineChromium && opts.Engine != "" {
		// chromedp only drives Chromium-family targets; other engine
		// names are accepted by the wire contract (spec §3) but this
		// backend cannot launch them.
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, opts.Engine)
	}

	allocatorOptions := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocatorOptions = append(allocatorOptions, chromedp.Flag("headless", opts.Headless))
	if b.BinaryPath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(b.BinaryPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	session := &chromedpSession{
		ctx:    browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}
	session.top = &chromedpFrame{ctx: browserCtx, session: session}
	return session, nil
}

type chromedpSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	top    *chromedpFrame
}

func (s *chromedpSession) Page() Page { return &chromedpPage{chromedpFrame: s.top} }

func (s *chromedpSession) Close(ctx context.Context) error {
	s.cancel()
	return nil
}

// chromedpFrame implements Frame against either the root frame (frameID
// zero value) or a specific child frame addressed by frameID, using an
// isolated execution world the way CDP clients evaluate inside a named
// frame (see cdproto/page.CreateIsolatedWorld + cdproto/runtime.Evaluate
// WithContextID).
type chromedpFrame struct {
	ctx     context.Context
	session *chromedpSession
	frameID cdp.FrameID
}

func (f *chromedpFrame) isRoot() bool { return f.frameID == "" }

func (f *chromedpFrame) executionContext(ctx context.Context) (runtime.ExecutionContextID, error) {
	if f.isRoot() {
		return 0, nil
	}
	worldName := "uiflow_frame_eval"
	execID, _, err := page.CreateIsolatedWorld(f.frameID, worldName, true).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("create isolated world: %w", err)
	}
	return execID, nil
}

func (f *chromedpFrame) Evaluate(ctx context.Context, expression string, out any) error {
	return chromedp.Run(f.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		execID, err := f.executionContext(ctx)
		if err != nil {
			return err
		}
		task := runtime.Evaluate(expression).WithReturnByValue(true).WithAwaitPromise(true)
		if execID != 0 {
			task = task.WithContextID(execID)
		}
		result, exceptionDetails, err := task.Do(ctx)
		if err != nil {
			return err
		}
		if exceptionDetails != nil {
			return fmt.Errorf("evaluate %q: %s", expression, exceptionDetails.Error())
		}
		if out == nil || result == nil {
			return nil
		}
		return result.Value.Unmarshal(out)
	}))
}

func (f *chromedpFrame) URL(ctx context.Context) (string, error) {
	var current string
	if err := f.Evaluate(ctx, "window.location.href", &current); err != nil {
		return "", err
	}
	return current, nil
}

func (f *chromedpFrame) Title(ctx context.Context) (string, error) {
	var title string
	if err := f.Evaluate(ctx, "document.title", &title); err != nil {
		return "", err
	}
	return title, nil
}

func (f *chromedpFrame) Navigate(ctx context.Context, url string, waitNetworkIdle bool) error {
	tasks := chromedp.Tasks{chromedp.Navigate(url)}
	if waitNetworkIdle {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			return chromedp.WaitReady("body", chromedp.ByQuery).Do(ctx)
		}))
	}
	return chromedp.Run(f.ctx, tasks)
}

func (f *chromedpFrame) waitSelectorDeadline(ctx context.Context, selector string, timeout time.Duration, byXPath bool) error {
	deadlineCtx, cancel := context.WithTimeout(f.ctx, timeout)
	defer cancel()
	opt := chromedp.ByQuery
	if byXPath {
		opt = chromedp.BySearch
	}
	if err := chromedp.Run(deadlineCtx, chromedp.WaitReady(selector, opt)); err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func (f *chromedpFrame) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return f.waitSelectorDeadline(ctx, selector, timeout, false)
}

func (f *chromedpFrame) WaitXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	return f.waitSelectorDeadline(ctx, xpath, timeout, true)
}

func (f *chromedpFrame) IsVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) (bool, error) {
	if err := f.WaitXPath(ctx, xpath, timeout); err != nil {
		return false, err
	}
	var visible bool
	script := fmt.Sprintf(visibilityByXPathScript, jsStringLiteral(xpath))
	if err := f.Evaluate(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

func (f *chromedpFrame) boundingBox(ctx context.Context, script string) (Box, error) {
	var raw []float64
	if err := f.Evaluate(ctx, script, &raw); err != nil {
		return Box{}, err
	}
	if len(raw) != 4 {
		return Box{}, fmt.Errorf("%w: bounding box unavailable", ErrElementNotFound)
	}
	return Box{X: raw[0], Y: raw[1], Width: raw[2], Height: raw[3]}, nil
}

func (f *chromedpFrame) BoundingBoxSelector(ctx context.Context, selector string) (Box, error) {
	return f.boundingBox(ctx, fmt.Sprintf(boundingBoxBySelectorScript, jsStringLiteral(selector)))
}

func (f *chromedpFrame) BoundingBoxXPath(ctx context.Context, xpath string) (Box, error) {
	return f.boundingBox(ctx, fmt.Sprintf(boundingBoxByXPathScript, jsStringLiteral(xpath)))
}

func (f *chromedpFrame) ScrollIntoViewSelector(ctx context.Context, selector string) error {
	_ = f.Evaluate(ctx, fmt.Sprintf(scrollIntoViewBySelectorScript, jsStringLiteral(selector)), nil)
	time.Sleep(settleDelay)
	return nil
}

func (f *chromedpFrame) ScrollIntoViewXPath(ctx context.Context, xpath string) error {
	_ = f.Evaluate(ctx, fmt.Sprintf(scrollIntoViewByXPathScript, jsStringLiteral(xpath)), nil)
	time.Sleep(settleDelay)
	return nil
}

func (f *chromedpFrame) HoverSelector(ctx context.Context, selector string) error {
	box, err := f.BoundingBoxSelector(ctx, selector)
	if err != nil {
		return err
	}
	return f.moveTo(box)
}

func (f *chromedpFrame) HoverXPath(ctx context.Context, xpath string) error {
	box, err := f.BoundingBoxXPath(ctx, xpath)
	if err != nil {
		return err
	}
	return f.moveTo(box)
}

func (f *chromedpFrame) moveTo(box Box) error {
	x, y := box.Center()
	return chromedp.Run(f.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (f *chromedpFrame) ClickXPath(ctx context.Context, xpath string) error {
	box, err := f.BoundingBoxXPath(ctx, xpath)
	if err != nil {
		return err
	}
	x, y := box.Center()
	return chromedp.Run(f.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
}

func (f *chromedpFrame) describeElement(ctx context.Context, script string) (ElementKind, error) {
	var kind string
	if err := f.Evaluate(ctx, script, &kind); err != nil {
		return ElementUnknown, err
	}
	switch ElementKind(kind) {
	case ElementText, ElementCheckbox, ElementRadio, ElementSelect:
		return ElementKind(kind), nil
	default:
		return ElementUnknown, nil
	}
}

func (f *chromedpFrame) DescribeElementSelector(ctx context.Context, selector string) (ElementKind, error) {
	return f.describeElement(ctx, fmt.Sprintf(elementKindScript, jsStringLiteral(selector)))
}

func (f *chromedpFrame) DescribeElementXPath(ctx context.Context, xpath string) (ElementKind, error) {
	return f.describeElement(ctx, fmt.Sprintf(elementKindByXPathScript, jsStringLiteral(xpath)))
}

func (f *chromedpFrame) FillSelector(ctx context.Context, selector, value string) error {
	return f.Evaluate(ctx, fmt.Sprintf(fillScript, jsStringLiteral(selector), jsStringLiteral(value)), nil)
}

func (f *chromedpFrame) FillXPath(ctx context.Context, xpath, value string) error {
	return f.Evaluate(ctx, fmt.Sprintf(fillByXPathScript, jsStringLiteral(xpath), jsStringLiteral(value)), nil)
}

func (f *chromedpFrame) check(ctx context.Context, script string, force bool, label string) error {
	var ok bool
	if err := f.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if ok || force {
		return nil
	}
	return fmt.Errorf("%w: checkbox %s did not toggle", ErrElementNotFound, label)
}

func (f *chromedpFrame) CheckSelector(ctx context.Context, selector string, force bool) error {
	return f.check(ctx, fmt.Sprintf(checkScript, jsStringLiteral(selector)), force, selector)
}

func (f *chromedpFrame) CheckXPath(ctx context.Context, xpath string, force bool) error {
	return f.check(ctx, fmt.Sprintf(checkByXPathScript, jsStringLiteral(xpath)), force, xpath)
}

func (f *chromedpFrame) ClickLabelFor(ctx context.Context, forAttribute string) error {
	var clicked bool
	if err := f.Evaluate(ctx, fmt.Sprintf(clickLabelForScript, jsStringLiteral(forAttribute)), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: no label for %s", ErrElementNotFound, forAttribute)
	}
	return nil
}

func (f *chromedpFrame) SelectByValueSelector(ctx context.Context, selector, value string) error {
	return f.Evaluate(ctx, fmt.Sprintf(selectByValueScript, jsStringLiteral(selector), jsStringLiteral(value)), nil)
}

func (f *chromedpFrame) SelectByValueXPath(ctx context.Context, xpath, value string) error {
	return f.Evaluate(ctx, fmt.Sprintf(selectByValueByXPathScript, jsStringLiteral(xpath), jsStringLiteral(value)), nil)
}

func (f *chromedpFrame) setInputFiles(ctx context.Context, nodes []*cdp.Node, locator string, file UploadFile) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, locator)
	}
	tmpPath, err := writeTempUploadFile(file)
	if err != nil {
		return err
	}
	return chromedp.Run(f.ctx, dom.SetFileInputFiles([]string{tmpPath}).WithBackendNodeID(nodes[0].BackendNodeID))
}

func (f *chromedpFrame) SetInputFilesSelector(ctx context.Context, selector string, file UploadFile) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(f.ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("resolve file input: %w", err)
	}
	return f.setInputFiles(ctx, nodes, selector, file)
}

func (f *chromedpFrame) SetInputFilesXPath(ctx context.Context, xpath string, file UploadFile) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(f.ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch)); err != nil {
		return fmt.Errorf("resolve file input: %w", err)
	}
	return f.setInputFiles(ctx, nodes, xpath, file)
}

func (f *chromedpFrame) ScrollWindow(ctx context.Context, x, y float64) error {
	if err := f.Evaluate(ctx, fmt.Sprintf("window.scrollTo({left:%f, top:%f, behavior:'smooth'})", x, y), nil); err != nil {
		return err
	}
	time.Sleep(scrollSettleDelay)
	return nil
}

func (f *chromedpFrame) ScrollContainer(ctx context.Context, containerXPath string, x, y float64) error {
	script := fmt.Sprintf(scrollContainerScript, jsStringLiteral(containerXPath), x, y)
	if err := f.Evaluate(ctx, script, nil); err != nil {
		return err
	}
	time.Sleep(scrollSettleDelay)
	return nil
}

func (f *chromedpFrame) InjectNoScrollStyle(ctx context.Context) error {
	script := fmt.Sprintf(injectStyleScript, jsStringLiteral(noScrollStyleElementID), jsStringLiteral(noScrollStyleCSS))
	return f.Evaluate(ctx, script, nil)
}

func (f *chromedpFrame) RemoveNoScrollStyle(ctx context.Context) error {
	script := fmt.Sprintf(removeStyleScript, jsStringLiteral(noScrollStyleElementID))
	return f.Evaluate(ctx, script, nil)
}

// chromedpPage adds the page-scoped capabilities on top of the root frame.
type chromedpPage struct {
	*chromedpFrame
}

func (p *chromedpPage) Frames(ctx context.Context) ([]FrameHandle, error) {
	var tree *page.FrameTree
	if err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("enumerate frames: %w", err)
	}

	var handles []FrameHandle
	var walk func(*page.FrameTree)
	walk = func(node *page.FrameTree) {
		if node == nil {
			return
		}
		if node.Frame != nil && node.Frame.ID != p.frameID {
			handles = append(handles, FrameHandle{
				Frame: &chromedpFrame{ctx: p.ctx, session: p.session, frameID: node.Frame.ID},
				URL:   node.Frame.URL,
			})
		}
		for _, child := range node.ChildFrames {
			walk(child)
		}
	}
	walk(tree)
	return handles, nil
}

func (p *chromedpPage) Keyboard() Keyboard { return &chromedpKeyboard{ctx: p.ctx} }

func (p *chromedpPage) RawInput() (RawInput, bool) {
	return &chromedpRawInput{ctx: p.ctx}, true
}

func (p *chromedpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(p.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromedpPage) SetCookie(ctx context.Context, cookie Cookie) error {
	path := cookie.Path
	if path == "" {
		path = "/"
	}
	return chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(cookie.Name, cookie.Value).
			WithDomain(cookie.Domain).
			WithPath(path).
			Do(ctx)
	}))
}

func (p *chromedpPage) WaitForDownload(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	done := make(chan struct{})

	listenCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventDownloadWillBegin); ok {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-done:
		return nil
	case <-time.After(time.Until(deadline)):
		return fmt.Errorf("download event not observed within %s", timeout)
	}
}

type chromedpKeyboard struct{ ctx context.Context }

func (k *chromedpKeyboard) Press(ctx context.Context, key string) error {
	return chromedp.Run(k.ctx, chromedp.KeyEvent(key))
}

// chromedpRawInput dispatches CDP Input domain mouse events directly so
// dragstart/dragend produce trusted events, per spec §4.8 and §9.
type chromedpRawInput struct{ ctx context.Context }

func (r *chromedpRawInput) MoveTo(ctx context.Context, x, y float64) error {
	return chromedp.Run(r.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (r *chromedpRawInput) MouseDown(ctx context.Context, x, y float64) error {
	return chromedp.Run(r.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx)
	}))
}

func (r *chromedpRawInput) MouseUp(ctx context.Context, x, y float64) error {
	return chromedp.Run(r.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx)
	}))
}

func writeTempUploadFile(file UploadFile) (string, error) {
	return writeTempFile(file.Name, file.Buffer)
}

func jsStringLiteral(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
	return `"` + escaped + `"`
}
