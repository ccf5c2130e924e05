package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang/geo/r2"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/clipboard"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/notify"
	"github.com/example/quickmark/internal/overlay"
	"github.com/example/quickmark/internal/pdfout"
	"github.com/example/quickmark/internal/render"
	"github.com/example/quickmark/internal/theme"
)

// maxWindowHeight caps the initial window height for tall documents.
const maxWindowHeight = 1000

// AppState holds the viewer configuration and the annotation session.
type AppState struct {
	Session  *Session
	Output   string
	ColorIdx int
	Theme    *theme.Theme
	Notifier *notify.Notifier
	// Status is shown at the right of the header, e.g. the license state.
	Status string

	updateCh    chan struct{}
	controlMu   sync.Mutex
	sendControl func(controlEvent)

	onClose   func()
	closeOnce sync.Once
	closed    chan struct{}
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithOutput sets the path written by the export shortcut.
func WithOutput(out string) Option { return func(a *AppState) { a.Output = out } }

// WithColorIndex sets the initial palette index for annotation tools.
func WithColorIndex(idx int) Option { return func(a *AppState) { a.ColorIdx = idx } }

// WithTheme sets the chrome colours.
func WithTheme(t *theme.Theme) Option { return func(a *AppState) { a.Theme = t } }

// WithNotifier sets the desktop notifier used after export and copy.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.Notifier = n } }

// WithStatus sets the header status text.
func WithStatus(s string) Option { return func(a *AppState) { a.Status = s } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState for session with the provided options.
func New(session *Session, opts ...Option) *AppState {
	a := &AppState{
		Session:  session,
		ColorIdx: defaultColorIndex,
		Theme:    theme.Default(),
		updateCh: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.ColorIdx = clampColorIndex(a.ColorIdx)
	return a
}

// controlEvent runs fn on the UI goroutine, or closes the window.
type controlEvent struct {
	fn   func(*Session)
	quit bool
}

// Quit closes the window if it is open.
func (a *AppState) Quit() {
	a.controlMu.Lock()
	sender := a.sendControl
	a.controlMu.Unlock()
	if sender != nil {
		sender(controlEvent{quit: true})
	}
}

// NotifyChanged requests a repaint after the session changed.
func (a *AppState) NotifyChanged() {
	if a.updateCh == nil {
		return
	}
	select {
	case a.updateCh <- struct{}{}:
	default:
	}
}

// Do runs fn against the session. While the window is open fn runs on the
// UI goroutine and Do returns once it has finished, or once the window
// closes; otherwise it runs directly.
func (a *AppState) Do(fn func(*Session)) {
	a.controlMu.Lock()
	sender := a.sendControl
	a.controlMu.Unlock()
	if sender == nil {
		fn(a.Session)
		return
	}
	done := make(chan struct{})
	sender(controlEvent{fn: func(s *Session) {
		defer close(done)
		fn(s)
	}})
	select {
	case <-done:
	case <-a.closed:
	}
}

func (a *AppState) setControlSender(fn func(controlEvent)) {
	a.controlMu.Lock()
	a.sendControl = fn
	a.controlMu.Unlock()
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		a.setControlSender(nil)
		close(a.closed)
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

func (a *AppState) Main(s screen.Screen) {
	sess := a.Session
	th := a.Theme
	output := a.Output
	colorIdx := clampColorIndex(a.ColorIdx)
	sess.Machine.SetColor(paletteColorAt(colorIdx))

	measureToolbar()
	sess.Layout.Origin = r2.Point{X: float64(toolbarWidth + pageMargin), Y: float64(tabHeight + pageMargin)}
	sess.Overlay.MaterializeAll()

	ext := sess.Layout.Extent()
	width := ext.X + toolbarWidth + 2*pageMargin
	height := min(ext.Y+tabHeight+bottomHeight+2*pageMargin, maxWindowHeight)
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: a.title()})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()

	defer a.notifyClose()

	if a.updateCh != nil {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-a.updateCh:
					w.Send(paint.Event{})
				case <-done:
					return
				}
			}
		}()
		defer close(done)
	}

	a.setControlSender(func(ev controlEvent) { w.Send(ev) })

	var message string
	var messageUntil time.Time
	var confirmClear bool
	var placing bool
	var input inputState
	hoverTool, hoverPalette, hoverTab, hoverShortcut := -1, -1, -1, -1

	showMessage := func(msg string) {
		message = msg
		log.Print(message)
		messageUntil = time.Now().Add(messageTimeout)
	}

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	defer close(paintCh)
	go func() {
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			drawFrame(ctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()
	cancelPaint := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	cache := overlay.NewImageCache()

	selectTool := func(tool capture.Tool) {
		placing = false
		if err := sess.Arm(tool); err != nil {
			if errors.Is(err, license.ErrNotPermitted) {
				showMessage(fmt.Sprintf("%s needs a license", tool))
				return
			}
			log.Printf("arm %s: %v", tool, err)
		}
	}

	var tools []*CacheButton
	for _, ts := range toolSpecs {
		ts := ts
		tools = append(tools, &CacheButton{Button: &ToolButton{
			label:    ts.label,
			tool:     ts.tool,
			disabled: !sess.Permitted(ts.tool),
			theme:    th,
			onSelect: func() {
				if sess.Tool() == ts.tool {
					selectTool(capture.ToolNone)
					return
				}
				selectTool(ts.tool)
			},
		}})
	}

	keyboardAction := map[KeyShortcut]string{}
	actions := map[string]func(){}
	register := func(name string, keys KeyboardShortcuts, fn func()) {
		actions[name] = fn
		if keys != nil {
			for _, sc := range keys.KeyboardShortcuts() {
				keyboardAction[sc] = name
			}
		}
	}

	// placeAt is where pasted signatures go: the pointer when it is over a
	// page, the top-left margin of the current page otherwise.
	placeAt := func() r2.Point {
		if _, _, ok := sess.Layout.PageAt(sess.Pointer()); ok {
			return sess.Pointer()
		}
		if p := sess.Layout.Page(sess.CurrentPage()); p != nil {
			o := sess.Layout.PageOrigin(p)
			return r2.Point{X: o.X + 36, Y: math.Max(o.Y, sess.Layout.Origin.Y) + 36}
		}
		return sess.Pointer()
	}

	register("text", shortcutList{{Rune: 't'}}, func() {
		was := placing
		selectTool(capture.ToolNone)
		placing = !was
	})
	register("sign", shortcutList{{Rune: 'g'}, {Rune: 'v', Modifiers: key.ModControl}}, func() {
		sig, err := clipboard.ReadSignature()
		if err != nil {
			showMessage(fmt.Sprintf("paste signature: %v", err))
			return
		}
		if _, err := sess.PlaceSignature(placeAt(), sig); err != nil {
			showMessage(fmt.Sprintf("place signature: %v", err))
			return
		}
		showMessage("signature placed")
	})
	register("export", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, func() {
		ctx := context.Background()
		if _, err := sess.Export(ctx, sess.SinkFor(output)); err != nil {
			showMessage(fmt.Sprintf("export: %v", err))
			return
		}
		if _, ok := sess.SinkFor(output).(*pdfout.Writer); ok {
			preview, err := sess.PageImage(ctx, sess.CurrentPage())
			if err != nil {
				log.Printf("export preview: %v", err)
			}
			a.Notifier.Export(output, preview)
		} else {
			a.Notifier.Save(output)
		}
		showMessage(fmt.Sprintf("exported %s", output))
	})
	register("copy", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, func() {
		n := sess.CurrentPage()
		img, err := sess.PageImage(context.Background(), n)
		if err != nil {
			log.Printf("copy: %v", err)
			return
		}
		if err := clipboard.WriteImage(img); err != nil {
			log.Printf("copy: %v", err)
			return
		}
		detail := fmt.Sprintf("page %d", n)
		a.Notifier.Copy(detail)
		showMessage(detail + " copied to clipboard")
	})
	register("delete", shortcutList{{Code: key.CodeDeleteForward}, {Code: key.CodeDeleteBackspace}}, func() {
		if err := sess.DeleteHovered(); err != nil {
			log.Printf("delete: %v", err)
		}
	})
	register("clear", shortcutList{{Rune: 'r'}}, func() {
		sess.ClearAll()
		cache = overlay.NewImageCache()
		showMessage("annotations cleared")
	})
	register("cancel", shortcutList{{Code: key.CodeEscape}}, func() {
		placing = false
		if sess.Machine.State() == capture.Dragging {
			sess.Machine.Cancel()
			return
		}
		selectTool(capture.ToolNone)
	})
	register("zoomin", shortcutList{{Rune: '+'}, {Rune: '='}}, func() {
		sess.SetZoom(math.Min(sess.Layout.Zoom*zoomStep, maxZoom))
	})
	register("zoomout", shortcutList{{Rune: '-'}}, func() {
		sess.SetZoom(math.Max(sess.Layout.Zoom/zoomStep, minZoom))
	})
	viewport := func() int { return height - tabHeight - bottomHeight }
	register("up", shortcutList{{Code: key.CodeUpArrow}}, func() { sess.ScrollBy(-scrollStep, viewport()) })
	register("down", shortcutList{{Code: key.CodeDownArrow}}, func() { sess.ScrollBy(scrollStep, viewport()) })
	register("pageup", shortcutList{{Code: key.CodePageUp}}, func() { sess.ScrollBy(-float64(viewport()), viewport()) })
	register("pagedown", shortcutList{{Code: key.CodePageDown}}, func() { sess.ScrollBy(float64(viewport()), viewport()) })
	for _, ts := range toolSpecs {
		ts := ts
		register(ts.tool.String(), shortcutList{{Rune: ts.key}}, func() {
			if sess.Tool() == ts.tool {
				selectTool(capture.ToolNone)
				return
			}
			selectTool(ts.tool)
		})
	}

	tools = append(tools,
		&CacheButton{Button: &ToolButton{label: textLabel, theme: th, onSelect: actions["text"]}},
		&CacheButton{Button: &ToolButton{label: signLabel, theme: th, onSelect: actions["sign"]}},
	)
	for i, cb := range tools {
		cb.SetRect(toolButtonRect(i))
	}

	shortcutLabels := [][2]string{
		{"^S:Export", "export"},
		{"^C:Copy", "copy"},
		{"^V:Sign", "sign"},
		{"Del:Delete", "delete"},
		{"R:Clear", "clear"},
		{"+/-:Zoom", "zoomin"},
		{"Q:Quit", "quit"},
	}
	quit := false
	register("quit", shortcutList{{Rune: 'q'}}, func() { quit = true })

	startInput := func(kind inputKind, at r2.Point, text string) {
		input = inputState{kind: kind, at: at, text: text}
	}
	// startNote opens the editor for the note the session is editing.
	startNote := func() {
		r, ok := sess.EditingNote()
		if !ok {
			return
		}
		p := sess.Layout.Page(r.Page)
		if p == nil {
			return
		}
		startInput(inputNote, r.Anchor.Add(sess.Layout.PageOrigin(p)), r.Text)
	}

	runAction := func(action string) {
		if action == "clear" {
			if !confirmClear {
				confirmClear = true
				showMessage("press R again to clear all annotations")
				return
			}
		}
		confirmClear = false
		if fn, ok := actions[action]; ok {
			fn()
		}
	}

	for {
		if quit {
			cancelPaint()
			return
		}
		e := w.NextEvent()
		switch e := e.(type) {
		case controlEvent:
			if e.quit {
				cancelPaint()
				return
			}
			e.fn(sess)
			w.Send(paint.Event{})
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				cancelPaint()
				return
			}
		case size.Event:
			width = e.WidthPx
			height = e.HeightPx
			sess.ScrollBy(0, viewport())
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil {
				if dropCount < frameDropThreshold {
					paintCancel()
					dropCount++
				}
			}
			paintMu.Unlock()
			st := paintState{
				width:         width,
				height:        height,
				theme:         th,
				doc:           sess.Doc,
				zoom:          sess.Layout.Zoom,
				status:        a.Status,
				current:       sess.CurrentPage(),
				tabs:          pageTabs(sess.Layout.Pages),
				scene:         sess.Overlay.Scene(),
				cache:         cache,
				tools:         tools,
				tool:          sess.Tool(),
				placing:       placing,
				colorIdx:      colorIdx,
				hoverTool:     hoverTool,
				hoverPalette:  hoverPalette,
				hoverTab:      hoverTab,
				shortcuts:     shortcutBar(shortcutLabels, height),
				hoverShortcut: hoverShortcut,
				input:         input,
				message:       message,
				messageUntil:  messageUntil,
			}
			for _, p := range sess.Layout.Pages {
				o := sess.Layout.PageOrigin(p)
				pv := pageView{number: p.Number, rect: image.Rectangle{Max: p.Display}.Add(image.Pt(int(o.X), int(o.Y)))}
				if sess.Machine.State() == capture.Dragging && sess.Tool() == capture.ToolDraw && !render.Blank(p.Canvas) {
					pv.stroke = cloneRGBA(p.Canvas)
				}
				st.pages = append(st.pages, pv)
			}
			if r, ok := proxyRecord(sess.Machine.Proxy()); ok {
				if p := sess.Layout.Page(r.Page); p != nil {
					st.proxy = &r
					st.proxyOrigin = sess.Layout.PageOrigin(p)
				}
			}
			sendFrame(paintCh, st)
		case mouse.Event:
			if message != "" && time.Now().Before(messageUntil) && e.Direction == mouse.DirPress {
				messageUntil = time.Time{}
				w.Send(paint.Event{})
				continue
			}
			p := image.Point{int(e.X), int(e.Y)}
			if e.Button == mouse.ButtonWheelUp || e.Button == mouse.ButtonWheelDown {
				if e.Direction == mouse.DirPress || e.Direction == mouse.DirStep {
					dy := float64(scrollStep)
					if e.Button == mouse.ButtonWheelUp {
						dy = -dy
					}
					sess.ScrollBy(dy, viewport())
					w.Send(paint.Event{})
				}
				continue
			}
			clicked := e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress
			dragging := sess.Overlay.Dragging() || sess.Machine.State() == capture.Dragging
			if !dragging && p.Y >= height-bottomHeight {
				hoverShortcut = -1
				for i, sc := range shortcutBar(shortcutLabels, height) {
					if p.In(sc.rect) {
						hoverShortcut = i
						if clicked {
							runAction(sc.action)
						}
						break
					}
				}
				w.Send(paint.Event{})
				continue
			}
			if !dragging && p.Y < tabHeight {
				hoverTab = -1
				for i, tb := range pageTabs(sess.Layout.Pages) {
					if p.In(tb.rect) {
						hoverTab = i
						if clicked {
							sess.ScrollToPage(tb.page)
							sess.ScrollBy(0, viewport())
						}
						break
					}
				}
				w.Send(paint.Event{})
				continue
			}
			if !dragging && p.X < toolbarWidth {
				hoverTool, hoverPalette = -1, -1
				for i, cb := range tools {
					if p.In(cb.Rect()) {
						hoverTool = i
						if clicked {
							cb.Activate()
						}
						break
					}
				}
				top := paletteTop(len(tools))
				for i := range paletteLen() {
					if p.In(swatchRect(top, i)) {
						hoverPalette = i
						if clicked {
							colorIdx = i
							a.ColorIdx = i
							sess.Machine.SetColor(paletteColorAt(i))
						}
						break
					}
				}
				w.Send(paint.Event{})
				continue
			}
			if hoverTool != -1 || hoverPalette != -1 || hoverTab != -1 || hoverShortcut != -1 {
				hoverTool, hoverPalette, hoverTab, hoverShortcut = -1, -1, -1, -1
				w.Send(paint.Event{})
			}

			at := r2.Point{X: float64(e.X), Y: float64(e.Y)}
			if clicked && input.active() {
				// A click elsewhere commits what was typed.
				commitInput(sess, &input, showMessage)
			}
			if clicked && placing {
				if _, _, ok := sess.Layout.PageAt(at); ok {
					startInput(inputText, at, "")
					placing = false
					w.Send(paint.Event{})
				}
				continue
			}
			if sess.Handle(e) {
				w.Send(paint.Event{})
			}
			if e.Direction == mouse.DirRelease && !input.active() {
				startNote()
			}
		case key.Event:
			if e.Direction != key.DirPress {
				continue
			}
			if input.active() {
				switch e.Code {
				case key.CodeReturnEnter:
					commitInput(sess, &input, showMessage)
				case key.CodeEscape:
					if input.kind == inputNote {
						sess.CancelNote()
					}
					input = inputState{}
				case key.CodeDeleteBackspace:
					if _, n := utf8.DecodeLastRuneInString(input.text); n > 0 {
						input.text = input.text[:len(input.text)-n]
					}
				default:
					if e.Rune > 0 && unicode.IsPrint(e.Rune) {
						input.text += string(e.Rune)
					}
				}
				w.Send(paint.Event{})
				continue
			}
			ks := KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}
			if e.Rune > 0 && unicode.IsPrint(e.Rune) {
				// Shift is implied by the rune itself, as in '+'.
				ks = KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: e.Modifiers &^ key.ModShift}
			}
			if action, ok := keyboardAction[ks]; ok {
				runAction(action)
				w.Send(paint.Event{})
				continue
			}
			confirmClear = false
		}
	}
}

func (a *AppState) title() string {
	if p := a.Session.Doc.Path; p != "" {
		return "QuickMark - " + p
	}
	return "QuickMark"
}

// commitInput stores the text being typed as a text box or note text.
func commitInput(sess *Session, in *inputState, showMessage func(string)) {
	cur := *in
	*in = inputState{}
	switch cur.kind {
	case inputText:
		if cur.text == "" {
			return
		}
		if _, err := sess.PlaceText(cur.at, cur.text); err != nil {
			showMessage(fmt.Sprintf("place text: %v", err))
		}
	case inputNote:
		if err := sess.CommitNote(cur.text); err != nil {
			showMessage(fmt.Sprintf("note: %v", err))
		}
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// sendFrame queues st for painting, replacing a frame the paint goroutine
// has not picked up yet. Only the UI goroutine sends on ch.
func sendFrame(ch chan paintState, st paintState) {
	select {
	case <-ch:
	default:
	}
	ch <- st
}
