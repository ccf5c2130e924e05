//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Without cgo the clipboard is owned through a hidden X11 window.

var (
	initOnce sync.Once
	initErr  error
	owner    *x11Owner

	errTargetUnavailable = errors.New("clipboard target unavailable")
)

func ensureInit() error {
	initOnce.Do(func() {
		if !hasDisplay() {
			initErr = errNoDisplay
			return
		}
		owner, initErr = newX11Owner()
	})
	return initErr
}

func writeImage(data []byte) error { return owner.offer(owner.atoms[atomPNG], data) }

func readImage() ([]byte, error) { return owner.read(owner.atoms[atomPNG]) }

func writeText(data []byte) error { return owner.offer(owner.atoms[atomUTF8], data) }

func readText() ([]byte, error) {
	data, err := owner.read(owner.atoms[atomUTF8])
	if err != nil {
		return owner.read(xproto.AtomString)
	}
	return data, nil
}

const (
	atomClipboard = "CLIPBOARD"
	atomTargets   = "TARGETS"
	atomUTF8      = "UTF8_STRING"
	atomTextPlain = "text/plain;charset=utf-8"
	atomPNG       = "image/png"
	atomProperty  = "QUICKMARK_CLIPBOARD"
)

// x11Owner holds the one payload currently offered on CLIPBOARD.
type x11Owner struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  map[string]xproto.Atom

	mu      sync.RWMutex
	target  xproto.Atom
	payload []byte
}

func newX11Owner() (*x11Owner, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	mask := []uint32{xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify}
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask, mask).Check(); err != nil {
		conn.Close()
		return nil, err
	}
	atoms := map[string]xproto.Atom{}
	for _, name := range []string{atomClipboard, atomTargets, atomUTF8, atomTextPlain, atomPNG, atomProperty} {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			xproto.DestroyWindow(conn, window)
			conn.Close()
			return nil, err
		}
		atoms[name] = reply.Atom
	}
	o := &x11Owner{conn: conn, window: window, atoms: atoms}
	go o.serve()
	return o, nil
}

func (o *x11Owner) offer(target xproto.Atom, data []byte) error {
	o.mu.Lock()
	o.target = target
	o.payload = append([]byte(nil), data...)
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.window, o.atoms[atomClipboard], xproto.TimeCurrentTime).Check()
}

func (o *x11Owner) serve() {
	for {
		ev, err := o.conn.WaitForEvent()
		if err != nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.target, o.payload = 0, nil
			o.mu.Unlock()
		}
	}
}

// targets lists the atoms a requestor may convert the current payload to.
func (o *x11Owner) targets() []xproto.Atom {
	out := []xproto.Atom{o.atoms[atomTargets]}
	switch o.target {
	case o.atoms[atomUTF8]:
		out = append(out, o.atoms[atomUTF8], xproto.AtomString, o.atoms[atomTextPlain])
	case o.atoms[atomPNG]:
		out = append(out, o.atoms[atomPNG])
	}
	return out
}

func (o *x11Owner) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}

	o.mu.RLock()
	offered := o.targets()
	target, payload := o.target, o.payload
	o.mu.RUnlock()

	text := target == o.atoms[atomUTF8]
	switch {
	case e.Target == o.atoms[atomTargets]:
		buf := make([]byte, len(offered)*4)
		for i, a := range offered {
			xgb.Put32(buf[i*4:], uint32(a))
		}
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, xproto.AtomAtom, 32, uint32(len(offered)), buf)
	case text && (e.Target == o.atoms[atomUTF8] || e.Target == xproto.AtomString || e.Target == o.atoms[atomTextPlain]):
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, o.atoms[atomUTF8], 8, uint32(len(payload)), payload)
	case target != 0 && e.Target == target:
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, target, 8, uint32(len(payload)), payload)
	default:
		property = xproto.AtomNone
	}

	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	_ = xproto.SendEvent(o.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// read converts CLIPBOARD to target on a short lived connection so the
// request does not race with serve.
func (o *x11Owner) read(target xproto.Atom) ([]byte, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}
	if err := xproto.CreateWindowChecked(conn, 0, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return nil, err
	}
	defer xproto.DestroyWindow(conn, window)

	prop := o.atoms[atomProperty]
	if err := xproto.DeletePropertyChecked(conn, window, prop).Check(); err != nil {
		return nil, err
	}
	if err := xproto.ConvertSelectionChecked(conn, window, o.atoms[atomClipboard], target, prop, xproto.TimeCurrentTime).Check(); err != nil {
		return nil, err
	}
	for {
		ev, xerr := conn.WaitForEvent()
		if xerr != nil {
			return nil, xerr
		}
		e, ok := ev.(xproto.SelectionNotifyEvent)
		if !ok {
			continue
		}
		if e.Property == xproto.AtomNone {
			return nil, errTargetUnavailable
		}
		if e.Property != prop {
			continue
		}
		reply, err := xproto.GetProperty(conn, false, window, prop, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), reply.Value...), nil
	}
}
