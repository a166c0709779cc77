// Package tray provides a system tray menu for starting and stopping a
// PD measurement.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onStart func() error
	onStop  func()
	onOpen  func()
	onQuit  func()
	mu      sync.RWMutex

	label string

	// Menu items stored for later updates
	menuStart  *systray.MenuItem
	menuStop   *systray.MenuItem
	menuStatus *systray.MenuItem
	menuResult *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{label: "Stopped"}
}

// OnStart sets the callback for "Start measurement". An error is shown in the menu.
func (t *Tray) OnStart(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback for "Stop".
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnOpen sets the callback for "Open in browser".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("PD")
	systray.SetTooltip("Pupillary distance measurement")

	t.mu.Lock()
	t.menuStart = systray.AddMenuItem("Start measurement", "Open the camera and start measuring")
	t.menuStop = systray.AddMenuItem("Stop", "Stop measuring and release the camera")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.label, "Capture state")
	t.menuStatus.Disable()
	t.menuResult = systray.AddMenuItem("Last result: none", "Most recent measurement")
	t.menuResult.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open in browser", "Show the live preview")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit pdcalc")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				t.handleStart()
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleStart() {
	t.mu.RLock()
	callback := t.onStart
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	// Call the callback outside the lock to prevent deadlocks
	if err := callback(); err != nil {
		t.setLabel("Camera unavailable")
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update reflects a session snapshot in the menu. It is safe to call
// before the tray is ready.
func (t *Tray) Update(s session.Status) {
	t.setLabel(StatusLabel(s))

	if s.Display == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuResult != nil {
		t.menuResult.SetTitle("Last result: " + ResultLabel(*s.Display))
	}
}

// Label returns the current status line.
func (t *Tray) Label() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.label
}

func (t *Tray) setLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if label == t.label {
		return
	}
	t.label = label
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(label)
	}
}

// StatusLabel renders a session snapshot as a one-line menu title.
func StatusLabel(s session.Status) string {
	switch s.State {
	case session.StateStopped:
		return "Stopped"
	case session.StateCountdown:
		return fmt.Sprintf("Hold still... %d", s.Countdown)
	case session.StateRequesting:
		return "Measuring..."
	case session.StateDisplaying:
		return "Done"
	case session.StateAccumulating:
		return fmt.Sprintf("%s (%d%%)", s.Message, int(s.Progress))
	default:
		if s.Error != "" {
			return "Retrying: " + s.Error
		}
		return s.Message
	}
}

// ResultLabel renders a result for the menu.
func ResultLabel(d measure.Display) string {
	return fmt.Sprintf("%s (%s)", d.PD, d.Confidence)
}
