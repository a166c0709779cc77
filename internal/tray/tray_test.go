package tray

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mustfahassan/pd-calculator/internal/alignment"
	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		name   string
		status session.Status
		want   string
	}{
		{name: "stopped", status: session.Status{State: session.StateStopped}, want: "Stopped"},
		{name: "no face", status: session.Status{State: session.StateIdle, Message: alignment.MessageNoFace}, want: alignment.MessageNoFace},
		{name: "accumulating", status: session.Status{State: session.StateAccumulating, Message: alignment.MessagePerfect, Progress: 40}, want: "Perfect (40%)"},
		{name: "countdown", status: session.Status{State: session.StateCountdown, Countdown: 2}, want: "Hold still... 2"},
		{name: "requesting", status: session.Status{State: session.StateRequesting}, want: "Measuring..."},
		{name: "displaying", status: session.Status{State: session.StateDisplaying}, want: "Done"},
		{name: "failed request", status: session.Status{State: session.StateIdle, Error: "low confidence"}, want: "Retrying: low confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLabel(tt.status))
		})
	}
}

func TestResultLabel(t *testing.T) {
	r := measure.Result{PDMM: 62.6, Confidence: 88, Status: measure.StatusSuccess}

	assert.Equal(t, "63 mm (88%)", ResultLabel(r.Display()))
}

// Menu items only exist once systray runs, so these exercise the
// not-yet-ready paths.
func TestTray_UpdateBeforeReady(t *testing.T) {
	tr := New()
	assert.Equal(t, "Stopped", tr.Label())

	tr.Update(session.Status{State: session.StateRequesting})

	assert.Equal(t, "Measuring...", tr.Label())
}

func TestTray_StartFailureShowsCameraUnavailable(t *testing.T) {
	tr := New()
	tr.OnStart(func() error { return errors.New("camera unavailable: device 0") })

	tr.handleStart()

	assert.Equal(t, "Camera unavailable", tr.Label())
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()
	var stopped, opened bool
	tr.OnStop(func() { stopped = true })
	tr.OnOpen(func() { opened = true })

	tr.handleStop()
	tr.handleOpen()

	assert.True(t, stopped)
	assert.True(t, opened)
}
