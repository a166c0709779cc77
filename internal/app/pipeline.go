package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mustfahassan/pd-calculator/internal/client"
	"github.com/mustfahassan/pd-calculator/internal/geometry"
	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/metrics"
	"github.com/mustfahassan/pd-calculator/internal/overlay"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

// submission carries a measurement response back into the frame loop.
type submission struct {
	req    *session.Request
	result *measure.Result
	err    error
	start  time.Time
}

// runPipeline is the frame loop of one capture session.
//
// Every frame tick reads a frame, runs detection while the machine is
// counting, renders the overlay and publishes preview and status. Countdown
// ticks and the measurement response arrive on their own channels, so the
// preview keeps moving during both. The loop ends when ctx is cancelled or a
// measurement succeeds; either way the camera is released.
func (a *App) runPipeline(ctx context.Context, done chan struct{}, log *logrus.Entry) {
	defer close(done)
	defer func() {
		if err := a.camera.Close(); err != nil {
			log.WithError(err).Warn("Error closing camera")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Frame loop crashed")
			a.machine.Stop()
			a.broadcast()
		}
	}()

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var (
		countdown  *time.Ticker
		countdownC <-chan time.Time
	)
	stopCounter := func() {
		if countdown != nil {
			countdown.Stop()
			countdown, countdownC = nil, nil
		}
	}
	results := make(chan submission, 1)
	defer stopCounter()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			update, ok := a.processFrame(log)
			if ok && update.Triggered {
				a.metrics.Triggers.Inc()
				log.WithField("count", update.Count).Info("Alignment held, starting countdown")
				countdown = time.NewTicker(a.config.CountdownInterval)
				countdownC = countdown.C
			}

		case <-countdownC:
			u := a.machine.CountdownTick()
			if !u.Active || u.Request != nil {
				stopCounter()
			}
			if u.Request != nil {
				log.Info("Submitting landmarks for measurement")
				go a.submit(ctx, u.Request, results)
			}
			a.broadcast()

		case sub := <-results:
			if a.complete(sub, log) {
				// Leave the result on screen and release the camera.
				a.processFrame(log)
				return
			}
		}
	}
}

// processFrame handles one camera frame. ok is false when no frame could be read.
func (a *App) processFrame(log *logrus.Entry) (update session.FrameUpdate, ok bool) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		log.WithError(err).Debug("Error reading frame")
		return update, false
	}
	defer frame.Close()

	if st := a.machine.State(); st == session.StateIdle || st == session.StateAccumulating {
		update = a.machine.HandleFrame(a.observe(frame, log))
	}

	a.present(frame, log)
	return update, true
}

// observe runs detection on the unmirrored frame and mirrors the result
// once for evaluation and drawing.
func (a *App) observe(frame *gocv.Mat, log *logrus.Entry) session.Observation {
	obs := session.Observation{Width: frame.Cols(), Height: frame.Rows()}

	faces, err := a.detector.Detect(frame)
	if err != nil {
		a.metrics.DetectionErrors.Inc()
		log.WithError(err).Debug("Detection failed")
	}
	a.metrics.ObserveFrame(len(faces) > 0)
	if len(faces) == 0 {
		return obs
	}

	obs.Raw = faces[0].Points
	obs.View = geometry.MirrorAll(faces[0].Points)
	return obs
}

// present draws the overlay and publishes the frame and status.
func (a *App) present(frame *gocv.Mat, log *logrus.Entry) {
	s := a.machine.Status()

	a.renderer.Render(frame, overlay.View{
		Landmarks: s.View,
		Message:   s.Message,
		Aligned:   s.Aligned,
		Progress:  s.Progress,
		Countdown: s.Countdown,
		Result:    s.Display,
	})

	if data, err := overlay.EncodeJPEG(frame); err != nil {
		log.WithError(err).Debug("Error encoding preview")
	} else {
		a.preview.Publish(data)
	}

	a.broadcast()
}

func (a *App) submit(ctx context.Context, req *session.Request, results chan<- submission) {
	ctx, cancel := context.WithTimeout(ctx, a.config.SubmitTimeout)
	defer cancel()

	start := time.Now()
	res, err := a.measurer.Submit(ctx, req.Landmarks)
	results <- submission{req: req, result: res, err: err, start: start}
}

// complete hands a response to the machine and reports whether the session
// reached Displaying.
func (a *App) complete(sub submission, log *logrus.Entry) bool {
	if !a.machine.Complete(sub.req.Epoch, sub.result, sub.err) {
		a.metrics.ObserveSubmission(metrics.OutcomeDiscarded, sub.start)
		log.Debug("Discarded stale measurement response")
		return false
	}

	if sub.err != nil || !sub.result.OK() {
		outcome := metrics.OutcomeError
		if sub.err == nil || errors.Is(sub.err, client.ErrRejected) {
			outcome = metrics.OutcomeRejected
		}
		a.metrics.ObserveSubmission(outcome, sub.start)
		log.WithField("error", a.machine.Status().Error).Warn("Measurement failed, capture resumes")
		a.broadcast()
		return false
	}

	a.metrics.ObserveSubmission(metrics.OutcomeSuccess, sub.start)
	log.WithFields(logrus.Fields{
		"pd_mm":      sub.result.PDMM,
		"confidence": sub.result.Confidence,
	}).Info("Measurement complete")
	return true
}
