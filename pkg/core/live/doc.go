// Package live runs a realtime audio/video session with a hosted model.
//
// A Manager owns at most one Session at a time. A Session walks a fixed
// state machine:
//
//	IDLE → CONNECTING → ACTIVE → CLOSED
//	          │                     ↑
//	          └─────── error/stop ──┘
//
// CLOSED is terminal; the Manager returns to IDLE and a new Session must be
// started for the next call.
//
// While ACTIVE three tasks run under one errgroup:
//
//   - audio producer: reads 4096-sample blocks from the microphone, encodes
//     them as 16-bit PCM and sends them as audio/pcm;rate=16000.
//   - frame producer: every 600 ms snapshots the camera, encodes a 640x480
//     JPEG and sends it as image/jpeg.
//   - inbound loop: decodes 24 kHz PCM audio parts from the model and hands
//     them, in arrival order, to a playback.Scheduler.
//
// Outbound sends are fire-and-forget: a failed send drops the chunk.
// Stop cancels the group, closes the connection, waits for the tasks and
// releases the capture stream before returning.
//
// # Usage
//
//	m := live.NewManager(live.Options{
//	    Connector: connector,
//	    Devices:   devices,
//	    Sink:      sink,
//	})
//	sess, err := m.StartCapture(ctx, media.FacingEnvironment)
//	if err != nil {
//	    return err
//	}
//	for ev := range sess.Events() {
//	    switch e := ev.(type) {
//	    case *live.StateChangedEvent:
//	        fmt.Println(e.Text)
//	    case *live.SpeakingEvent:
//	        fmt.Println("speaking:", e.Speaking)
//	    }
//	}
package live
