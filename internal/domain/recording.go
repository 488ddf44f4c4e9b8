package domain

import "encoding/json"

// Frame is one opaque replay record emitted by a frame-capture primitive.
type Frame = json.RawMessage

// RecordingSession is the window of frames collected between two checkpoints.
type RecordingSession struct {
	ID      string
	Frames  []Frame
	Failure bool
}
