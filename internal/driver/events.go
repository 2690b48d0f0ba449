package driver

import "time"

// Stage is a pipeline phase of one pair.
type Stage string

const (
	StageLoad    Stage = "load"
	StageAnalyse Stage = "analyse"
	StageCompare Stage = "compare"
	StageReport  Stage = "report"
)

// Status is the progress of a pair within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress of a pair. Verdict is set on StatusDone.
type Event struct {
	Pair    string
	Stage   Stage
	Status  Status
	Verdict Verdict
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use when passed to Batch.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
