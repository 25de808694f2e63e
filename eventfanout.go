package ttypilot

import (
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

type eventFanout struct {
	sinks []tools.EventSink
}

func (f eventFanout) OnToolEvent(event schema.ToolEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnToolEvent(event)
	}
}
