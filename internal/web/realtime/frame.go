package realtime

import (
	"encoding/json"
	"strings"

	"github.com/mcoot/judgeportal/internal/model"
)

// Event names carried on the real-time channel
const (
	EventConnected = "connected"
	EventResult    = "result"
	EventTests     = "tests"
	EventUsers     = "users"
	EventConfigs   = "configs"
	EventSubmit    = "submit"
)

// Frame is one event on the real-time channel. Over a websocket it is sent
// as the JSON envelope {"event": ..., "data": ...}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SubmitReply is the payload of a server to client submit frame
type SubmitReply struct {
	Message string `json:"message"`
}

func newFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}

// snapshotFrames encodes a snapshot once and personalises the result frame
// per viewer
type snapshotFrames struct {
	snapshot *model.Snapshot
	shared   []Frame
	results  map[model.Viewer]Frame
}

func encodeSnapshot(snapshot *model.Snapshot) (*snapshotFrames, error) {
	sf := &snapshotFrames{
		snapshot: snapshot,
		results:  make(map[model.Viewer]Frame),
	}
	for _, p := range []struct {
		event   string
		payload any
	}{
		{EventTests, nonNil(snapshot.Tests)},
		{EventUsers, nonNil(snapshot.Users)},
		{EventConfigs, nonNilInfos(snapshot.Configs)},
	} {
		f, err := newFrame(p.event, p.payload)
		if err != nil {
			return nil, err
		}
		sf.shared = append(sf.shared, f)
	}
	return sf, nil
}

// framesFor returns the result, tests, users and configs frames as viewer
// may see them
func (sf *snapshotFrames) framesFor(viewer model.Viewer) ([]Frame, error) {
	key := viewer
	if key.Admin {
		key = model.Viewer{Admin: true}
	}

	result, ok := sf.results[key]
	if !ok {
		var err error
		result, err = newFrame(EventResult, sf.snapshot.Results.RedactFor(viewer))
		if err != nil {
			return nil, err
		}
		sf.results[key] = result
	}

	frames := make([]Frame, 0, 1+len(sf.shared))
	frames = append(frames, result)
	frames = append(frames, sf.shared...)
	return frames, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInfos(s []model.TestInfo) []model.TestInfo {
	if s == nil {
		return []model.TestInfo{}
	}
	return s
}

// formatSSEMessage formats an SSE message with event name and data.
// Multi-line data gets a "data: " prefix on each line.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on \n, dropping \r and a trailing empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
