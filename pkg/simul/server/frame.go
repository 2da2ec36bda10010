// Package server exposes a pipeline over websocket so a remote driver can
// step it one segment at a time.
//
// Every connection to /ws owns a fresh pipeline. The client sends JSON
// frames; each segment frame gets exactly one segment frame back:
//
//	→ {"type":"segment","content":"▁hel","finished":false}
//	← {"type":"segment","index":0,"content":"","finished":false}
//	→ {"type":"reset"}
//	← {"type":"reset"}
//
// Failures are reported with an error frame, after which the server closes
// the connection.
package server

import "github.com/haivivi/simulagent/pkg/simul"

// Frame types.
const (
	TypeSegment = "segment"
	TypeReset   = "reset"
	TypeError   = "error"
)

// Frame is the JSON message exchanged on the websocket.
type Frame struct {
	Type         string `json:"type"`
	Index        int    `json:"index,omitempty"`
	Content      string `json:"content,omitempty"`
	Finished     bool   `json:"finished,omitempty"`
	WordBoundary bool   `json:"word_boundary,omitempty"`
	Error        string `json:"error,omitempty"`
}

func segmentFrame(seg simul.Segment) Frame {
	return Frame{
		Type:         TypeSegment,
		Index:        seg.Index,
		Content:      seg.Content,
		Finished:     seg.Finished,
		WordBoundary: seg.WordBoundary,
	}
}

// Segment converts a segment frame.
func (f Frame) Segment() simul.Segment {
	return simul.Segment{
		Index:        f.Index,
		Content:      f.Content,
		Finished:     f.Finished,
		WordBoundary: f.WordBoundary,
	}
}
