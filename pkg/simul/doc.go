// Package simul runs simultaneous (streaming) text agents.
//
// # Core Types
//
// An Agent owns a policy: given its current States it either asks for more
// input (ReadAction) or emits text (WriteAction). A Stage pairs an Agent with
// the States it owns and turns pushed Segments into popped Segments:
//
//	in  := simul.Segment{Content: "▁hel"}
//	out, err := stage.PushPop(in)
//
// A Pipeline chains Stages so the output of one is the input of the next:
//
//	tokens -> Segmenter -> space-joined chunks -> Detokenizer -> text
//
// Stages are driven synchronously, one step per input segment. An empty,
// unfinished Segment means "nothing yet"; a Segment with Finished set means
// the stream is over.
package simul
