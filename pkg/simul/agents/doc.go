// Package agents provides the text agents of the translation pipeline and a
// pattern-based registry to build pipelines from configuration.
//
// Built-in agents:
//   - "text/segmenter": buffers K source tokens, then emits them joined by
//     single spaces.
//   - "text/spm-detokenizer": decodes SentencePiece pieces into text, either
//     eagerly or holding back the trailing, possibly partial, word.
//
// # Usage
//
//	p, err := agents.NewPipeline(agents.DefaultMux, agents.DefaultPipeline, agents.Config{
//	    SegmentK:           3,
//	    SentencePieceModel: "spm.model",
//	})
package agents
