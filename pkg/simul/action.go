package simul

import "fmt"

// Action is the outcome of one policy evaluation: either *ReadAction or
// *WriteAction.
type Action interface {
	isAction()
	String() string
}

var (
	_ Action = (*ReadAction)(nil)
	_ Action = (*WriteAction)(nil)
)

// ReadAction asks the driver for more input.
type ReadAction struct{}

func (*ReadAction) isAction() {}

func (*ReadAction) String() string { return "read" }

// WriteAction emits text downstream.
type WriteAction struct {
	Content  string
	Finished bool

	// WordBoundary reports that Content begins mid-word.
	WordBoundary bool
}

func (*WriteAction) isAction() {}

func (a *WriteAction) String() string {
	return fmt.Sprintf("write(%q, finished=%v)", a.Content, a.Finished)
}

// Read returns a ReadAction.
func Read() Action {
	return &ReadAction{}
}

// Write returns a WriteAction with no word-boundary flag.
func Write(content string, finished bool) Action {
	return &WriteAction{Content: content, Finished: finished}
}
