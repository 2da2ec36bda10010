package simul

// Agent is a streaming policy over a States it owns.
//
// Policy is called once per step by the Stage driving the agent. It may
// rewrite states.Source to consume input; it must not touch Target, which is
// maintained by the Stage.
type Agent interface {
	Policy(states *States) (Action, error)
}

// PolicyFunc adapts a function to the Agent interface.
type PolicyFunc func(states *States) (Action, error)

// Policy implements Agent.
func (f PolicyFunc) Policy(states *States) (Action, error) {
	return f(states)
}
