package discovery

import (
	"github.com/looplab/fsm"
)

type State string

const (
	StateCreated  State = "created"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

const (
	eventStart  = "start"
	eventOpen   = "open"
	eventStop   = "stop"
	eventFinish = "finish"
)

// newStateMachine builds the session lifecycle:
//
//	created -> starting -> running -> stopping -> stopped
//
// starting and running may also go straight to stopped on failure.
func newStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(StateCreated),
		fsm.Events{
			{
				Name: eventStart,
				Src:  []string{string(StateCreated)},
				Dst:  string(StateStarting),
			},
			{
				Name: eventOpen,
				Src:  []string{string(StateStarting)},
				Dst:  string(StateRunning),
			},
			{
				Name: eventStop,
				Src: []string{
					string(StateStarting),
					string(StateRunning),
				},
				Dst: string(StateStopping),
			},
			{
				Name: eventFinish,
				Src: []string{
					string(StateStarting),
					string(StateRunning),
					string(StateStopping),
				},
				Dst: string(StateStopped),
			},
		},
		fsm.Callbacks{},
	)
}
