// SPDX-License-Identifier: MIT

package heater

// Command is what the relay should do after a refresh.
type Command uint

const (
	Off Command = iota
	On
	NoAction
)

func (c Command) String() string {
	switch c {
	case Off:
		return "off"
	case On:
		return "on"
	case NoAction:
		return "no_action"
	default:
		return "unknown"
	}
}
