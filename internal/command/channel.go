// Package command recognizes "%"-prefixed downstream chat as proxy
// control commands, grounded directly on the teacher's console
// message handling: a small registered-verb table, each verb a
// function taking the issuing session and its arguments.
package command

import (
	"fmt"
	"strings"
)

// Prefix marks a speak message as a command rather than chat to
// forward upstream (§4.7).
const Prefix = "%"

// Handler executes one verb against the issuing session and returns
// the console-speak reply text.
type Handler func(s Session, args []string) string

// Session is the narrow surface a command handler needs; satisfied
// by *session.Session without importing it here, so internal/command
// has no dependency on internal/session.
type Session interface {
	SpeakConsole(text string)
	SetAutoreconnect(bool)
	Autoreconnect() bool
}

// Channel is the registered-verb table.
type Channel struct {
	verbs map[string]Handler
	who   func() []string
}

// New constructs a Channel with the built-in verbs registered: %say,
// %who, %reconnect, %auto — the minimum vocabulary spec.md §4.7
// requires a command handler to expose.
func New(who func() []string, reconnect func(s Session)) *Channel {
	c := &Channel{verbs: make(map[string]Handler), who: who}
	c.Register("say", func(s Session, args []string) string {
		return strings.Join(args, " ")
	})
	c.Register("who", func(s Session, args []string) string {
		if c.who == nil {
			return "no sessions"
		}
		names := c.who()
		if len(names) == 0 {
			return "no sessions"
		}
		return "sessions: " + strings.Join(names, ", ")
	})
	c.Register("reconnect", func(s Session, args []string) string {
		if reconnect == nil {
			return "reconnect not available"
		}
		reconnect(s)
		return "reconnect requested"
	})
	c.Register("auto", func(s Session, args []string) string {
		if len(args) == 0 {
			if s.Autoreconnect() {
				return "autoreconnect is on"
			}
			return "autoreconnect is off"
		}
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			s.SetAutoreconnect(true)
			return "autoreconnect enabled"
		case "off", "false", "0":
			s.SetAutoreconnect(false)
			return "autoreconnect disabled"
		default:
			return fmt.Sprintf("usage: %sauto on|off", Prefix)
		}
	})
	return c
}

// Register adds or overrides a verb. verb is matched without its
// leading prefix, e.g. "say" for "%say".
func (c *Channel) Register(verb string, h Handler) {
	c.verbs[strings.ToLower(verb)] = h
}

// IsCommand reports whether a speak message is a command rather than
// chat to forward upstream.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, Prefix)
}

// Dispatch parses a "%verb arg1 arg2" message and runs the matching
// handler, returning the console-speak reply and whether the message
// was recognized at all (an unrecognized command still consumes the
// message — it is never forwarded upstream per §4.7).
func (c *Channel) Dispatch(s Session, text string) (reply string, recognized bool) {
	if !IsCommand(text) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, Prefix))
	if len(fields) == 0 {
		return "", true
	}
	verb := strings.ToLower(fields[0])
	handler, ok := c.verbs[verb]
	if !ok {
		return fmt.Sprintf("unknown command %q", verb), true
	}
	return handler(s, fields[1:]), true
}
