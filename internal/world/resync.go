package world

import (
	"context"

	"uoproxy/logging"
)

const (
	// EventResyncAdvisory is published once the loss ratio crosses the
	// resync threshold.
	EventResyncAdvisory logging.EventType = "world.resync_advisory"

	lossThresholdPerTenThousand = 25
)

// ResyncAdvisory summarizes why the mirror believes it may have drifted
// from the real server's state.
type ResyncAdvisory struct {
	TotalOps  uint64
	LostOps   uint64
	LastCause string
	LastEntry uint32
}

// ResyncPolicy counts mirror operations lost to capacity drops or
// malformed packets against the total and raises an advisory once the
// loss ratio crosses a fixed threshold. It never forces a reconnect
// itself; it only surfaces the signal for a human, or the command
// channel's reconnect verb, to act on.
type ResyncPolicy struct {
	total   uint64
	lost    uint64
	pending bool
	cause   string
	entry   uint32
}

func NewResyncPolicy() *ResyncPolicy {
	return &ResyncPolicy{}
}

// NoteOp should be called for every successful mirror mutation, so the
// loss ratio has an accurate denominator.
func (p *ResyncPolicy) NoteOp() {
	p.total++
}

// NoteLoss records a dropped insert or malformed-packet skip and, once
// the ratio crosses the threshold, publishes a resync advisory.
func (p *ResyncPolicy) NoteLoss(ctx context.Context, pub logging.Publisher, cause string, entry Serial) {
	p.total++
	p.lost++
	p.cause = cause
	p.entry = uint32(entry)
	if p.evaluate() {
		p.pending = true
		if pub != nil {
			pub.Publish(ctx, logging.Event{
				Type:     EventResyncAdvisory,
				Severity: logging.SeverityWarn,
				Category: "world",
				Payload: ResyncAdvisory{
					TotalOps:  p.total,
					LostOps:   p.lost,
					LastCause: p.cause,
					LastEntry: p.entry,
				},
			})
		}
	}
}

func (p *ResyncPolicy) evaluate() bool {
	if p.total == 0 {
		return false
	}
	return p.lost*10000 >= p.total*lossThresholdPerTenThousand
}

// Consume reports and resets the current advisory, if one is pending.
func (p *ResyncPolicy) Consume() (ResyncAdvisory, bool) {
	if !p.pending {
		return ResyncAdvisory{}, false
	}
	advisory := ResyncAdvisory{TotalOps: p.total, LostOps: p.lost, LastCause: p.cause, LastEntry: p.entry}
	p.pending = false
	p.lost = 0
	p.total = 0
	return advisory, true
}
