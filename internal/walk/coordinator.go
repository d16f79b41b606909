// Package walk implements the per-session walk coordinator: a bounded
// queue that serializes client walk requests toward the upstream server
// and routes the eventual ack or cancel back to the client that sent the
// request it applies to.
package walk

import (
	"uoproxy/internal/wire"
)

// MaxQueueDepth is the walk queue's fixed capacity.
const MaxQueueDepth = 4

// stepDelta gives the one-tile (dx, dy) offset for each of the 8 facings
// a Walk packet's direction nibble can carry; the running bit (0x80) is
// masked off first since it does not change the destination tile.
var stepDelta = [8][2]int16{
	{0, -1},  // north
	{1, -1},  // north-east
	{1, 0},   // east
	{1, 1},   // south-east
	{0, 1},   // south
	{-1, 1},  // south-west
	{-1, 0},  // west
	{-1, -1}, // north-west
}

// Step applies one direction nibble to (x, y) and returns the predicted
// destination tile, per the client's own dead-reckoning model: the proxy
// has no more information than the client did when it sent the request.
func Step(x, y uint16, direction byte) (uint16, uint16) {
	d := stepDelta[direction&0x07]
	return uint16(int32(x) + int32(d[0])), uint16(int32(y) + int32(d[1]))
}

// ClientID identifies the downstream endpoint that issued a walk request.
// The coordinator never dereferences it; callers look the owner back up
// through whatever registry they maintain.
type ClientID any

type entry struct {
	owner   ClientID
	present bool // false once server_removed nulls the owner
	request wire.Walk
	x, y    uint16
	dir     byte
	seq     byte
}

// World is the subset of the world mirror the coordinator needs to apply
// acks and cancels to.
type World interface {
	Walked(x, y uint16, direction, notoriety byte)
	WalkCancel(x, y uint16, direction byte)
}

// Forwarder sends a wire packet upstream, or a wire packet down to one
// specific client.
type Forwarder interface {
	ForwardUpstream(buf []byte)
	ForwardToClient(client ClientID, buf []byte)
}

// Coordinator owns one session's walk queue and sequence counter.
type Coordinator struct {
	world     World
	forwarder Forwarder

	queue   [MaxQueueDepth]entry
	size    int
	seqNext byte

	// server is the owner recorded for the first queued request, per
	// §4.3 step 5. It is advisory: the real routing decision is made
	// per-entry via entry.owner, but keeping this mirrors the original
	// WalkState.server field for anyone inspecting coordinator state.
	server ClientID
}

// New constructs a coordinator. seqNext starts at 1: zero is reserved as
// "unsent" and is never assigned.
func New(world World, forwarder Forwarder) *Coordinator {
	return &Coordinator{world: world, forwarder: forwarder, seqNext: 1}
}

// Len reports the current queue depth.
func (c *Coordinator) Len() int { return c.size }

// Request handles an optimistic client walk. If the queue is full, the
// request is dropped silently (the client's local prediction will
// diverge, an acceptable loss per §4.3 step 1).
func (c *Coordinator) Request(client ClientID, pkt wire.Walk, x, y uint16, direction byte) {
	if c.size >= MaxQueueDepth {
		return
	}

	seq := c.nextSeq()
	c.queue[c.size] = entry{owner: client, present: true, request: pkt, x: x, y: y, dir: direction, seq: seq}
	if c.size == 0 {
		c.server = client
	}
	c.size++

	forward := pkt
	forward.Seq = seq
	c.forwarder.ForwardUpstream(wire.EncodeWalk(forward))
}

// nextSeq returns seqNext and advances it, skipping zero on wraparound.
func (c *Coordinator) nextSeq() byte {
	seq := c.seqNext
	c.seqNext++
	if c.seqNext == 0 {
		c.seqNext = 1
	}
	return seq
}

// halfWindowLE reports whether a is "not after" b using a half-window
// comparison modulo 256: the 128 values preceding b are treated as past,
// the other 128 as future.
func halfWindowLE(a, b byte) bool {
	return byte(b-a) < 128
}

// Ack pops every queue entry whose seq is not after the acknowledged seq,
// applies the last popped entry's walk to the world, and forwards the ack
// to that entry's owner only.
func (c *Coordinator) Ack(ack wire.WalkAck) {
	var last *entry
	popped := 0
	for popped < c.size && halfWindowLE(c.queue[popped].seq, ack.Seq) {
		popped++
	}
	if popped == 0 {
		return
	}
	last = &c.queue[popped-1]

	c.world.Walked(last.x, last.y, last.dir, ack.Notoriety)

	if last.present {
		c.forwarder.ForwardToClient(last.owner, wire.EncodeWalkAck(ack))
	}

	c.shift(popped)
}

// Cancel flushes the entire queue, applies the cancel's position to the
// world, and forwards the cancel to the head entry's owner only.
func (c *Coordinator) Cancel(cancel wire.WalkCancel) {
	var owner ClientID
	var present bool
	if c.size > 0 {
		owner, present = c.queue[0].owner, c.queue[0].present
	}

	c.world.WalkCancel(cancel.X, cancel.Y, cancel.Direction)
	c.size = 0

	if present {
		c.forwarder.ForwardToClient(owner, wire.EncodeWalkCancel(cancel))
	}
}

// ServerRemoved nulls the owner of any queued entry belonging to client,
// so that entry's eventual ack is still applied to the world but not
// forwarded to a now-gone endpoint.
func (c *Coordinator) ServerRemoved(client ClientID) {
	for i := 0; i < c.size; i++ {
		if c.queue[i].owner == client {
			c.queue[i].present = false
		}
	}
}

func (c *Coordinator) shift(n int) {
	remaining := c.size - n
	for i := 0; i < remaining; i++ {
		c.queue[i] = c.queue[i+n]
	}
	c.size = remaining
}
