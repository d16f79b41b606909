// Command pcapreplay replays a captured UO client/server conversation
// from a pcap/pcapng file through internal/wire's framing and
// internal/world's mirror, for offline inspection of what a session
// would have reconstructed from that traffic. It is grounded on the
// teacher's replayPCAP: same gopacket/pcapgo capture-source handling
// and tcpassembly TCP-stream reassembly, repointed at UO's
// opcode-framed packets instead of the teacher's own 2-byte
// length-prefixed message format.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"

	"uoproxy/internal/wire"
	"uoproxy/internal/world"
)

func main() {
	var (
		pcapPath   string
		serverPort int
	)
	flag.StringVar(&pcapPath, "pcap", "", "path to a pcap or pcapng capture file")
	flag.IntVar(&serverPort, "server-port", 2593, "TCP port the upstream UO server listens on, used to tell request traffic from response traffic")
	flag.Parse()

	if pcapPath == "" {
		log.Fatal("pcapreplay: missing -pcap path")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := world.New(nil, nil)
	if err := replay(ctx, pcapPath, serverPort, w); err != nil && err != context.Canceled {
		log.Fatalf("pcapreplay: %v", err)
	}

	summarize(w)
}

func replay(ctx context.Context, path string, serverPort int, w *world.World) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var source *gopacket.PacketSource
	if ng, err := pcapgo.NewNgReader(f, pcapgo.NgReaderOptions{}); err == nil {
		source = gopacket.NewPacketSource(ng, ng.LinkType())
	} else {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		r, err := pcapgo.NewReader(f)
		if err != nil {
			return err
		}
		source = gopacket.NewPacketSource(r, r.LinkType())
	}

	factory := &replayStreamFactory{serverPort: serverPort, world: w}
	pool := tcpassembly.NewStreamPool(factory)
	assembler := tcpassembly.NewAssembler(pool)

	var prevTS time.Time
	for {
		select {
		case <-ctx.Done():
			assembler.FlushAll()
			return ctx.Err()
		default:
		}

		pkt, err := source.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		ts := pkt.Metadata().CaptureInfo.Timestamp
		if !prevTS.IsZero() {
			if d := ts.Sub(prevTS); d > 0 {
				time.Sleep(d)
			}
		}

		net := pkt.NetworkLayer()
		transport := pkt.TransportLayer()
		if net == nil || transport == nil {
			continue
		}
		if tcp, ok := transport.(*layers.TCP); ok {
			assembler.AssembleWithTimestamp(net.NetworkFlow(), tcp, ts)
		}
		prevTS = ts
	}
	assembler.FlushAll()
	return nil
}

type replayStreamFactory struct {
	serverPort int
	world      *world.World
}

// New is called once per direction of every TCP flow: gopacket hands
// reassembly a transport flow, whose destination port tells us whether
// this half carries client requests or server responses.
func (f *replayStreamFactory) New(net, transport gopacket.Flow) tcpassembly.Stream {
	fromClient := transport.Dst().String() == fmt.Sprint(f.serverPort)
	return &replayStream{world: f.world, fromClient: fromClient}
}

type replayStream struct {
	world      *world.World
	fromClient bool
	buf        bytes.Buffer
}

func (s *replayStream) Reassembled(rs []tcpassembly.Reassembly) {
	for _, r := range rs {
		if len(r.Bytes) > 0 {
			s.buf.Write(r.Bytes)
		}
	}
	for {
		b := s.buf.Bytes()
		total, ok, err := wire.FrameLength(b)
		if err != nil {
			// Traffic this proxy's catalog does not recognize at all;
			// there is no length to skip past, so give up on this stream.
			return
		}
		if !ok {
			return
		}
		msg := append([]byte(nil), b[:total]...)
		s.dispatch(msg)
		s.buf.Next(total)
	}
}

func (s *replayStream) ReassemblyComplete() {}

// dispatch mirrors applyUpstreamPacket's server->client cases; client
// requests are only logged, since this tool reconstructs world state
// as a session would, not the wire-level request stream a real
// upstream connection would see.
func (s *replayStream) dispatch(buf []byte) {
	if s.fromClient {
		log.Printf("pcapreplay: client request opcode=0x%02x len=%d", buf[0], len(buf))
		return
	}

	op := wire.Opcode(buf[0])
	w := s.world
	switch op {
	case wire.OpWorldItem:
		if p, err := wire.ParseWorldItem(buf); err == nil {
			w.UpsertWorldItem(p)
		}
	case wire.OpWorldItem7:
		if p, err := wire.ParseWorldItem7(buf); err == nil {
			w.UpsertWorldItem7(p)
		}
	case wire.OpEquip:
		if p, err := wire.ParseEquip(buf); err == nil {
			w.UpsertEquip(p)
		}
	case wire.OpContainerOpen:
		if p, err := wire.ParseContainerOpen(buf); err == nil {
			w.OpenContainer(p)
		}
	case wire.OpContainerOpen7:
		if p, err := wire.ParseContainerOpen7(buf); err == nil {
			w.OpenContainer7(p)
		}
	case wire.OpContainerUpdate:
		if p, err := wire.ParseContainerUpdate(buf); err == nil {
			w.UpsertContainerUpdate(p)
		}
	case wire.OpContainerContent:
		if p, err := wire.ParseContainerContent(buf); err == nil && len(p.Items) > 0 {
			w.ReplaceContainerContent(p.Items[0].Parent, p.Items)
		}
	case wire.OpMobileIncoming:
		if p, err := wire.ParseMobileIncoming(buf); err == nil {
			w.UpsertMobileIncoming(p)
		}
	case wire.OpMobileStatus:
		if p, err := wire.ParseMobileStatus(buf); err == nil {
			w.UpsertMobileStatus(p)
		}
	case wire.OpMobileUpdate:
		if p, err := wire.ParseMobileUpdate(buf); err == nil {
			w.UpdateMobileUpdate(p)
		}
	case wire.OpMobileMoving:
		if p, err := wire.ParseMobileMoving(buf); err == nil {
			w.UpdateMobileMoving(p)
		}
	case wire.OpZoneChange:
		if p, err := wire.ParseZoneChange(buf); err == nil {
			w.ZoneChange(p)
		}
	case wire.OpStart:
		if p, err := wire.ParseStart(buf); err == nil {
			w.SetStart(p)
		}
	case wire.OpMapChange:
		w.SetMapChange(buf)
	case wire.OpMapPatches:
		w.SetMapPatches(buf)
	case wire.OpSeason:
		w.SetSeason(buf)
	case wire.OpWarMode:
		w.SetWarMode(buf)
	case wire.OpTarget:
		w.SetTarget(buf)
	case wire.OpLightLevelGlobal:
		w.SetGlobalLight(buf)
	case wire.OpLightLevelPersonal:
		w.SetPersonalLight(buf)
	default:
		log.Printf("pcapreplay: server packet opcode=0x%02x len=%d (mirror-transparent)", buf[0], len(buf))
	}
}

func summarize(w *world.World) {
	fmt.Printf("items: %d\n", len(w.Items()))
	fmt.Printf("mobiles: %d\n", len(w.Mobiles()))
	if serial, ok := w.PlayerSerial(); ok {
		fmt.Printf("player serial: %#x\n", uint32(serial))
	}
	if w.Ambient.HasMobileUpdate {
		fmt.Printf("player position: (%d, %d)\n", w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y)
	}
}
