// Package netsession ties the wire packages together into a running
// Apple MIDI Network Driver session: it advertises itself over mDNS,
// accepts invitations on a control port, exchanges RTP-MIDI packets
// with each accepted peer on the following port, and runs every
// received/sent wire event through conv.Pack/Unpack so callers only
// ever see canonical events. MIDINetworkStream, a per-peer connection
// type, was not present in the retrieval pack, so its handshake and
// send logic below is written from scratch against the Apple MIDI
// protocol comments carried in rtpmidi/sip.
package netsession

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/laenzlinger/go-midi-rtp/conv"
	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/rtpmidi"
	"github.com/laenzlinger/go-midi-rtp/seqenv"
	"github.com/laenzlinger/go-midi-rtp/sip"
)

// Config carries the settings a Session needs at startup.
type Config struct {
	// BonjourName is advertised over mDNS as the service instance name.
	BonjourName string
	// Port is the control port; Port+1 is the RTP-MIDI data port, per
	// the Apple MIDI Network Driver convention.
	Port uint16
}

// Handler receives a canonical event decoded from a peer, identified
// by its session SSRC.
type Handler func(peerSSRC uint32, e ev.Ev)

// Session offers or accepts a single Apple MIDI Network Driver
// endpoint: one mDNS advertisement, one control listener, one data
// listener, and a set of accepted peer connections.
type Session struct {
	cfg            Config
	ssrc           uint32
	sequenceNumber uint16
	start          time.Time
	env            *seqenv.Environment
	handler        Handler

	connections sync.Map // peer SSRC -> *connection

	controlConn net.PacketConn
	dataConn    net.PacketConn
}

type connState int

const (
	stateInitial connState = iota
	stateEstablished
)

// connection tracks one peer's handshake state, network addresses, and
// the packer/unpacker state conv.Pack/Unpack needs to stay correct
// across the life of the stream: each peer gets its own Conv so its
// controller/RPN context never leaks into another peer's.
type connection struct {
	mu         sync.Mutex
	state      connState
	peerName   string
	remoteSSRC uint32
	controlTo  net.Addr
	dataTo     net.Addr
	pack       *conv.Conv
	unpack     *conv.Conv
}

// Start opens the control and data listeners and begins accepting
// connections. The caller owns the returned Session's lifetime and
// must call End to release its sockets.
func Start(env *seqenv.Environment, cfg Config) (*Session, error) {
	if env == nil {
		env = seqenv.New(nil)
	}
	s := &Session{
		cfg:            cfg,
		ssrc:           rand.Uint32(),
		sequenceNumber: uint16(rand.Uint32()),
		start:          time.Now(),
		env:            env,
	}

	var err error
	s.controlConn, err = net.ListenPacket("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("netsession: control listen: %w", err)
	}
	s.dataConn, err = net.ListenPacket("udp", fmt.Sprintf(":%d", cfg.Port+1))
	if err != nil {
		s.controlConn.Close()
		return nil, fmt.Errorf("netsession: data listen: %w", err)
	}

	go s.controlLoop()
	go s.dataLoop()

	return s, nil
}

// Advertise registers the session over mDNS as an _apple-midi._udp
// service and returns the zeroconf server; callers shut it down when
// the session ends.
func Advertise(cfg Config) (*zeroconf.Server, error) {
	return zeroconf.Register(cfg.BonjourName, "_apple-midi._udp", "local.", int(cfg.Port),
		[]string{"txtv=0", "lo=1", "la=2"}, nil)
}

// Handle installs the callback invoked for every canonical event
// received from any peer.
func (s *Session) Handle(h Handler) {
	s.handler = h
}

// End closes both sockets; in-flight handlers may still run briefly
// after End returns.
func (s *Session) End() {
	if s.controlConn != nil {
		s.controlConn.Close()
	}
	if s.dataConn != nil {
		s.dataConn.Close()
	}
}

// Send unpacks the canonical event e into wire events and transmits
// them to every established peer.
func (s *Session) Send(e ev.Ev) error {
	var firstErr error
	s.connections.Range(func(_, v any) bool {
		c := v.(*connection)
		c.mu.Lock()
		established := c.state == stateEstablished
		dataTo := c.dataTo
		wireEvs := c.unpack.Unpack(e, nil)
		c.mu.Unlock()
		if !established {
			return true
		}
		if err := s.sendEvents(dataTo, wireEvs); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

func (s *Session) sendEvents(to net.Addr, events []ev.Ev) error {
	s.sequenceNumber++
	commands := make([]rtpmidi.Command, len(events))
	for i, e := range events {
		commands[i] = rtpmidi.Command{Ev: e}
	}
	msg := rtpmidi.Message{
		SequenceNumber: s.sequenceNumber,
		SSRC:           s.ssrc,
		Timestamp:      time.Now(),
		Commands:       commands,
	}
	buf, err := rtpmidi.Encode(msg, s.start)
	if err != nil {
		return err
	}
	_, err = s.dataConn.WriteTo(buf, to)
	return err
}

func (s *Session) controlLoop() {
	buffer := make([]byte, 1024)
	for {
		n, addr, err := s.controlConn.ReadFrom(buffer)
		if err != nil {
			return
		}
		msg, err := sip.Decode(buffer[:n])
		if err != nil {
			s.env.Sink.Logf("netsession: control decode: %v", err)
			continue
		}
		s.handleControl(msg, addr)
	}
}

func (s *Session) dataLoop() {
	buffer := make([]byte, 1500)
	for {
		n, addr, err := s.dataConn.ReadFrom(buffer)
		if err != nil {
			return
		}
		msg, err := rtpmidi.Decode(buffer[:n], 0, time.Now())
		if err != nil {
			s.env.Sink.Logf("netsession: rtp decode: %v", err)
			continue
		}
		s.handleData(msg, addr)
	}
}

func (s *Session) handleControl(msg sip.ControlMessage, addr net.Addr) {
	switch msg.Cmd {
	case sip.Invitation:
		c := s.acceptInvitation(msg, addr)
		reply := sip.EncodeInvitation(sip.InvitationAccepted, msg.Token, s.ssrc, s.cfg.BonjourName)
		s.controlConn.WriteTo(reply, addr)
		c.mu.Lock()
		c.controlTo = addr
		c.mu.Unlock()
	case sip.End:
		s.connections.Delete(msg.SSRC)
		s.env.Sink.Logf("netsession: peer %#x ended the session", msg.SSRC)
	case sip.Sync:
		s.replySync(msg, addr)
	default:
		s.env.Sink.Logf("netsession: ignoring control message %v", msg)
	}
}

func (s *Session) acceptInvitation(msg sip.ControlMessage, addr net.Addr) *connection {
	v, _ := s.connections.LoadOrStore(msg.SSRC, &connection{
		state:      stateEstablished,
		peerName:   msg.Name,
		remoteSSRC: msg.SSRC,
		controlTo:  addr,
		pack:       conv.New(s.env.Fine),
		unpack:     conv.New(s.env.Fine),
	})
	return v.(*connection)
}

func (s *Session) replySync(msg sip.ControlMessage, addr net.Addr) {
	if msg.SyncCount >= 2 {
		return
	}
	timestamps := msg.SyncTimestamps
	timestamps[msg.SyncCount+1] = uint64(time.Now().UnixNano())
	reply := sip.EncodeSync(s.ssrc, msg.SyncCount+1, timestamps)
	s.dataConn.WriteTo(reply, addr)
}

func (s *Session) handleData(msg rtpmidi.Message, addr net.Addr) {
	v, found := s.connections.Load(msg.SSRC)
	if !found {
		s.env.Sink.Logf("netsession: data from unknown peer %#x", msg.SSRC)
		return
	}
	c := v.(*connection)
	c.mu.Lock()
	c.dataTo = addr
	c.mu.Unlock()

	out := make([]ev.Ev, 0, len(msg.Commands))
	for _, cmd := range msg.Commands {
		c.mu.Lock()
		packed, ok := c.pack.Pack(cmd.Ev)
		c.mu.Unlock()
		if ok {
			out = append(out, packed)
		}
	}
	if s.handler == nil {
		return
	}
	for _, e := range out {
		s.handler(msg.SSRC, e)
	}
}
