package netsession

import (
	"net"
	"testing"
	"time"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/rtpmidi"
	"github.com/laenzlinger/go-midi-rtp/seqenv"
	"github.com/laenzlinger/go-midi-rtp/sip"
	"github.com/stretchr/testify/assert"
)

func rtpmidiMessageWithControlChange(peerSSRC uint32) rtpmidi.Message {
	return rtpmidi.Message{
		SSRC:      peerSSRC,
		Timestamp: time.Now(),
		Commands: []rtpmidi.Command{
			{Ev: ev.Ev{Cmd: ev.CTL, Ch: 0, V0: 7, V1: 100}},
		},
	}
}

type fakeAddr struct{ s string }

func (a fakeAddr) Network() string { return "udp" }
func (a fakeAddr) String() string  { return a.s }

// fakeConn is a net.PacketConn that records writes instead of touching
// a real socket, so handleControl/handleData can be exercised without
// binding ports.
type fakeConn struct {
	net.PacketConn
	written [][]byte
}

func (f *fakeConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	cp := append([]byte(nil), b...)
	f.written = append(f.written, cp)
	return len(b), nil
}

func newTestSession() (*Session, *fakeConn, *fakeConn) {
	control := &fakeConn{}
	data := &fakeConn{}
	s := &Session{
		cfg:         Config{BonjourName: "test", Port: 7000},
		ssrc:        0x1111,
		start:       time.Now(),
		env:         seqenv.New(nil),
		controlConn: control,
		dataConn:    data,
	}
	return s, control, data
}

func TestAcceptInvitationRepliesAndTracksConnection(t *testing.T) {
	s, control, _ := newTestSession()
	addr := fakeAddr{"10.0.0.2:5004"}

	s.handleControl(sip.ControlMessage{Cmd: sip.Invitation, SSRC: 0x2222, Token: 99, Name: "peer"}, addr)

	_, found := s.connections.Load(uint32(0x2222))
	assert.True(t, found)
	assert.Len(t, control.written, 1)

	reply, err := sip.Decode(control.written[0])
	assert.NoError(t, err)
	assert.Equal(t, sip.InvitationAccepted, reply.Cmd)
	assert.Equal(t, s.ssrc, reply.SSRC)
}

func TestEndControlMessageRemovesConnection(t *testing.T) {
	s, _, _ := newTestSession()
	addr := fakeAddr{"10.0.0.2:5004"}
	s.handleControl(sip.ControlMessage{Cmd: sip.Invitation, SSRC: 0x2222, Token: 1}, addr)

	s.handleControl(sip.ControlMessage{Cmd: sip.End, SSRC: 0x2222}, addr)

	_, found := s.connections.Load(uint32(0x2222))
	assert.False(t, found)
}

func TestHandleDataPacksAndInvokesHandler(t *testing.T) {
	s, _, _ := newTestSession()
	addr := fakeAddr{"10.0.0.2:5004"}
	s.handleControl(sip.ControlMessage{Cmd: sip.Invitation, SSRC: 0x2222, Token: 1}, addr)

	var got []ev.Ev
	s.Handle(func(peerSSRC uint32, e ev.Ev) {
		assert.Equal(t, uint32(0x2222), peerSSRC)
		got = append(got, e)
	})

	s.handleData(rtpmidiMessageWithControlChange(0x2222), addr)

	assert.Len(t, got, 1)
	assert.Equal(t, ev.XCTL, got[0].Cmd)
}

func TestHandleDataFromUnknownPeerIsIgnored(t *testing.T) {
	s, _, _ := newTestSession()
	addr := fakeAddr{"10.0.0.2:5004"}
	called := false
	s.Handle(func(uint32, ev.Ev) { called = true })

	s.handleData(rtpmidiMessageWithControlChange(0x9999), addr)

	assert.False(t, called)
}

func TestReplySyncAdvancesCountAndStampsTimestamp(t *testing.T) {
	s, _, data := newTestSession()
	addr := fakeAddr{"10.0.0.2:5004"}

	s.handleControl(sip.ControlMessage{Cmd: sip.Sync, SSRC: 1, SyncCount: 0}, addr)

	assert.Len(t, data.written, 1)
	reply, err := sip.Decode(data.written[0])
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), reply.SyncCount)
}
