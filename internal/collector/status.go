package collector

import (
	"time"

	"github.com/danmuck/passportctl/internal/protocol/packet"
)

// Status is a point-in-time view of the supervisor for the status API.
type Status struct {
	Address          string     `json:"address"`
	Connected        bool       `json:"connected"`
	SessionID        string     `json:"session_id,omitempty"`
	ServerVersion    int32      `json:"server_version,omitempty"`
	SessionStarted   *time.Time `json:"session_started,omitempty"`
	LogFile          string     `json:"log_file,omitempty"`
	Packets          uint64     `json:"packets"`
	Keepalives       uint64     `json:"keepalives"`
	KeepaliveCounter uint8      `json:"keepalive_counter"`
	LastPacket       string     `json:"last_packet,omitempty"`
	LastPacketAt     *time.Time `json:"last_packet_at,omitempty"`
	Sessions         uint64     `json:"sessions"`
	ConnectFailures  uint64     `json:"connect_failures"`
	LastError        string     `json:"last_error,omitempty"`
	LastEndReason    string     `json:"last_end_reason,omitempty"`
	FreeDiskMB       float64    `json:"free_disk_mb"`
}

func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Connected reports whether a handshaken session is currently streaming.
func (s *Supervisor) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Connected
}

func (s *Supervisor) Signals() packet.SignalTable {
	return s.decoder.Signals()
}

func (s *Supervisor) beginSession(st *sessionState, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = true
	s.status.SessionID = st.id
	s.status.ServerVersion = version
	started := st.started
	s.status.SessionStarted = &started
	s.status.LogFile = st.writer.Path()
	s.status.Packets = 0
	s.status.Keepalives = 0
	s.status.KeepaliveCounter = 0
	s.status.Sessions++
}

func (s *Supervisor) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = false
}

func (s *Supervisor) recordEndReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastEndReason = reason
}

func (s *Supervisor) recordPacket(rec packet.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Packets++
	s.status.LastPacket = rec.Line
	now := s.now()
	s.status.LastPacketAt = &now
}

func (s *Supervisor) recordKeepalive(value uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Keepalives++
	s.status.KeepaliveCounter = value
	now := s.now()
	s.status.LastPacketAt = &now
}

func (s *Supervisor) setFreeDisk(mb float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.FreeDiskMB = mb
}
