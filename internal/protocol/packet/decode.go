package packet

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/passportctl/internal/protocol/frame"
)

const timeLayout = "15:04:05"

// Record is one decoded passport packet ready for logging.
type Record struct {
	Header frame.Header
	Kind   Kind
	Time   time.Time
	// Line is the durable log line, "<HH:MM:SS> <EVENT> <details>".
	Line string
}

// Keepalive reports whether the record came from an "I am alive" packet.
func (r Record) Keepalive() bool {
	return r.Kind == KindKeepalive
}

// Decoder maps header/payload pairs to log records. It holds no mutable
// state and is safe for concurrent use.
type Decoder struct {
	signals SignalTable
	loc     *time.Location
}

type Option func(*Decoder)

// WithLocation renders header timestamps in loc instead of local time.
func WithLocation(loc *time.Location) Option {
	return func(d *Decoder) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func NewDecoder(signals SignalTable, opts ...Option) *Decoder {
	if signals.names == nil {
		signals = DefaultSignals()
	}
	d := &Decoder{signals: signals, loc: time.Local}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Signals() SignalTable {
	return d.signals
}

func (d *Decoder) DecodeFrame(f frame.Frame) Record {
	return d.Decode(f.Header, f.Payload)
}

// Decode never fails. Fields missing from a short payload decode as zero or
// empty text.
func (d *Decoder) Decode(h frame.Header, payload []byte) Record {
	ts := time.Unix(int64(h.Timestamp), 0).In(d.loc)
	kind := Kind(h.Type)
	return Record{
		Header: h,
		Kind:   kind,
		Time:   ts,
		Line:   ts.Format(timeLayout) + " " + d.details(kind, payload),
	}
}

func (d *Decoder) details(kind Kind, p []byte) string {
	switch kind {
	case KindKeepalive:
		return "KEEPALIVE"
	case KindOpen, KindClose, KindCommentary, KindEvent:
		return joinNonEmpty(kind.String(), decodeText(tail(p, 2)))
	case KindDataDescription, KindDataFilename:
		return joinNonEmpty(kind.String(), strconv.Itoa(int(u16(p, 2))), decodeText(tail(p, 6)))
	case KindDataType:
		id, dataKind, step, zip := u16(p, 2), u16(p, 4), u16(p, 6), u16(p, 8)
		kindStr := fmt.Sprintf("INT(%d)", dataKind)
		if dataKind == DataKindText {
			kindStr = fmt.Sprintf("TEXT(%d)", DataKindText)
		}
		return fmt.Sprintf("DATATYPE %d %s step=%d zip=%d", id, kindStr, step, zip)
	case KindData:
		return d.dataDetails(p)
	case KindDataOverflow:
		return fmt.Sprintf("DATAOVERFLOW %d", u16(p, 2))
	case KindDataBegin, KindDataEnd:
		return "--- " + kind.String() + " ---"
	case KindDataSuspend, KindDataResume, KindAbort:
		return kind.String()
	default:
		return fmt.Sprintf("UNKNOWN TYPE %d", uint16(kind))
	}
}

// dataDetails keeps the numeric fallback for DATA values only. Trailing NUL
// padding is dropped before the text check. A value that is not clean text is
// dumped as little-endian uint32 words, or as hex when it is shorter than one
// word. A six-byte payload carries no value and logs the signal name alone.
func (d *Decoder) dataDetails(p []byte) string {
	id := u16(p, 2)
	head := fmt.Sprintf("DATA %d %s", id, d.signals.Name(id))
	if len(p) <= 6 {
		return head
	}
	raw := p[6:]
	if text := bytes.TrimRight(raw, "\x00"); len(text) > 0 {
		if value, err := decodeTextStrict(text); err == nil && value != "" {
			return head + " = " + value
		}
	}
	if words := uint32Words(raw); words != "" {
		return head + " = " + words
	}
	return head + " = 0x" + hex.EncodeToString(raw)
}

func uint32Words(b []byte) string {
	words := make([]string, 0, len(b)/4)
	for off := 0; off+4 <= len(b); off += 4 {
		words = append(words, strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b[off:off+4])), 10))
	}
	return strings.Join(words, " ")
}

func u16(p []byte, off int) uint16 {
	if len(p) < off+2 {
		return 0
	}
	return binary.LittleEndian.Uint16(p[off : off+2])
}

func tail(p []byte, off int) []byte {
	if len(p) <= off {
		return nil
	}
	return p[off:]
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, " ")
}
