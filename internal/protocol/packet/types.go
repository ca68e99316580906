package packet

import (
	"strconv"

	"github.com/danmuck/passportctl/internal/protocol/frame"
)

// Kind is the passport packet type tag carried in the header.
type Kind uint16

const (
	KindOpen            Kind = 0
	KindClose           Kind = 1
	KindDataDescription Kind = 2
	KindDataType        Kind = 3
	KindData            Kind = 4
	KindDataOverflow    Kind = 5
	KindDataBegin       Kind = 6
	KindDataEnd         Kind = 7
	KindDataSuspend     Kind = 8
	KindDataResume      Kind = 9
	KindDataFilename    Kind = 10
	KindCommentary      Kind = 11
	KindAbort           Kind = 12
	KindEvent           Kind = 13
	KindKeepalive       Kind = Kind(frame.TypeKeepalive)
)

// DataKindText is the DATATYPE kind code for textual values.
const DataKindText = 7

var kindNames = map[Kind]string{
	KindOpen:            "OPEN",
	KindClose:           "CLOSE",
	KindDataDescription: "DATADESCRIPTION",
	KindDataType:        "DATATYPE",
	KindData:            "DATA",
	KindDataOverflow:    "DATAOVERFLOW",
	KindDataBegin:       "DATABEGIN",
	KindDataEnd:         "DATAEND",
	KindDataSuspend:     "DATASUSPEND",
	KindDataResume:      "DATARESUME",
	KindDataFilename:    "DATAFILENAME",
	KindCommentary:      "COMMENTARY",
	KindAbort:           "ABORT",
	KindEvent:           "EVENT",
	KindKeepalive:       "KEEPALIVE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
}

// Known reports whether k is one of the fifteen defined packet kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}
