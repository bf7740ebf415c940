// Package protocol frames sync messages as TLV records: a one-letter
// type, a length, a body. The record format follows ToyTLV
// (https://github.com/learn-decentralized-systems/toytlv).
//
// Three header forms, picked by body size and the case of the type
// byte the writer passes in:
//
//	'0'+len            tiny, bodies up to 9 bytes, the type is dropped
//	lowercase, 1 byte  short, bodies up to 255 bytes
//	uppercase, 4 bytes little-endian, bodies up to 2GB
//
// An uppercase type forces one of the explicit forms, a lowercase one
// allows the tiny form. Readers always see the uppercase type, or '0'
// where the tiny form erased it.
package protocol

import (
	"encoding/binary"
	"errors"
)

const caseBit byte = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete record")
	ErrBadRecord  = errors.New("bad record")
)

// probe reads one header. lit is 0 when data is too short to tell and
// '-' when the first byte is no header at all.
func probe(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	switch b := data[0]; {
	case b >= '0' && b <= '9':
		return '0', 1, int(b - '0')
	case b >= 'a' && b <= 'z':
		if len(data) < 2 {
			return 0, 0, 0
		}
		return b - caseBit, 2, int(data[1])
	case b >= 'A' && b <= 'Z':
		if len(data) < 5 {
			return 0, 0, 0
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		if n > 0x7fffffff {
			return '-', 0, 0
		}
		return b, 5, int(n)
	default:
		return '-', 0, 0
	}
}

func totalLen(body [][]byte) (n int) {
	for _, b := range body {
		n += len(b)
	}
	return
}

func appendHeader(into []byte, lit byte, bodylen int) []byte {
	up := lit &^ caseBit
	if up < 'A' || up > 'Z' {
		panic("record types are A..Z")
	}
	switch {
	case bodylen < 10 && lit&caseBit != 0:
		return append(into, byte('0'+bodylen))
	case bodylen <= 0xff:
		return append(into, up|caseBit, byte(bodylen))
	case bodylen > 0x7fffffff:
		panic("record body over 2GB")
	default:
		into = append(into, up)
		return binary.LittleEndian.AppendUint32(into, uint32(bodylen))
	}
}

// Append frames body as one record of type lit on the end of into.
func Append(into []byte, lit byte, body ...[]byte) []byte {
	into = appendHeader(into, lit, totalLen(body))
	for _, b := range body {
		into = append(into, b...)
	}
	return into
}

// Record frames body as a single record of type lit.
func Record(lit byte, body ...[]byte) []byte {
	return Append(make([]byte, 0, totalLen(body)+5), lit, body...)
}

// Join glues records into one buffer.
func Join(recs ...[]byte) (buf []byte) {
	for _, r := range recs {
		buf = append(buf, r...)
	}
	return
}

// Take unframes a record of type lit off the front of data. A record
// in the tiny form matches any type.
func Take(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := probe(data)
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit && flit != '0' {
		return nil, data, ErrBadRecord
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

// TakeAny unframes whatever record comes first.
func TakeAny(data []byte) (lit byte, body, rest []byte, err error) {
	flit, hdrlen, bodylen := probe(data)
	switch {
	case flit == '-':
		return 0, nil, data, ErrBadRecord
	case flit == 0 || hdrlen+bodylen > len(data):
		return 0, nil, data, ErrIncomplete
	}
	return flit, data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}
