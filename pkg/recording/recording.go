// Package recording reads Event Stream container headers and event data.
//
// An Event Stream file starts with the ASCII magic "Event Stream", three
// version bytes, and one type byte. DVS, ATIS, and color streams follow the
// type byte with little-endian sensor width and height, two bytes each. DVS
// event data is a stream of variable-length records: the lead byte 0xff
// adds 127 microseconds to the running timestamp, any other lead byte adds
// its high seven bits and is followed by four coordinate bytes.
package recording

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Type identifies the event encoding of a stream.
type Type uint8

const (
	Generic Type = 0
	DVS     Type = 1
	ATIS    Type = 2
	Color   Type = 4
)

func (t Type) String() string {
	switch t {
	case Generic:
		return "generic"
	case DVS:
		return "dvs"
	case ATIS:
		return "atis"
	case Color:
		return "color"
	}
	return fmt.Sprintf("type %d", uint8(t))
}

var magic = []byte("Event Stream")

var (
	// ErrNotEventStream reports a missing or malformed stream header.
	ErrNotEventStream = errors.New("not an Event Stream file")

	// ErrUnsupportedType reports a stream whose event encoding this
	// package cannot decode.
	ErrUnsupportedType = errors.New("unsupported event stream type")
)

// Header is the fixed preamble of an Event Stream file.
type Header struct {
	Version [3]uint8
	Type    Type

	// Width and Height are the sensor dimensions. They are present for
	// DVS, ATIS, and color streams and zero for generic ones.
	Width  uint16
	Height uint16
}

// ReadHeader consumes and parses the stream preamble.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, len(magic)+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("%w: truncated header", ErrNotEventStream)
	}
	if !bytes.Equal(buf[:len(magic)], magic) {
		return Header{}, fmt.Errorf("%w: bad magic", ErrNotEventStream)
	}
	var header Header
	copy(header.Version[:], buf[len(magic):len(magic)+3])
	header.Type = Type(buf[len(magic)+3])
	switch header.Type {
	case Generic:
		return header, nil
	case DVS, ATIS, Color:
		dims := make([]byte, 4)
		if _, err := io.ReadFull(r, dims); err != nil {
			return Header{}, fmt.Errorf("%w: truncated header", ErrNotEventStream)
		}
		header.Width = binary.LittleEndian.Uint16(dims[:2])
		header.Height = binary.LittleEndian.Uint16(dims[2:])
		return header, nil
	}
	return Header{}, fmt.Errorf("%w %d", ErrUnsupportedType, uint8(header.Type))
}

// TimeRange scans a DVS stream and returns the half-open window covering
// its events, in microseconds: the first event's timestamp to the last
// event's timestamp plus one. A stream with no events yields (0, 1).
//
// Streams of any other type return ErrUnsupportedType.
func TimeRange(path string) (int64, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	header, err := ReadHeader(reader)
	if err != nil {
		return 0, 0, err
	}
	if header.Type != DVS {
		return 0, 0, fmt.Errorf("%w %s", ErrUnsupportedType, header.Type)
	}
	return scanDVS(reader)
}

func scanDVS(reader *bufio.Reader) (int64, int64, error) {
	var (
		t         uint64
		first     uint64
		hasEvents bool
		coords    [4]byte
	)
	for {
		lead, err := reader.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read event data: %w", err)
		}
		if lead == 0xff {
			t += 127
			continue
		}
		t += uint64(lead >> 1)
		if _, err := io.ReadFull(reader, coords[:]); err != nil {
			return 0, 0, fmt.Errorf("truncated event data: %w", err)
		}
		if !hasEvents {
			first = t
			hasEvents = true
		}
	}
	if !hasEvents {
		return 0, 1, nil
	}
	return int64(first), int64(t) + 1, nil
}
