package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// protocolVersion is the binary WebSocket protocol version used by the
// synthesis endpoint.
const protocolVersion = 0b0001

type messageType uint8

const (
	fullClientRequest       messageType = 0b0001
	fullServerResponse      messageType = 0b1001
	audioOnlyServerResponse messageType = 0b1011
	errorMessage            messageType = 0b1111
)

type messageFlags uint8

const (
	noSequenceNumber       messageFlags = 0b0000
	positiveSequenceNumber messageFlags = 0b0001
	negativeSequenceNumber messageFlags = 0b0011
)

type serializationMethod uint8

const (
	noSerialization   serializationMethod = 0b0000
	jsonSerialization serializationMethod = 0b0001
)

type compressionMethod uint8

const (
	noCompression   compressionMethod = 0b0000
	gzipCompression compressionMethod = 0b0001
)

// header is the fixed 4-byte message header.
type header struct {
	version       uint8
	headerSize    uint8
	msgType       messageType
	flags         messageFlags
	serialization serializationMethod
	compression   compressionMethod
}

func (h header) encode() []byte {
	return []byte{
		(h.version << 4) | h.headerSize,
		(uint8(h.msgType) << 4) | uint8(h.flags),
		(uint8(h.serialization) << 4) | uint8(h.compression),
		0x00,
	}
}

func decodeHeader(data []byte) (header, error) {
	if len(data) < 4 {
		return header{}, fmt.Errorf("header too short: %d bytes", len(data))
	}
	h := header{
		version:       (data[0] >> 4) & 0x0F,
		headerSize:    data[0] & 0x0F,
		msgType:       messageType((data[1] >> 4) & 0x0F),
		flags:         messageFlags(data[1] & 0x0F),
		serialization: serializationMethod((data[2] >> 4) & 0x0F),
		compression:   compressionMethod(data[2] & 0x0F),
	}
	if h.version != protocolVersion {
		return header{}, fmt.Errorf("unsupported protocol version: %d", h.version)
	}
	return h, nil
}

// serverMessage is one decoded frame from the synthesis endpoint.
type serverMessage struct {
	header   header
	sequence int32
	payload  []byte
}

// lastPacket reports whether this frame closes the stream.
func (m serverMessage) lastPacket() bool {
	return m.header.flags&negativeSequenceNumber == negativeSequenceNumber
}

// encodeClientRequest frames a JSON payload as a full client request.
func encodeClientRequest(payload []byte) []byte {
	h := header{
		version:       protocolVersion,
		headerSize:    0b0001,
		msgType:       fullClientRequest,
		flags:         noSequenceNumber,
		serialization: jsonSerialization,
		compression:   noCompression,
	}
	buf := bytes.NewBuffer(h.encode())
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(payload)))
	buf.Write(size)
	buf.Write(payload)
	return buf.Bytes()
}

// decodeServerMessage parses one binary frame: header, optional sequence
// number, payload size, payload.
func decodeServerMessage(data []byte) (serverMessage, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return serverMessage{}, err
	}
	offset := int(h.headerSize) * 4
	if len(data) < offset {
		return serverMessage{}, fmt.Errorf("frame shorter than header size")
	}
	msg := serverMessage{header: h}

	if h.flags&positiveSequenceNumber != 0 {
		if len(data) < offset+4 {
			return serverMessage{}, fmt.Errorf("frame missing sequence number")
		}
		msg.sequence = int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}

	if len(data) < offset+4 {
		return serverMessage{}, fmt.Errorf("frame missing payload size")
	}
	size := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4
	if len(data) < offset+int(size) {
		return serverMessage{}, fmt.Errorf("frame payload truncated: want %d bytes", size)
	}
	msg.payload = data[offset : offset+int(size)]

	payload, err := decompressPayload(msg.payload, h.compression)
	if err != nil {
		return serverMessage{}, err
	}
	msg.payload = payload
	return msg, nil
}

func decompressPayload(payload []byte, method compressionMethod) ([]byte, error) {
	switch method {
	case noCompression:
		return payload, nil
	case gzipCompression:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("open gzip payload: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read gzip payload: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
}
