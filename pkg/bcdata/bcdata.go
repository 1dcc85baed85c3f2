// Package bcdata encodes the records this application embeds in unspendable transaction outputs.
//
// Record layout:
//
//	byte 0      OP_RETURN marker (0x6a)
//	byte 1      number of bytes that follow
//	bytes 2-4   application prefix "DAT"
//	byte 5      opcode
//	byte 6      payload length
//	bytes 7-    payload
package bcdata

import (
	"bytes"
	"fmt"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
)

const (
	// ReturnMarker identifies a data carrying, unspendable output.
	ReturnMarker byte = 0x6a

	// Prefix is the application prefix following the length byte.
	Prefix = "DAT"

	// MaxPayloadSize is the largest payload whose record length still fits the length byte.
	MaxPayloadSize = 0xff - len(Prefix) - 2

	headerSize = 2 + len(Prefix) + 2
)

// OpCode identifies the kind of payload a record carries.
type OpCode byte

const (
	OpPubKey   OpCode = 0x10
	OpFileData OpCode = 0x20
)

func (o OpCode) String() string {
	switch o {
	case OpPubKey:
		return "OP_PUB_KEY"
	case OpFileData:
		return "OP_FILE_DATA"
	default:
		return fmt.Sprintf("OP_UNKNOWN(0x%02x)", byte(o))
	}
}

// ErrPayloadTooLarge is returned if a payload does not fit into a record.
var ErrPayloadTooLarge = ierrors.New("payload too large")

// Record is a decoded record.
type Record struct {
	OpCode  OpCode
	Payload []byte
}

func (r *Record) String() string {
	return stringify.Struct("Record",
		stringify.NewStructField("OpCode", r.OpCode.String()),
		stringify.NewStructField("PayloadSize", len(r.Payload)),
	)
}

// CreatePubKeyData encodes a public key record.
func CreatePubKeyData(publicKey []byte) ([]byte, error) {
	return encode(OpPubKey, publicKey)
}

// CreateFileData encodes a content id record.
func CreateFileData(cid string) ([]byte, error) {
	return encode(OpFileData, []byte(cid))
}

// IsOurs returns true if data starts with the return marker, its declared length matches the
// remaining bytes and it carries the application prefix.
func IsOurs(data []byte) bool {
	if len(data) < 2+len(Prefix) || data[0] != ReturnMarker {
		return false
	}

	if int(data[1]) != len(data)-2 {
		return false
	}

	return bytes.Equal(data[2:2+len(Prefix)], []byte(Prefix))
}

// ExtractOpCode returns the opcode of a record produced by this application.
func ExtractOpCode(data []byte) (OpCode, bool) {
	record, ok := Decode(data)
	if !ok {
		return 0, false
	}

	return record.OpCode, true
}

// ExtractPayload returns the payload of a record produced by this application.
func ExtractPayload(data []byte) ([]byte, bool) {
	record, ok := Decode(data)
	if !ok {
		return nil, false
	}

	return record.Payload, true
}

// Decode parses a record. Foreign or malformed data yields false.
func Decode(data []byte) (*Record, bool) {
	if !IsOurs(data) || len(data) < headerSize {
		return nil, false
	}

	m := marshalutil.New(data)
	if _, err := m.ReadBytes(2 + len(Prefix)); err != nil {
		return nil, false
	}

	opCode, err := m.ReadUint8()
	if err != nil {
		return nil, false
	}

	payloadLength, err := m.ReadUint8()
	if err != nil || int(payloadLength) != len(data)-headerSize {
		return nil, false
	}

	payload, err := m.ReadBytes(int(payloadLength))
	if err != nil {
		return nil, false
	}

	return &Record{
		OpCode:  OpCode(opCode),
		Payload: payload,
	}, true
}

func encode(opCode OpCode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ierrors.Wrapf(ErrPayloadTooLarge, "%s payload has %d bytes, max %d", opCode, len(payload), MaxPayloadSize)
	}

	m := marshalutil.New()
	m.WriteUint8(ReturnMarker)
	m.WriteUint8(uint8(len(Prefix) + 2 + len(payload)))
	m.WriteBytes([]byte(Prefix))
	m.WriteUint8(uint8(opCode))
	m.WriteUint8(uint8(len(payload)))
	m.WriteBytes(payload)

	return m.Bytes(), nil
}
