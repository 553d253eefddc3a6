package dtc

import "encoding/binary"

// headerSize is the fixed 4-byte {size, type} prefix on every frame.
const headerSize = 4

// Header is the 4-byte frame prefix: a little-endian total size (including
// these 4 bytes) and a little-endian message type code.
type Header struct {
	Size uint16
	Type MessageType
}

func decodeHeader(buf []byte) (Header, *DecodeError) {
	if len(buf) < headerSize {
		return Header{}, newDecodeError(ShortFrame, "need %d header bytes, have %d", headerSize, len(buf))
	}
	size := binary.LittleEndian.Uint16(buf[0:2])
	if size < headerSize {
		return Header{}, newDecodeError(MalformedHeader, "size %d is smaller than the header itself", size)
	}
	return Header{
		Size: size,
		Type: MessageType(binary.LittleEndian.Uint16(buf[2:4])),
	}, nil
}

func encodeHeader(buf []byte, size uint16, typ MessageType) {
	binary.LittleEndian.PutUint16(buf[0:2], size)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(typ))
}

// PeekFrameLength inspects the first bytes of a reassembly buffer and
// reports how many total bytes the next frame needs, without decoding its
// body. Returns ok=false when fewer than headerSize bytes are available
// yet (the caller should read more before calling again).
func PeekFrameLength(buf []byte) (length int, ok bool, err *DecodeError) {
	if len(buf) < headerSize {
		return 0, false, nil
	}
	h, decErr := decodeHeader(buf)
	if decErr != nil {
		return 0, false, decErr
	}
	return int(h.Size), true, nil
}
