// Package spec defines the on-disk structures of the single-file HiPS archive:
// header, tile directories, tile codes and internal compression.
//
// File layout:
//
//	header | root directory | tile data | metadata | allsky directory | leaf directories
//
// The header and the root directory always fit in the first HeaderRootDirMaxLength
// bytes, so one read is enough to locate most tiles.
package spec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
)

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypePng
	TileTypeJpeg
)

type Header struct {
	HeaderMagic           uint64
	RootOffset            uint64
	RootLength            uint64
	MetadataOffset        uint64
	MetadataLength        uint64
	AllskyDirectoryOffset uint64
	AllskyDirectoryLength uint64
	LeafDirectoryOffset   uint64
	LeafDirectoryLength   uint64
	TileDataOffset        uint64
	TileDataLength        uint64
	AddressedTilesCount   uint64
	TileEntriesCount      uint64
	TileContentsCount     uint64
	InternalCompression   Compression
	TileType              TileType
	MinOrder              uint8
	MaxOrder              uint8
}

const (
	headerMagic     uint64 = 0x6B615053506948 // "HiPSPak"
	headerMagicMask uint64 = 1<<56 - 1
	HeaderMagicV1   uint64 = headerMagic | (0x01 << 56)

	HeaderLength = 116

	HeaderRootDirMaxLength = 16 << 10
	RootDirOffset          = HeaderLength
	RootDirMaxLength       = HeaderRootDirMaxLength - HeaderLength
)

var ErrInvalidHeader = errors.New("invalid file header")
var ErrInvalidVersion = errors.New("invalid version")

func SerializeHeader(header *Header) []byte {
	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)
	binary.Write(writer, binary.LittleEndian, header)
	writer.Flush()
	return buffer.Bytes()
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	header := Header{}
	if err := binary.Read(bytes.NewReader(buffer), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if header.HeaderMagic&headerMagicMask != headerMagic {
		return nil, ErrInvalidHeader
	}
	if header.HeaderMagic != HeaderMagicV1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, header.HeaderMagic>>56)
	}
	return &header, nil
}
