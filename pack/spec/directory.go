package spec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sort"
)

// Entry locates a run of tiles with consecutive codes sharing one blob of tile data.
// A zero Run marks a leaf directory entry: Offset and Length then address the leaf
// relative to LeafDirectoryOffset.
type Entry struct {
	Code   uint64
	Offset uint64
	Length uint32
	Run    uint32
}

// AllskyEntry locates the Allsky mosaic of one order inside the tile data.
type AllskyEntry struct {
	Order  uint8
	Offset uint64
	Length uint32
}

var ErrInvalidDirectory = errors.New("invalid directory")

// SerializeDirectory writes entries column by column as uvarints: code deltas, runs,
// lengths, then offsets, where 0 means "right after the previous entry".
func SerializeDirectory(entries []Entry) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(entries)))

	var prevCode uint64
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, e.Code-prevCode)
		prevCode = e.Code
	}
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(e.Run))
	}
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(e.Length))
	}

	var next uint64
	for i, e := range entries {
		if i > 0 && e.Offset == next {
			buf = binary.AppendUvarint(buf, 0)
		} else {
			buf = binary.AppendUvarint(buf, e.Offset+1)
		}
		next = e.Offset + uint64(e.Length)
	}
	return buf
}

func DeserializeDirectory(data []byte) ([]Entry, error) {
	r := uvarintReader{r: bytes.NewReader(data)}

	n := r.next()
	if r.err != nil {
		return nil, r.err
	}
	if n > uint64(len(data)) {
		return nil, ErrInvalidDirectory
	}
	entries := make([]Entry, n)

	var code uint64
	for i := range entries {
		code += r.next()
		entries[i].Code = code
	}
	for i := range entries {
		entries[i].Run = uint32(r.next())
	}
	for i := range entries {
		entries[i].Length = uint32(r.next())
	}
	for i := range entries {
		v := r.next()
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return entries, nil
}

func SerializeAllskyDirectory(entries []AllskyEntry) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(entries)))
	for _, e := range entries {
		buf = append(buf, e.Order)
		buf = binary.AppendUvarint(buf, e.Offset)
		buf = binary.AppendUvarint(buf, uint64(e.Length))
	}
	return buf
}

func DeserializeAllskyDirectory(data []byte) ([]AllskyEntry, error) {
	r := uvarintReader{r: bytes.NewReader(data)}

	n := r.next()
	if r.err != nil {
		return nil, r.err
	}
	if n > uint64(len(data)) {
		return nil, ErrInvalidDirectory
	}
	entries := make([]AllskyEntry, n)
	for i := range entries {
		order, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		entries[i].Order = order
		entries[i].Offset = r.next()
		entries[i].Length = uint32(r.next())
	}

	if r.err != nil {
		return nil, r.err
	}
	return entries, nil
}

type uvarintReader struct {
	r   *bytes.Reader
	err error
}

func (u *uvarintReader) next() uint64 {
	if u.err != nil {
		return 0
	}
	var v uint64
	v, u.err = binary.ReadUvarint(u.r)
	return v
}

// CompactEntries merges entries sorted by code into runs where consecutive codes
// point at the same data.
func CompactEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	w := 0
	for _, e := range entries[1:] {
		last := &entries[w]
		if e.Offset == last.Offset && e.Length == last.Length && e.Code == last.Code+uint64(last.Run) {
			last.Run++
			continue
		}
		w++
		entries[w] = e
	}
	return entries[:w+1]
}

// FindEntry searches sorted entries for the one covering code. A leaf entry is
// returned for any code at or past its first code.
func FindEntry(entries []Entry, code uint64) (Entry, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Code > code
	})
	if i == 0 {
		return Entry{}, false
	}

	e := entries[i-1]
	if e.Run == 0 || code < e.Code+uint64(e.Run) {
		return e, true
	}
	return Entry{}, false
}

// SerializeAll builds the root directory and, when the entries do not fit into
// RootDirMaxLength, the leaf directories it points to.
func SerializeAll(entries []Entry, compression Compression) (root []byte, leaves []byte, err error) {
	root, err = Compress(SerializeDirectory(entries), compression)
	if err != nil || len(root) <= RootDirMaxLength {
		return root, nil, err
	}

	perEntry := float64(len(root)) / float64(len(entries))
	leafSize := max(float64(len(entries))*perEntry/(RootDirMaxLength*0.9), 4096, math.Sqrt(float64(len(entries))))

	for len(root) > RootDirMaxLength {
		var rootEntries []Entry
		leaves = leaves[:0]

		for chunk := range slices.Chunk(entries, int(leafSize)) {
			leaf, err := Compress(SerializeDirectory(chunk), compression)
			if err != nil {
				return nil, nil, err
			}
			rootEntries = append(rootEntries, Entry{
				Code:   chunk[0].Code,
				Offset: uint64(len(leaves)),
				Length: uint32(len(leaf)),
			})
			leaves = append(leaves, leaf...)
		}

		if root, err = Compress(SerializeDirectory(rootEntries), compression); err != nil {
			return nil, nil, err
		}
		leafSize *= 1.1
	}
	return root, leaves, nil
}
