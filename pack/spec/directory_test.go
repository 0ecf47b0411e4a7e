package spec_test

import (
	"cmp"
	"slices"
	"testing"

	"github.com/eak1mov/go-hips/pack/spec"
	"github.com/eak1mov/go-hips/tile"
	gcmp "github.com/google/go-cmp/cmp"
)

func sampleEntries(t *testing.T, maxOrder int) []spec.Entry {
	t.Helper()
	entries := make([]spec.Entry, 0)
	offset := uint64(0)
	for tileID := range tile.IDs(maxOrder) {
		code, err := spec.EncodeTileID(tileID)
		if err != nil {
			t.Fatalf("EncodeTileID failed: %v", err)
		}
		length := uint32(100 + tileID.Pix%7)
		entries = append(entries, spec.Entry{Code: code, Offset: offset, Length: length, Run: 1})
		offset += uint64(length)
	}
	slices.SortFunc(entries, func(a, b spec.Entry) int {
		return cmp.Compare(a.Code, b.Code)
	})
	return entries
}

func TestDirectorySerializer(t *testing.T) {
	for _, maxOrder := range []int{0, 3, 6} {
		entries := sampleEntries(t, maxOrder)
		deserialized, err := spec.DeserializeDirectory(spec.SerializeDirectory(entries))
		if err != nil {
			t.Errorf("DeserializeDirectory failed: %v", err)
		}
		if !gcmp.Equal(entries, deserialized) {
			t.Error("DeserializeDirectory(SerializeDirectory(input)) != input")
		}
	}

	empty, err := spec.DeserializeDirectory(spec.SerializeDirectory(nil))
	if err != nil || len(empty) != 0 {
		t.Errorf("DeserializeDirectory(empty) = %v, %v", empty, err)
	}

	if _, err := spec.DeserializeDirectory([]byte{5, 1}); err == nil {
		t.Errorf("DeserializeDirectory(truncated) succeeded")
	}
}

func TestAllskyDirectorySerializer(t *testing.T) {
	entries := []spec.AllskyEntry{
		{Order: 0, Offset: 10, Length: 20},
		{Order: 1, Offset: 10, Length: 20},
		{Order: 7, Offset: 1 << 40, Length: 3},
	}
	deserialized, err := spec.DeserializeAllskyDirectory(spec.SerializeAllskyDirectory(entries))
	if err != nil {
		t.Fatalf("DeserializeAllskyDirectory failed: %v", err)
	}
	if diff := gcmp.Diff(entries, deserialized); diff != "" {
		t.Errorf("DeserializeAllskyDirectory mismatch (-want+got):\n%v", diff)
	}
}

func TestCompactEntries(t *testing.T) {
	entries := []spec.Entry{
		{Code: 1, Offset: 0, Length: 5, Run: 1},
		{Code: 2, Offset: 0, Length: 5, Run: 1},
		{Code: 3, Offset: 0, Length: 5, Run: 1},
		{Code: 5, Offset: 0, Length: 5, Run: 1},
		{Code: 6, Offset: 5, Length: 4, Run: 1},
	}
	want := []spec.Entry{
		{Code: 1, Offset: 0, Length: 5, Run: 3},
		{Code: 5, Offset: 0, Length: 5, Run: 1},
		{Code: 6, Offset: 5, Length: 4, Run: 1},
	}
	if diff := gcmp.Diff(want, spec.CompactEntries(entries)); diff != "" {
		t.Errorf("CompactEntries mismatch (-want+got):\n%v", diff)
	}
}

func TestFindEntry(t *testing.T) {
	entries := []spec.Entry{
		{Code: 1, Offset: 0, Length: 5, Run: 3},
		{Code: 10, Offset: 0, Length: 7, Run: 0},
	}
	for _, tc := range []struct {
		code  uint64
		found bool
		want  uint64
	}{
		{0, false, 0},
		{1, true, 1},
		{3, true, 1},
		{4, false, 0},
		{10, true, 10},
		{1000, true, 10},
	} {
		e, found := spec.FindEntry(entries, tc.code)
		if found != tc.found || (found && e.Code != tc.want) {
			t.Errorf("FindEntry(%d) = %v, %v, want code %d, %v", tc.code, e, found, tc.want, tc.found)
		}
	}
}

func TestSerializeAllLeaves(t *testing.T) {
	entries := sampleEntries(t, 7)

	root, leaves, err := spec.SerializeAll(entries, spec.CompressionGzip)
	if err != nil {
		t.Fatalf("SerializeAll failed: %v", err)
	}
	if len(root) > spec.RootDirMaxLength {
		t.Fatalf("root directory is %d bytes, limit %d", len(root), spec.RootDirMaxLength)
	}
	if len(leaves) == 0 {
		t.Fatalf("expected leaf directories for %d entries", len(entries))
	}

	rootData, err := spec.Decompress(root, spec.CompressionGzip)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	rootEntries, err := spec.DeserializeDirectory(rootData)
	if err != nil {
		t.Fatalf("DeserializeDirectory failed: %v", err)
	}

	var collected []spec.Entry
	for _, re := range rootEntries {
		if re.Run != 0 {
			t.Fatalf("root entry %v is not a leaf pointer", re)
		}
		leafData, err := spec.Decompress(leaves[re.Offset:re.Offset+uint64(re.Length)], spec.CompressionGzip)
		if err != nil {
			t.Fatalf("Decompress(leaf) failed: %v", err)
		}
		leafEntries, err := spec.DeserializeDirectory(leafData)
		if err != nil {
			t.Fatalf("DeserializeDirectory(leaf) failed: %v", err)
		}
		collected = append(collected, leafEntries...)
	}
	if !gcmp.Equal(entries, collected) {
		t.Errorf("leaf entries differ from input")
	}
}
