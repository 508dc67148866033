package macho

import (
	"encoding/binary"
	"testing"
)

// buildMinimal constructs a minimal 64-bit little-endian Mach-O with a
// single __LINKEDIT LC_SEGMENT_64 command, for exercising parse/edit math
// without a real binary on disk.
func buildMinimal(linkeditFileOff, linkeditFileSize uint64) []byte {
	bo := binary.LittleEndian
	cmdPayload := make([]byte, 64)
	copy(cmdPayload[:16], "__LINKEDIT")
	bo.PutUint64(cmdPayload[32:40], linkeditFileOff)
	bo.PutUint64(cmdPayload[40:48], linkeditFileSize)

	cmdSize := 8 + len(cmdPayload)
	header := make([]byte, 32)
	bo.PutUint32(header[0:4], magic64LE)
	bo.PutUint32(header[16:20], 1) // ncmds
	bo.PutUint32(header[20:24], uint32(cmdSize))

	buf := append([]byte{}, header...)
	cmd := make([]byte, 8)
	bo.PutUint32(cmd[0:4], cmdSegment64)
	bo.PutUint32(cmd[4:8], uint32(cmdSize))
	buf = append(buf, cmd...)
	buf = append(buf, cmdPayload...)
	// pad to cover the claimed filesize so offsets stay in range.
	pad := make([]byte, linkeditFileOff+linkeditFileSize-uint64(len(buf)))
	return append(buf, pad...)
}

func TestParseRegularRoundTrip(t *testing.T) {
	t.Parallel()
	data := buildMinimal(32, 100)
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Regular == nil || f.Universal != nil {
		t.Fatalf("expected Regular, got %+v", f)
	}
	if len(f.Regular.LoadCommands) != 1 {
		t.Fatalf("expected 1 load command, got %d", len(f.Regular.LoadCommands))
	}
	seg := f.Regular.LoadCommands[0].Segment
	if seg == nil {
		t.Fatalf("expected segment load command")
	}
	if seg.FileOffset != 32 || seg.Size != 100 {
		t.Errorf("segment = %+v", seg)
	}
}

func TestUpdateFileSizeIdempotent(t *testing.T) {
	t.Parallel()
	data := buildMinimal(32, 100)
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edits, err := UpdateFileSize(f, 132) // fileOffset(32) + newSize-as-delta(100) == same delta
	if err != nil {
		t.Fatalf("UpdateFileSize: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if err := ApplyEdit(edits[0], data); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	got := binary.LittleEndian.Uint64(data[edits[0].Offset : edits[0].Offset+8])
	if got != 100 {
		t.Errorf("filesize field = %d, want 100", got)
	}
}

func TestUpdateFileSizeUniversalUnsupported(t *testing.T) {
	t.Parallel()
	f := &File{Universal: &UniversalFile{}}
	edits, err := UpdateFileSize(f, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edits != nil {
		t.Errorf("expected no edits for Universal, got %v", edits)
	}
}

func TestApplyEditOutOfBounds(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 4)
	err := ApplyEdit(Edit{Offset: 2, Data: []byte{1, 2, 3}}, buf)
	if err == nil {
		t.Errorf("expected out-of-bounds error")
	}
}

func TestParseUnknownMagic(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte{0, 0, 0, 0})
	if err == nil {
		t.Errorf("expected error for unknown magic")
	}
}
