// Package macho implements a minimal Mach-O parser and byte-level editor
// (spec §4.4): enough to locate the __LINKEDIT segment's file size field
// after copying dynamic libraries into a relocated binary.
//
// Grounded in gogio's own low-level binary handling style (windows.go's use
// of debug/pe to walk PE sections) generalized to Mach-O, which the standard
// library's debug/macho only exposes read-only — we need byte-level edits,
// so the parse tree here stores load commands as (offset, raw bytes) pairs
// rather than decoding through debug/macho.
package macho

import (
	"encoding/binary"

	"github.com/swiftbundler/bundler/internal/berr"
)

const (
	magic32LE = 0xfeedface
	magic64LE = 0xfeedfacf
	magic32BE = 0xcefaedfe
	magic64BE = 0xcffaedfe
	magicFat  = 0xcafebabe

	cmdSegment64 = 0x19
)

// File is the discriminated Mach-O model: exactly one of Regular or
// Universal is non-nil.
type File struct {
	Regular   *RegularFile
	Universal *UniversalFile
}

// RegularFile is a single-architecture Mach-O binary.
type RegularFile struct {
	Is64           bool
	BigEndian      bool
	CPUType        int32
	CPUSubtype     int32
	FileType       uint32
	Flags          uint32
	LoadCommands   []LoadCommand
	headerSize     int64
	sizeofCmdsBase int64
}

// LoadCommand is a single Mach-O load command: either a parsed
// SegmentLoad64 (the only variant this editor needs to understand) or an
// Opaque command carried through untouched.
type LoadCommand struct {
	FileOffset int64
	Type       uint32
	Size       uint32
	Segment    *SegmentLoad64 // non-nil iff Type == cmdSegment64
	Raw        []byte         // the command's payload, size-8 bytes, always populated
}

// SegmentLoad64 mirrors the fields of LC_SEGMENT_64 this editor cares about.
type SegmentLoad64 struct {
	SegmentName [16]byte
	Address     uint64
	AddressSize uint64
	FileOffset  uint64
	Size        uint64
	VMProts     [2]uint32
	NSections   uint32
	Flags       uint32
}

// BinaryDescriptor describes one architecture slice inside a Universal
// (fat) binary.
type BinaryDescriptor struct {
	CPUType    int32
	CPUSubtype int32
	FileOffset uint32
	Size       uint32
	Alignment  uint32
}

// UniversalFile is a fat/universal Mach-O binary.
type UniversalFile struct {
	Binaries []BinaryDescriptor
}

// Edit is a pending byte-level modification to be applied in a single pass
// over the raw buffer (design note: "model the file as an immutable parse
// tree plus a list of pending Edit values").
type Edit struct {
	Offset int64
	Data   []byte
}

// Parse reads a Mach-O file (32/64-bit, either endianness, or a universal
// binary) from bytes without copying the payload out of it.
func Parse(data []byte) (*File, error) {
	if len(data) < 4 {
		return nil, berr.New(berr.BinaryFormat, "file too short to contain a Mach-O magic").With("len", len(data))
	}
	magicBE := binary.BigEndian.Uint32(data[:4])
	if magicBE == magicFat {
		uf, err := parseUniversal(data)
		if err != nil {
			return nil, err
		}
		return &File{Universal: uf}, nil
	}
	// A regular header's magic is stored in the file's own byte order, so a
	// little-endian read yields magic*LE for LE files and magic*BE for BE ones.
	magicLE := binary.LittleEndian.Uint32(data[:4])
	switch magicLE {
	case magic32LE, magic64LE, magic32BE, magic64BE:
		rf, err := parseRegular(data, magicLE)
		if err != nil {
			return nil, err
		}
		return &File{Regular: rf}, nil
	default:
		return nil, berr.New(berr.BinaryFormat, "unknown magic bytes 0x%x", magicBE).With("magic", magicBE)
	}
}

func parseRegular(data []byte, magic uint32) (*RegularFile, error) {
	is64 := magic == magic64LE || magic == magic64BE
	bigEndian := magic == magic32BE || magic == magic64BE

	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	headerSize := int64(28)
	if is64 {
		headerSize = 32 // mach_header_64 adds a 4-byte reserved field.
	}
	if int64(len(data)) < headerSize {
		return nil, berr.New(berr.BinaryFormat, "file too short for mach_header").With("len", len(data))
	}

	cpuType := int32(bo.Uint32(data[4:8]))
	cpuSubtype := int32(bo.Uint32(data[8:12]))
	fileType := bo.Uint32(data[12:16])
	ncmds := bo.Uint32(data[16:20])
	sizeofcmds := bo.Uint32(data[20:24])
	flags := bo.Uint32(data[24:28])

	rf := &RegularFile{
		Is64:       is64,
		BigEndian:  bigEndian,
		CPUType:    cpuType,
		CPUSubtype: cpuSubtype,
		FileType:   fileType,
		Flags:      flags,
		headerSize: headerSize,
	}

	off := headerSize
	end := headerSize + int64(sizeofcmds)
	if end > int64(len(data)) {
		return nil, berr.New(berr.BinaryFormat, "load commands overrun file: end=%d len=%d", end, len(data))
	}
	for i := uint32(0); i < ncmds; i++ {
		if off+8 > int64(len(data)) {
			return nil, berr.New(berr.BinaryFormat, "truncated load command at offset %d", off)
		}
		cmdType := bo.Uint32(data[off : off+4])
		cmdSize := bo.Uint32(data[off+4 : off+8])
		if off+int64(cmdSize) > int64(len(data)) {
			return nil, berr.New(berr.BinaryFormat, "load command size overruns file at offset %d", off)
		}
		payload := data[off+8 : off+int64(cmdSize)]
		lc := LoadCommand{FileOffset: off, Type: cmdType, Size: cmdSize, Raw: payload}
		if cmdType == cmdSegment64 && len(payload) >= 56 {
			var seg SegmentLoad64
			copy(seg.SegmentName[:], payload[:16])
			seg.Address = bo.Uint64(payload[16:24])
			seg.AddressSize = bo.Uint64(payload[24:32])
			seg.FileOffset = bo.Uint64(payload[32:40])
			seg.Size = bo.Uint64(payload[40:48])
			seg.VMProts[0] = bo.Uint32(payload[48:52])
			seg.VMProts[1] = bo.Uint32(payload[52:56])
			if len(payload) >= 64 {
				seg.NSections = bo.Uint32(payload[56:60])
				seg.Flags = bo.Uint32(payload[60:64])
			}
			lc.Segment = &seg
		}
		rf.LoadCommands = append(rf.LoadCommands, lc)
		off += int64(cmdSize)
	}
	return rf, nil
}

func parseUniversal(data []byte) (*UniversalFile, error) {
	if len(data) < 8 {
		return nil, berr.New(berr.BinaryFormat, "universal header truncated")
	}
	nfat := binary.BigEndian.Uint32(data[4:8])
	uf := &UniversalFile{}
	off := int64(8)
	for i := uint32(0); i < nfat; i++ {
		if off+20 > int64(len(data)) {
			return nil, berr.New(berr.BinaryFormat, "universal fat_arch truncated at %d", off)
		}
		uf.Binaries = append(uf.Binaries, BinaryDescriptor{
			CPUType:    int32(binary.BigEndian.Uint32(data[off : off+4])),
			CPUSubtype: int32(binary.BigEndian.Uint32(data[off+4 : off+8])),
			FileOffset: binary.BigEndian.Uint32(data[off+8 : off+12]),
			Size:       binary.BigEndian.Uint32(data[off+12 : off+16]),
			Alignment:  binary.BigEndian.Uint32(data[off+16 : off+20]),
		})
		off += 20
	}
	return uf, nil
}

// UpdateFileSize computes the edit(s) needed to make the __LINKEDIT segment
// end at a file size of newSize (its filesize becomes newSize - fileoff).
// Regular files get exactly one Edit at the __LINKEDIT load command's file
// offset + 48: the "filesize" field begins at payload offset 40, so the
// absolute file offset is cmd.FileOffset+8+40. Universal files are not
// supported and return no edits (spec §4.4).
func UpdateFileSize(f *File, newSize int64) ([]Edit, error) {
	if f.Universal != nil {
		return nil, nil
	}
	rf := f.Regular
	for _, lc := range rf.LoadCommands {
		if lc.Segment == nil || string(trimNulls(lc.Segment.SegmentName[:])) != "__LINKEDIT" {
			continue
		}
		bo := binary.ByteOrder(binary.LittleEndian)
		if rf.BigEndian {
			bo = binary.BigEndian
		}
		delta := uint64(newSize) - lc.Segment.FileOffset
		buf := make([]byte, 8)
		bo.PutUint64(buf, delta)
		return []Edit{{Offset: lc.FileOffset + 8 + 40, Data: buf}}, nil
	}
	return nil, berr.New(berr.BinaryFormat, "no __LINKEDIT segment found")
}

func trimNulls(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// ApplyEdit writes edit.Data into buf at edit.Offset, bounds-checked.
func ApplyEdit(edit Edit, buf []byte) error {
	if edit.Offset < 0 || edit.Offset+int64(len(edit.Data)) > int64(len(buf)) {
		return berr.New(berr.BinaryFormat, "edit at offset %d length %d out of bounds (buffer %d bytes)", edit.Offset, len(edit.Data), len(buf))
	}
	copy(buf[edit.Offset:edit.Offset+int64(len(edit.Data))], edit.Data)
	return nil
}
