package rom

import (
	"strings"

	"github.com/NVIDIA/cstruct"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/pkg/romerr"
)

const (
	// CopierHeaderSize is the size of the header some dumping devices prepend.
	CopierHeaderSize = 0x200

	loROMHeaderOffset = 0x7FC0
	hiROMHeaderOffset = 0xFFC0

	titleLen            = 21
	internalHeaderSize  = 0x20
	checksumCompOffset  = 0x1C
	checksumOffset      = 0x1E
	checksumFieldsValue = 0xFFFF
)

// headerFields is the packed layout following the title.
type headerFields struct {
	MapMode            uint8
	CartType           uint8
	ROMSize            uint8
	SRAMSize           uint8
	Region             uint8
	Developer          uint8
	Version            uint8
	ChecksumComplement uint16
	Checksum           uint16
}

// InternalHeader is the cartridge header embedded in a SNES image.
type InternalHeader struct {
	Offset             int
	Title              string
	MapMode            uint8
	CartType           uint8
	ROMSize            uint8
	SRAMSize           uint8
	Region             uint8
	Developer          uint8
	Version            uint8
	ChecksumComplement uint16
	Checksum           uint16
}

// ChecksumValid reports whether the checksum and its complement agree.
func (h InternalHeader) ChecksumValid() bool {
	return h.Checksum^h.ChecksumComplement == checksumFieldsValue
}

func headerOffset(mode MapMode) int {
	if mode == HiROM {
		return hiROMHeaderOffset
	}
	return loROMHeaderOffset
}

// readInternalHeader decodes the header at off in data.
func readInternalHeader(data []byte, off int) (InternalHeader, error) {
	raw, ok := buf.Slice(data, off, internalHeaderSize)
	if !ok {
		return InternalHeader{}, romerr.New(romerr.OutOfBounds,
			"rom: internal header at %#x outside image of %#x bytes", off, len(data))
	}
	var f headerFields
	if _, err := cstruct.Unpack(raw[titleLen:], &f, cstruct.LittleEndian); err != nil {
		return InternalHeader{}, romerr.Wrap(err, romerr.InvalidArgument, "rom: unpack internal header at %#x", off)
	}
	return InternalHeader{
		Offset:             off,
		Title:              strings.TrimRight(string(raw[:titleLen]), " \x00"),
		MapMode:            f.MapMode,
		CartType:           f.CartType,
		ROMSize:            f.ROMSize,
		SRAMSize:           f.SRAMSize,
		Region:             f.Region,
		Developer:          f.Developer,
		Version:            f.Version,
		ChecksumComplement: f.ChecksumComplement,
		Checksum:           f.Checksum,
	}, nil
}

// scoreHeader rates how plausible h is as the header for mode.
func scoreHeader(h InternalHeader, mode MapMode) int {
	score := 0
	if h.ChecksumValid() {
		score += 4
	}
	if h.MapMode&0xE0 == 0x20 {
		score++
		if MapMode(h.MapMode&0x01) == mode {
			score += 2
		}
	}
	printable := len(h.Title) > 0
	for _, c := range h.Title {
		if c < 0x20 || c > 0x7E {
			printable = false
			break
		}
	}
	if printable {
		score += 2
	}
	return score
}

// detectMapMode picks the map mode whose header candidate scores best.
// Ties, and images too small for a HiROM header, resolve to LoROM.
func detectMapMode(data []byte) MapMode {
	lo, loErr := readInternalHeader(data, loROMHeaderOffset)
	hi, hiErr := readInternalHeader(data, hiROMHeaderOffset)
	switch {
	case hiErr != nil:
		return LoROM
	case loErr != nil:
		return HiROM
	case scoreHeader(hi, HiROM) > scoreHeader(lo, LoROM):
		return HiROM
	default:
		return LoROM
	}
}

// snesChecksum sums the image the way the console's boot code expects:
// a non power-of-two tail is mirrored up to the size of the leading part.
func snesChecksum(data []byte) uint16 {
	if len(data) == 0 {
		return 0
	}
	p := 1
	for p*2 <= len(data) {
		p *= 2
	}
	var sum uint32
	for _, b := range data[:p] {
		sum += uint32(b)
	}
	if tail := data[p:]; len(tail) > 0 {
		var tailSum uint32
		for _, b := range tail {
			tailSum += uint32(b)
		}
		times := uint32(1)
		if p%len(tail) == 0 {
			times = uint32(p / len(tail))
		}
		sum += tailSum * times
	}
	return uint16(sum)
}
