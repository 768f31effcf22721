package rom

import "github.com/joshuapare/romkit/pkg/romerr"

// MapMode is the cartridge memory map of a SNES image.
type MapMode int

const (
	// LoROM maps 32 KiB of image per bank into $8000-$FFFF.
	LoROM MapMode = iota
	// HiROM maps 64 KiB of image per bank, with $C0-$FF as the linear view.
	HiROM
)

func (m MapMode) String() string {
	if m == HiROM {
		return "HiROM"
	}
	return "LoROM"
}

const (
	hiROMBase      = 0xC00000
	exHiROMStart   = 0x400000
	exHiROMEnd     = 0x7E0000 // $7E-$7F is work RAM
	loROMBankBase  = 0x800000
	loROMBankSize  = 0x8000
	maxLoROMOffset = 0x80 * loROMBankSize
)

// ToSNESAddress converts an image offset to a CPU address.
func ToSNESAddress(mode MapMode, offset int) (int, error) {
	if offset < 0 {
		return 0, romerr.New(romerr.InvalidArgument, "rom: negative offset %#x", offset)
	}
	switch mode {
	case HiROM:
		switch {
		case offset < exHiROMStart:
			return offset + hiROMBase, nil
		case offset < exHiROMEnd:
			return offset, nil
		}
	default:
		if offset < maxLoROMOffset {
			bank := offset / loROMBankSize
			return loROMBankBase | bank<<16 | 0x8000 | offset%loROMBankSize, nil
		}
	}
	return 0, romerr.New(romerr.InvalidArgument, "rom: offset %#x has no %s address", offset, mode)
}

// FromSNESAddress converts a CPU address to an image offset.
func FromSNESAddress(mode MapMode, address int) (int, error) {
	switch mode {
	case HiROM:
		switch {
		case address >= hiROMBase && address <= 0xFFFFFF:
			return address - hiROMBase, nil
		case address >= exHiROMStart && address < exHiROMEnd:
			return address, nil
		}
	default:
		if address >= 0 && address <= 0xFFFFFF && address&0xFFFF >= 0x8000 {
			bank := (address >> 16) & 0x7F
			if bank < 0x7E || address >= loROMBankBase {
				return bank*loROMBankSize + address&0x7FFF, nil
			}
		}
	}
	return 0, romerr.New(romerr.InvalidArgument, "rom: %s address %#x does not map to the image", mode, address)
}
