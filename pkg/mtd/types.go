//Package mtd provides access to Linux memory-technology-device (MTD) flash
// partitions through their character device nodes: geometry and erase-region
// introspection plus bulk erase, via the kernel's MTD ioctl interface.
package mtd

import "strings"

//Type is the hardware class of an MTD device as reported by the kernel
type Type uint8

//MTD hardware classes (linux/mtd/mtd-abi.h)
const (
	TypeAbsent       Type = 0
	TypeRAM          Type = 1
	TypeROM          Type = 2
	TypeNORFlash     Type = 3
	TypeNANDFlash    Type = 4
	TypeDataFlash    Type = 6
	TypeUBIVolume    Type = 7
	TypeMLCNANDFlash Type = 8
)

//typeNames maps each known hardware class to the name the kernel headers use.
//Unknown values get an explicit fallback rather than a default string so new
// kernel classes render distinctly instead of being mislabeled.
var typeNames = map[Type]string{
	TypeAbsent:       "MTD_ABSENT",
	TypeRAM:          "MTD_RAM",
	TypeROM:          "MTD_ROM",
	TypeNORFlash:     "MTD_NORFLASH",
	TypeNANDFlash:    "MTD_NANDFLASH",
	TypeMLCNANDFlash: "MTD_MLCNANDFLASH",
	TypeDataFlash:    "MTD_DATAFLASH",
	TypeUBIVolume:    "MTD_UBIVOLUME",
}

//String returns the kernel header name of this class or a fallback marker
// for classes this package does not know about
func (t Type) String() string {
	if name, known := typeNames[t]; known {
		return name
	}
	return "(unknown type - new MTD API maybe?)"
}

//Flags are the capability bits of an MTD device as reported by the kernel
type Flags uint32

//MTD capability bits (linux/mtd/mtd-abi.h)
const (
	FlagWriteable    Flags = 0x400
	FlagBitWriteable Flags = 0x800
	FlagNoErase      Flags = 0x1000
	FlagPowerupLock  Flags = 0x2000
)

//Coarse capability classes; each is a fixed combination of the bits above
const (
	CapROM       Flags = 0
	CapRAM       Flags = FlagWriteable | FlagBitWriteable | FlagNoErase
	CapNORFlash  Flags = FlagWriteable | FlagBitWriteable
	CapNANDFlash Flags = FlagWriteable
)

//flagNames is ordered; rendering of non-coarse flag sets must enumerate bits
// in this fixed order
var flagNames = []struct {
	name string
	bit  Flags
}{
	{"MTD_WRITEABLE", FlagWriteable},
	{"MTD_BIT_WRITEABLE", FlagBitWriteable},
	{"MTD_NO_ERASE", FlagNoErase},
	{"MTD_POWERUP_LOCK", FlagPowerupLock},
}

//String renders flags as one exact coarse capability class if the value
// matches one exactly, otherwise as a "|" joined list of every set bit
func (f Flags) String() string {
	switch f {
	case CapROM:
		return "MTD_CAP_ROM"
	case CapRAM:
		return "MTD_CAP_RAM"
	case CapNORFlash:
		return "MTD_CAP_NORFLASH"
	case CapNANDFlash:
		return "MTD_CAP_NANDFLASH"
	}

	var names []string
	for _, entry := range flagNames {
		if f&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, " | ")
}

//Info is an immutable snapshot of the static properties of an MTD device.
//Each call to Device.Info produces a fresh value; it has no identity beyond
// the open handle it was read from.
type Info struct {
	Type      Type
	Flags     Flags
	Size      uint32 //Total device size in bytes
	EraseSize uint32 //Size of one erase block in bytes
	WriteSize uint32 //Size of one write page in bytes
	OOBSize   uint32 //Out-of-band (spare) bytes per page
}

//Region is one contiguous zone of uniform erase-block size within a device.
//Index is zero based and matches the region's position in the device's
// region table. A device reporting zero regions has a single implicit
// uniform geometry described by Info alone.
type Region struct {
	Offset    uint32
	EraseSize uint32
	NumBlocks uint32
	Index     uint32
}
