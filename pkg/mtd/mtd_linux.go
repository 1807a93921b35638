package mtd

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/tarndt/mtdbg/pkg/util/consterr"

	"golang.org/x/sys/unix"
)

//Error classes; callers can test for them with errors.Is since every failure
// returned by this package wraps one of these alongside the system error
const (
	ErrDeviceOpen  = consterr.ConstErr("MTD device could not be opened")
	ErrDeviceQuery = consterr.ConstErr("MTD device query failed")
	ErrErase       = consterr.ConstErr("MTD erase failed")
	ErrDeviceClose = consterr.ConstErr("MTD device could not be closed")
)

//AccessMode selects how a device node is opened
type AccessMode int

//The minimal sufficient access modes; geometry queries and read-out only
// need ReadOnly while write-in and erase need ReadWrite
const (
	ReadOnly AccessMode = iota
	ReadWrite
)

//sysFlags returns the open(2) flags for this mode. O_SYNC matches the
// synchronous contract of raw flash maintenance: no write returns before the
// driver has it.
func (mode AccessMode) sysFlags() int {
	if mode == ReadWrite {
		return unix.O_RDWR | unix.O_SYNC
	}
	return unix.O_RDONLY | unix.O_SYNC
}

//Device is an open handle to an MTD character device node. It is owned by
// exactly one command invocation at a time and must not be shared across
// concurrent operations; the driver, not this package, arbitrates between
// processes.
type Device struct {
	*os.File
}

//Open opens the MTD device node at path with the provided access mode
func Open(path string, mode AccessMode) (*Device, error) {
	f, err := os.OpenFile(path, mode.sysFlags(), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: Could not open %q: %w", ErrDeviceOpen, path, err)
	}
	return &Device{File: f}, nil
}

//Close releases the underlying device node
func (dev *Device) Close() error {
	if err := dev.File.Close(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrDeviceClose, dev.Name(), err)
	}
	return nil
}

//Info queries the device's static properties (MEMGETINFO) and returns a
// fresh immutable snapshot
func (dev *Device) Info() (Info, error) {
	var raw infoUser
	if err := sysIoctl(dev.Fd(), iocMemGetInfo, unsafe.Pointer(&raw)); err != nil {
		return Info{}, fmt.Errorf("%w: MEMGETINFO on %q: %w", ErrDeviceQuery, dev.Name(), err)
	}
	return Info{
		Type:      Type(raw.typ),
		Flags:     Flags(raw.flags),
		Size:      raw.size,
		EraseSize: raw.eraseSize,
		WriteSize: raw.writeSize,
		OOBSize:   raw.oobSize,
	}, nil
}

//Regions queries the device's erase-region table: one MEMGETREGIONCOUNT
// followed by one MEMGETREGIONINFO per reported region, in ascending index
// order. A count of zero is valid and yields an empty sequence; if the count
// query fails no per-region queries are attempted.
func (dev *Device) Regions() ([]Region, error) {
	var count int32
	if err := sysIoctl(dev.Fd(), iocMemGetRegionCount, unsafe.Pointer(&count)); err != nil {
		return nil, fmt.Errorf("%w: MEMGETREGIONCOUNT on %q: %w", ErrDeviceQuery, dev.Name(), err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: MEMGETREGIONCOUNT on %q reported %d regions", ErrDeviceQuery, dev.Name(), count)
	}

	regions := make([]Region, 0, count)
	for i := int32(0); i < count; i++ {
		raw := regionUser{index: uint32(i)}
		if err := sysIoctl(dev.Fd(), iocMemGetRegionInfo, unsafe.Pointer(&raw)); err != nil {
			return nil, fmt.Errorf("%w: MEMGETREGIONINFO(%d) on %q: %w", ErrDeviceQuery, i, dev.Name(), err)
		}
		regions = append(regions, Region{
			Offset:    raw.offset,
			EraseSize: raw.eraseSize,
			NumBlocks: raw.numBlocks,
			Index:     raw.index,
		})
	}
	return regions, nil
}

//Erase issues one MEMERASE command covering exactly [offset, offset+length).
//The driver is the source of truth for erase-block alignment; no
// pre-validation happens here. The call blocks until the driver finishes and
// either the whole range erased or an error is returned.
func (dev *Device) Erase(offset, length uint32) error {
	raw := eraseUser{start: offset, length: length}
	if err := sysIoctl(dev.Fd(), iocMemErase, unsafe.Pointer(&raw)); err != nil {
		return fmt.Errorf("%w: MEMERASE of %#x bytes at %#x on %q: %w", ErrErase, length, offset, dev.Name(), err)
	}
	return nil
}
