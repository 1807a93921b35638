//Package mtdtest provides an in-memory fake MTD device shared by tests of
// the transfer engine and the command facade. It behaves like a simple NOR
// part: reads and writes are positioned, erase fills whole blocks with 0xFF
// and rejects unaligned ranges the way the kernel driver would.
package mtdtest

import (
	"io"

	"github.com/tarndt/mtdbg/pkg/mtd"
	"github.com/tarndt/mtdbg/pkg/util/consterr"

	"golang.org/x/sys/unix"
)

const errClosed = consterr.ConstErr("Fake device is closed")

//FakeFlash is a memory backed stand-in for an open MTD device handle
type FakeFlash struct {
	Geometry    mtd.Info
	RegionTable []mtd.Region

	flash  []byte
	pos    int64
	closed bool

	//Fault injection knobs
	FailInfo    error //Returned by Info when set
	FailRegions error //Returned by the region count query when set
	ShortReads  bool  //Read returns at most half the requested bytes
	ShortWrites bool  //Write reports one byte fewer than requested
}

//New constructs a fake NOR flash of the given erase-block geometry filled
// with a repeating byte pattern
func New(eraseSize, numBlocks uint32) *FakeFlash {
	size := eraseSize * numBlocks
	flash := make([]byte, size)
	for i := range flash {
		flash[i] = byte(i % 251) //prime stride so blocks differ
	}

	return &FakeFlash{
		Geometry: mtd.Info{
			Type:      mtd.TypeNORFlash,
			Flags:     mtd.CapNORFlash,
			Size:      size,
			EraseSize: eraseSize,
			WriteSize: 1,
			OOBSize:   0,
		},
		flash: flash,
	}
}

//Bytes exposes the backing flash contents for assertions
func (ff *FakeFlash) Bytes() []byte { return ff.flash }

//Info mimics MEMGETINFO
func (ff *FakeFlash) Info() (mtd.Info, error) {
	if ff.closed {
		return mtd.Info{}, errClosed
	}
	if ff.FailInfo != nil {
		return mtd.Info{}, ff.FailInfo
	}
	return ff.Geometry, nil
}

//Regions mimics MEMGETREGIONCOUNT plus per-index MEMGETREGIONINFO
func (ff *FakeFlash) Regions() ([]mtd.Region, error) {
	if ff.closed {
		return nil, errClosed
	}
	if ff.FailRegions != nil {
		return nil, ff.FailRegions
	}
	regions := make([]mtd.Region, len(ff.RegionTable))
	copy(regions, ff.RegionTable)
	return regions, nil
}

//Erase mimics MEMERASE: the range must lie within the device and be aligned
// to erase-block boundaries, then every byte in it becomes 0xFF
func (ff *FakeFlash) Erase(offset, length uint32) error {
	if ff.closed {
		return errClosed
	}
	eraseSize := ff.Geometry.EraseSize
	switch {
	case offset%eraseSize != 0, length%eraseSize != 0:
		return unix.EINVAL
	case uint64(offset)+uint64(length) > uint64(len(ff.flash)):
		return unix.EINVAL
	}

	for i := offset; i < offset+length; i++ {
		ff.flash[i] = 0xFF
	}
	return nil
}

//Seek fulfills io.Seeker
func (ff *FakeFlash) Seek(offset int64, whence int) (int64, error) {
	if ff.closed {
		return 0, errClosed
	}
	switch whence {
	case io.SeekStart:
		ff.pos = offset
	case io.SeekCurrent:
		ff.pos += offset
	case io.SeekEnd:
		ff.pos = int64(len(ff.flash)) + offset
	}
	if ff.pos < 0 || ff.pos > int64(len(ff.flash)) {
		return 0, unix.EINVAL
	}
	return ff.pos, nil
}

//Read fulfills io.Reader; at the device end it returns io.EOF like a
// character device read past the partition would
func (ff *FakeFlash) Read(buf []byte) (int, error) {
	if ff.closed {
		return 0, errClosed
	}
	if ff.pos >= int64(len(ff.flash)) {
		return 0, io.EOF
	}

	count := copy(buf, ff.flash[ff.pos:])
	if ff.ShortReads && count > 1 {
		count /= 2
	}
	ff.pos += int64(count)
	return count, nil
}

//Write fulfills io.Writer
func (ff *FakeFlash) Write(buf []byte) (int, error) {
	if ff.closed {
		return 0, errClosed
	}
	if ff.pos+int64(len(buf)) > int64(len(ff.flash)) {
		return 0, unix.ENOSPC
	}

	count := copy(ff.flash[ff.pos:], buf)
	ff.pos += int64(count)
	if ff.ShortWrites && count > 0 {
		count--
	}
	return count, nil
}

//Close fulfills io.Closer; subsequent operations fail
func (ff *FakeFlash) Close() error {
	if ff.closed {
		return errClosed
	}
	ff.closed = true
	return nil
}

//Closed reports whether Close has been called, for leak assertions
func (ff *FakeFlash) Closed() bool { return ff.closed }

//Reopen models opening a fresh handle on the same flash: the position
// resets and operations work again. Contents are untouched.
func (ff *FakeFlash) Reopen() {
	ff.closed = false
	ff.pos = 0
}
