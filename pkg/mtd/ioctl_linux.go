package mtd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

//MTD ioctl request numbers (linux/mtd/mtd-abi.h)
const (
	iocMemGetInfo        = 0x80204d01 //MEMGETINFO        _IOR('M', 1, struct mtd_info_user)
	iocMemErase          = 0x40084d02 //MEMERASE          _IOW('M', 2, struct erase_info_user)
	iocMemGetRegionCount = 0x80044d07 //MEMGETREGIONCOUNT _IOR('M', 7, int)
	iocMemGetRegionInfo  = 0xc0104d08 //MEMGETREGIONINFO  _IOWR('M', 8, struct region_info_user)
)

//infoUser mirrors struct mtd_info_user. The type byte is padded to 32 bits
// and the trailing u64 holds retired fields; both must be present for the
// struct size (and therefore the ioctl request number) to match the kernel.
type infoUser struct {
	typ       uint8
	_         [3]byte
	flags     uint32
	size      uint32
	eraseSize uint32
	writeSize uint32
	oobSize   uint32
	_         uint64
}

//eraseUser mirrors struct erase_info_user
type eraseUser struct {
	start  uint32
	length uint32
}

//regionUser mirrors struct region_info_user
type regionUser struct {
	offset    uint32
	eraseSize uint32
	numBlocks uint32
	index     uint32
}

//sysIoctl is the raw kernel boundary; tests replace it to fake an MTD driver
var sysIoctl = func(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
