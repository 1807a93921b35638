//Package xfer implements the bulk copy engine that moves byte ranges
// between a raw flash device and regular files, with adaptive staging-buffer
// sizing and strict short-transfer detection.
package xfer

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tarndt/mtdbg/pkg/util/consterr"
)

//Error classes; every failure returned by this package wraps one of these
// alongside the underlying system error
const (
	ErrSeek        = consterr.ConstErr("Device seek failed")
	ErrFileCreate  = consterr.ConstErr("Destination file could not be created")
	ErrFileOpen    = consterr.ConstErr("Source file could not be opened")
	ErrFileRead    = consterr.ConstErr("Source file read came up short")
	ErrShortWrite  = consterr.ConstErr("Destination wrote fewer bytes than requested")
	ErrOutOfMemory = consterr.ConstErr("Staging buffer could not be allocated")
	ErrTruncated   = consterr.ConstErr("Device ended before requested length was read")
)

//FallbackBufSize is the fixed staging-buffer size retried once when
// allocating a buffer for the full remaining transfer fails
const FallbackBufSize = 64 * 1024

//Alloc provides staging buffers; the default is plain heap allocation.
//Tests inject failing implementations to exercise the fallback policy.
type Alloc func(size int64) ([]byte, error)

func heapAlloc(size int64) ([]byte, error) {
	if size < 0 || size > math.MaxUint32 {
		return nil, fmt.Errorf("Requested buffer size %#x does not fit in 32 bits", size)
	}
	return make([]byte, size), nil
}

//Copier copies byte ranges between a flash device handle and regular files.
//The zero value is usable: it allocates from the heap and reports to
// stdout/stderr. Copiers hold no state between transfers; every transfer
// stages through a fresh buffer that is not retained afterwards.
type Copier struct {
	Alloc Alloc     //nil means heap allocation
	Out   io.Writer //Success confirmations; nil means os.Stdout
	Diag  io.Writer //Diagnostics; nil means os.Stderr
}

func (cp *Copier) alloc() Alloc {
	if cp.Alloc != nil {
		return cp.Alloc
	}
	return heapAlloc
}

func (cp *Copier) out() io.Writer {
	if cp.Out != nil {
		return cp.Out
	}
	return os.Stdout
}

func (cp *Copier) diag() io.Writer {
	if cp.Diag != nil {
		return cp.Diag
	}
	return os.Stderr
}

//stage allocates the transfer staging buffer: first sized to the full
// transfer, then retried once at exactly FallbackBufSize. There is no
// intermediate size between the two.
func (cp *Copier) stage(length int64) ([]byte, error) {
	alloc := cp.alloc()
	buf, err := alloc(length)
	if err == nil {
		return buf, nil
	}

	fmt.Fprintf(cp.diag(), "Could not allocate %#x byte buffer, trying buffer size %#x\n", length, int64(FallbackBufSize))
	if length != FallbackBufSize {
		if buf, err = alloc(FallbackBufSize); err == nil {
			return buf, nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
}

//seekTo positions the device handle at the device-relative byte offset
func seekTo(dev io.Seeker, offset int64) error {
	pos, err := dev.Seek(offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: Could not seek to %#x: %w", ErrSeek, offset, err)
	}
	if pos != offset {
		return fmt.Errorf("%w: Seek to %#x landed at %#x", ErrSeek, offset, pos)
	}
	return nil
}

//FlashToFile copies exactly length bytes starting at offset from the device
// to a freshly created (or truncated) file. The device handle is owned by
// the caller and is left open on every path; the destination file is closed
// on every path. The copy either moves the full length or fails; callers
// must not assume a partial destination file is usable after an error.
func (cp *Copier) FlashToFile(dev io.ReadSeeker, offset, length int64, filename string) error {
	if err := seekTo(dev, offset); err != nil {
		return err
	}

	fout, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrFileCreate, filename, err)
	}
	defer fout.Close()

	buf, err := cp.stage(length)
	if err != nil {
		return err
	}

	for remaining := length; remaining > 0; {
		chunk := buf
		if remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}

		count, err := dev.Read(chunk)
		if err != nil && err != io.EOF {
			return fmt.Errorf("Could not read device with %#x bytes remaining: %w", remaining, err)
		}
		if count < len(chunk) {
			fmt.Fprintf(cp.diag(), "Short device read, requested %#x, read %#x\n", len(chunk), count)
		}
		if count == 0 {
			return fmt.Errorf("%w: %#x of %#x bytes still unread", ErrTruncated, remaining, length)
		}

		written, err := fout.Write(chunk[:count])
		if err != nil {
			return fmt.Errorf("Could not write to %q with %#x bytes remaining: %w", filename, remaining, err)
		}
		if written < count {
			return fmt.Errorf("%w: %q took %d of %d bytes", ErrShortWrite, filename, written, count)
		}
		remaining -= int64(count)
	}

	fmt.Fprintf(cp.out(), "Copied %d bytes from address 0x%.8x in flash to %s\n", length, offset, filename)
	return nil
}

//FileToFlash copies exactly length bytes from the source file to the device
// starting at offset. The source file must hold at least length bytes; a
// short read from it is a hard error since every requested chunk is
// mandatory. The device handle is owned by the caller and is left open on
// every path; the source file is closed on every path.
func (cp *Copier) FileToFlash(dev io.WriteSeeker, offset, length int64, filename string) error {
	if err := seekTo(dev, offset); err != nil {
		return err
	}

	fin, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrFileOpen, filename, err)
	}
	defer fin.Close()

	buf, err := cp.stage(length)
	if err != nil {
		return err
	}

	for remaining := length; remaining > 0; {
		chunk := buf
		if remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}

		if _, err = io.ReadFull(fin, chunk); err != nil {
			return fmt.Errorf("%w: Could not read %#x bytes from %q with %#x remaining: %w", ErrFileRead, len(chunk), filename, remaining, err)
		}

		written, err := dev.Write(chunk)
		if err != nil {
			return fmt.Errorf("Could not write to device with %#x bytes remaining: %w", remaining, err)
		}
		if written < len(chunk) {
			return fmt.Errorf("%w: Device took %d of %d bytes", ErrShortWrite, written, len(chunk))
		}
		remaining -= int64(len(chunk))
	}

	fmt.Fprintf(cp.out(), "Copied %d bytes from %s to address 0x%.8x in flash\n", length, filename, offset)
	return nil
}
