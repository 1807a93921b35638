//Package mtdcmd is the command facade: it resolves a user-supplied MTD name
// to a device node, opens it with the minimal sufficient access mode for the
// requested operation, delegates to the geometry, erase, or transfer
// machinery, and guarantees the handle is closed on every exit path.
package mtdcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/tarndt/mtdbg/pkg/mtd"
	"github.com/tarndt/mtdbg/pkg/report"
	"github.com/tarndt/mtdbg/pkg/xfer"
)

//Op identifies one of the four maintenance operations
type Op int

//The four operations
const (
	OpInfo Op = iota
	OpRead
	OpWrite
	OpErase
)

//opNames is used in trace output
var opNames = map[Op]string{
	OpInfo:  "info",
	OpRead:  "read",
	OpWrite: "write",
	OpErase: "erase",
}

//accessModes maps each operation to the minimal device access it needs
var accessModes = map[Op]mtd.AccessMode{
	OpInfo:  mtd.ReadOnly,
	OpRead:  mtd.ReadOnly,
	OpWrite: mtd.ReadWrite,
	OpErase: mtd.ReadWrite,
}

//device is the slice of *mtd.Device the facade relies on; tests substitute
// fakes through openDevice
type device interface {
	Info() (mtd.Info, error)
	Regions() ([]mtd.Region, error)
	Erase(offset, length uint32) error
	io.ReadWriteSeeker
	io.Closer
}

var openDevice = func(path string, mode mtd.AccessMode) (device, error) {
	return mtd.Open(path, mode)
}

//Runner executes maintenance operations against one MTD device per call.
//The zero value resolves device names via mtd.FindDevNode and reports to
// stdout/stderr.
type Runner struct {
	Out     io.Writer //Success confirmations; nil means os.Stdout
	Diag    io.Writer //Diagnostics; nil means os.Stderr
	Resolve func(name string) (string, error)
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Runner) diag() io.Writer {
	if r.Diag != nil {
		return r.Diag
	}
	return os.Stderr
}

func (r *Runner) resolve(name string) (string, error) {
	if r.Resolve != nil {
		return r.Resolve(name)
	}
	return mtd.FindDevNode(name)
}

//withDevice resolves and opens the named device for op, runs fn, and closes
// the handle no matter how fn fares. A close failure is itself fatal, but an
// operation failure takes precedence when both occur.
func (r *Runner) withDevice(op Op, name string, fn func(dev device) error) (err error) {
	devPath, err := r.resolve(name)
	if err != nil {
		return fmt.Errorf("Could not resolve MTD device %q: %w", name, err)
	}

	dev, err := openDevice(devPath, accessModes[op])
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dev.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(dev)
}

//Info prints the device's geometry report
func (r *Runner) Info(name string) error {
	return r.withDevice(OpInfo, name, func(dev device) error {
		info, err := dev.Info()
		if err != nil {
			return err
		}
		regions, err := dev.Regions()
		if err != nil {
			return err
		}
		_, err = io.WriteString(r.out(), report.FormatInfo(info, regions))
		return err
	})
}

//Read copies length device bytes starting at offset into file
func (r *Runner) Read(name string, offset, length int64, file string) error {
	fmt.Fprintf(r.out(), "%s %s %x %x\n", opNames[OpRead], name, offset, length)

	return r.withDevice(OpRead, name, func(dev device) error {
		cp := xfer.Copier{Out: r.out(), Diag: r.diag()}
		return cp.FlashToFile(dev, offset, length, file)
	})
}

//Write copies length bytes of file to the device starting at offset
func (r *Runner) Write(name string, offset, length int64, file string) error {
	fmt.Fprintf(r.out(), "%s %s %x %x\n", opNames[OpWrite], name, offset, length)

	return r.withDevice(OpWrite, name, func(dev device) error {
		cp := xfer.Copier{Out: r.out(), Diag: r.diag()}
		return cp.FileToFlash(dev, offset, length, file)
	})
}

//Erase erases exactly [offset, offset+length) of the device
func (r *Runner) Erase(name string, offset, length uint32) error {
	fmt.Fprintf(r.out(), "%s %s %x %x\n", opNames[OpErase], name, offset, length)

	return r.withDevice(OpErase, name, func(dev device) error {
		if err := dev.Erase(offset, length); err != nil {
			return err
		}
		fmt.Fprintf(r.diag(), "Erased %d bytes from address 0x%.8x in flash\n", length, offset)
		return nil
	})
}
