//mtdbg is a raw MTD flash partition maintenance utility: it queries device
// geometry and performs bulk erase, read-out-to-file, and write-from-file
// operations directly against MTD character device nodes.
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/tarndt/mtdbg/pkg/mtdcmd"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(new(mtdcmd.Runner)).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(runner *mtdcmd.Runner) *cobra.Command {
	root := &cobra.Command{
		Use:          "mtdbg",
		Short:        "Raw MTD flash maintenance: geometry, erase, and bulk copies",
		Long:         "mtdbg queries MTD flash partition geometry and performs bulk erase,\nread-out-to-file, and write-from-file operations against raw MTD\ncharacter devices. Devices may be named by path, mtdN, partition\nnumber, or the partition name from /proc/mtd.",
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "info <device>",
			Short: "Print device geometry and erase regions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runner.Info(args[0])
			},
		},
		&cobra.Command{
			Use:   "read <device> <offset> <len> <dest-filename>",
			Short: "Copy a flash byte range out to a file",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				offset, length, err := parseRange(args[1], args[2])
				if err != nil {
					return err
				}
				return runner.Read(args[0], offset, length, args[3])
			},
		},
		&cobra.Command{
			Use:   "write <device> <offset> <len> <source-filename>",
			Short: "Copy a file into a flash byte range",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				offset, length, err := parseRange(args[1], args[2])
				if err != nil {
					return err
				}
				return runner.Write(args[0], offset, length, args[3])
			},
		},
		&cobra.Command{
			Use:   "erase <device> <offset> <len>",
			Short: "Erase a flash byte range",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				offset, length, err := parseRange(args[1], args[2])
				if err != nil {
					return err
				}
				return runner.Erase(args[0], uint32(offset), uint32(length))
			},
		},
	)
	return root
}

//parseRange parses an (offset, length) argument pair. Both accept decimal
// or 0x hex; lengths additionally accept IEC sizes such as "64KiB".
func parseRange(offsetArg, lengthArg string) (offset, length int64, err error) {
	if offset, err = parseCount(offsetArg); err != nil {
		return 0, 0, fmt.Errorf("Bad offset %q: %w", offsetArg, err)
	}
	if length, err = parseCount(lengthArg); err != nil {
		return 0, 0, fmt.Errorf("Bad length %q: %w", lengthArg, err)
	}
	return offset, length, nil
}

func parseCount(arg string) (int64, error) {
	if val, err := strconv.ParseUint(arg, 0, 32); err == nil {
		return int64(val), nil
	}

	val, err := humanize.ParseBytes(arg)
	if err != nil {
		return 0, err
	}
	if val > math.MaxUint32 {
		return 0, fmt.Errorf("%d does not fit in the 32-bit MTD address space", val)
	}
	return int64(val), nil
}
