package mtdcmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tarndt/mtdbg/pkg/mtd"
	"github.com/tarndt/mtdbg/pkg/mtdtest"
	"github.com/tarndt/mtdbg/pkg/util/consterr"
)

const (
	testEraseSize = 64 * 1024
	testNumBlocks = 4
)

//install routes openDevice to the provided fake and records the access mode
// each open requested
func install(t *testing.T, ff *mtdtest.FakeFlash) (runner *Runner, out, diag *bytes.Buffer, modes *[]mtd.AccessMode) {
	t.Helper()

	modes = new([]mtd.AccessMode)
	prev := openDevice
	openDevice = func(path string, mode mtd.AccessMode) (device, error) {
		*modes = append(*modes, mode)
		ff.Reopen()
		return ff, nil
	}
	t.Cleanup(func() { openDevice = prev })

	out, diag = new(bytes.Buffer), new(bytes.Buffer)
	runner = &Runner{
		Out:     out,
		Diag:    diag,
		Resolve: func(name string) (string, error) { return "/dev/" + name, nil },
	}
	return runner, out, diag, modes
}

func TestInfoCommand(t *testing.T) {
	ff := mtdtest.New(testEraseSize, testNumBlocks)
	ff.RegionTable = []mtd.Region{
		{Offset: 0, EraseSize: testEraseSize, NumBlocks: testNumBlocks, Index: 0},
	}
	runner, out, _, modes := install(t, ff)

	if err := runner.Info("mtd0"); err != nil {
		t.Fatalf("Could not run info: %s", err)
	}

	report := out.String()
	for _, expected := range []string{
		"mtd.type = MTD_NORFLASH\n",
		"mtd.flags = MTD_CAP_NORFLASH\n",
		"mtd.erasesize = 65536 (64K)\n",
		"regions = 1\n",
		"region[0].numblocks = 4\n",
	} {
		if !strings.Contains(report, expected) {
			t.Errorf("Expected report to contain %q, got:\n%s", expected, report)
		}
	}

	if len(*modes) != 1 || (*modes)[0] != mtd.ReadOnly {
		t.Fatalf("Expected one read-only open but saw %v", *modes)
	}
	if !ff.Closed() {
		t.Fatal("Device handle was leaked")
	}
}

func TestAccessModes(t *testing.T) {
	scratch := t.TempDir()
	srcFile := filepath.Join(scratch, "src.bin")
	if err := os.WriteFile(srcFile, make([]byte, testEraseSize), 0666); err != nil {
		t.Fatalf("Could not create source file: %s", err)
	}

	cases := []struct {
		name     string
		run      func(r *Runner) error
		expected mtd.AccessMode
	}{
		{"info", func(r *Runner) error { return r.Info("mtd0") }, mtd.ReadOnly},
		{"read", func(r *Runner) error {
			return r.Read("mtd0", 0, testEraseSize, filepath.Join(scratch, "dump.bin"))
		}, mtd.ReadOnly},
		{"write", func(r *Runner) error {
			return r.Write("mtd0", 0, testEraseSize, srcFile)
		}, mtd.ReadWrite},
		{"erase", func(r *Runner) error { return r.Erase("mtd0", 0, testEraseSize) }, mtd.ReadWrite},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ff := mtdtest.New(testEraseSize, testNumBlocks)
			runner, _, _, modes := install(t, ff)

			if err := tc.run(runner); err != nil {
				t.Fatalf("Could not run %s: %s", tc.name, err)
			}
			if len(*modes) != 1 || (*modes)[0] != tc.expected {
				t.Fatalf("Expected %s to open with mode %v but saw %v", tc.name, tc.expected, *modes)
			}
			if !ff.Closed() {
				t.Fatalf("Device handle was leaked by %s", tc.name)
			}
		})
	}
}

func TestEraseCommand(t *testing.T) {
	ff := mtdtest.New(testEraseSize, testNumBlocks)
	runner, out, diag, _ := install(t, ff)

	if err := runner.Erase("mtd0", 0x10000, 0x10000); err != nil {
		t.Fatalf("Could not erase: %s", err)
	}

	if expected := "Erased 65536 bytes from address 0x00010000 in flash\n"; diag.String() != expected {
		t.Fatalf("Expected erase summary %q but got %q", expected, diag.String())
	}
	if !strings.Contains(out.String(), "erase mtd0 10000 10000") {
		t.Fatalf("Expected an operation trace, got %q", out.String())
	}
	for i, b := range ff.Bytes()[0x10000:0x20000] {
		if b != 0xFF {
			t.Fatalf("Byte %#x of the erased range is %#x, not 0xFF", 0x10000+i, b)
		}
	}

	t.Run("driver-rejects-unaligned", func(t *testing.T) {
		if err := runner.Erase("mtd0", 0x100, 0x100); err == nil {
			t.Fatal("Expected the driver's alignment rejection to surface")
		}
		if !ff.Closed() {
			t.Fatal("Device handle was leaked after a failed erase")
		}
	})
}

func TestRoundTripThroughRunner(t *testing.T) {
	ff := mtdtest.New(testEraseSize, testNumBlocks)
	runner, _, _, _ := install(t, ff)
	dump := filepath.Join(t.TempDir(), "dump.bin")

	const offset, length = testEraseSize, testEraseSize
	original := make([]byte, length)
	copy(original, ff.Bytes()[offset:offset+length])

	if err := runner.Read("mtd0", offset, length, dump); err != nil {
		t.Fatalf("Could not read out flash: %s", err)
	}
	if err := runner.Erase("mtd0", offset, length); err != nil {
		t.Fatalf("Could not erase: %s", err)
	}
	if err := runner.Write("mtd0", offset, length, dump); err != nil {
		t.Fatalf("Could not write flash back: %s", err)
	}
	if !bytes.Equal(ff.Bytes()[offset:offset+length], original) {
		t.Fatal("Read-erase-write round trip did not reproduce the original bytes")
	}
}

func TestCloseAfterFailure(t *testing.T) {
	ff := mtdtest.New(testEraseSize, testNumBlocks)
	ff.FailInfo = errors.New("injected query failure")
	runner, _, _, _ := install(t, ff)

	if err := runner.Info("mtd0"); err == nil {
		t.Fatal("Expected the query failure to surface")
	}
	if !ff.Closed() {
		t.Fatal("Device handle was leaked after a failed operation")
	}
}

const errInjectedClose = consterr.ConstErr("injected close failure")

type badCloseDevice struct {
	*mtdtest.FakeFlash
}

func (bad *badCloseDevice) Close() error { return errInjectedClose }

func TestCloseFailureIsFatal(t *testing.T) {
	ff := mtdtest.New(testEraseSize, testNumBlocks)
	runner, _, _, _ := install(t, ff)

	prev := openDevice
	openDevice = func(path string, mode mtd.AccessMode) (device, error) {
		return &badCloseDevice{FakeFlash: ff}, nil
	}
	t.Cleanup(func() { openDevice = prev })

	if err := runner.Info("mtd0"); !errors.Is(err, errInjectedClose) {
		t.Fatalf("Expected the close failure to surface but got: %v", err)
	}
}

func TestResolveFailureIsFatal(t *testing.T) {
	opened := false
	prev := openDevice
	openDevice = func(path string, mode mtd.AccessMode) (device, error) {
		opened = true
		return nil, errors.New("must not be called")
	}
	t.Cleanup(func() { openDevice = prev })

	runner := &Runner{
		Out:     new(bytes.Buffer),
		Diag:    new(bytes.Buffer),
		Resolve: func(name string) (string, error) { return "", errors.New("injected resolve failure") },
	}
	if err := runner.Info("bogus"); err == nil {
		t.Fatal("Expected the resolution failure to surface")
	}
	if opened {
		t.Fatal("No open may be attempted after resolution fails")
	}
}
