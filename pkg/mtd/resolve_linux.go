package mtd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tarndt/mtdbg/pkg/util/consterr"

	"github.com/pmorjan/kmod"
)

//ErrNoDevice is returned by FindDevNode when no MTD partition matches
const ErrNoDevice = consterr.ConstErr("No matching MTD device was found")

const (
	procfsMTD    = "/proc/mtd"
	devDir       = "/dev"
	mtdDevPrefix = "mtd"
	mtdModName   = "mtd"
)

//FindDevNode resolves a user-supplied MTD name to a character device path.
//Accepted forms: a path to an existing node (used as-is), "mtdN", a bare
// partition number "N", or a partition name matched against the quoted names
// in /proc/mtd.
func FindDevNode(name string) (string, error) {
	if strings.ContainsRune(name, '/') {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: Provided device path %q could not be used: %w", ErrNoDevice, name, err)
		}
		return name, nil
	}

	if err := ensureMTDSupport(); err != nil {
		return "", err
	}

	candidate := name
	if _, err := strconv.Atoi(name); err == nil {
		candidate = mtdDevPrefix + name
	}
	if strings.HasPrefix(candidate, mtdDevPrefix) {
		devPath := devDir + "/" + candidate
		if _, err := os.Stat(devPath); err == nil {
			return devPath, nil
		}
	}

	devName, err := lookupPartName(procfsMTD, name)
	if err != nil {
		return "", err
	}
	return devDir + "/" + devName, nil
}

//ensureMTDSupport checks MTD support is present in the kernel and if not
// attempts to load the mtd module before rechecking
func ensureMTDSupport() error {
	if _, err := os.Stat(procfsMTD); err == nil {
		return nil
	}

	kmodLoader, err := kmod.New()
	if err != nil {
		return fmt.Errorf("Could not construct kernel module loader: %w", err)
	}
	if err = kmodLoader.Load(mtdModName, "", 0); err != nil {
		return fmt.Errorf("Kernel lacks MTD support and loading module %q failed (ensure this binary has capability \"cap_sys_module\" or root): %w", mtdModName, err)
	}

	if _, err = os.Stat(procfsMTD); err != nil {
		return fmt.Errorf("MTD support did not appear after loading module %q: %w", mtdModName, err)
	}
	return nil
}

//lookupPartName scans the procfs partition table for a partition whose
// quoted name matches and returns its mtdN device name
func lookupPartName(procPath, name string) (string, error) {
	fin, err := os.Open(procPath)
	if err != nil {
		return "", fmt.Errorf("Could not open procfs file %q listing MTD partitions: %w", procPath, err)
	}
	defer fin.Close()

	//Lines look like: mtd0: 00800000 00020000 "u-boot"
	lines := bufio.NewScanner(fin)
	for lines.Scan() {
		line := lines.Text()
		devName, partName, found := strings.Cut(line, ":")
		if !found || !strings.HasPrefix(devName, mtdDevPrefix) {
			continue
		}
		if start := strings.IndexByte(partName, '"'); start >= 0 {
			partName = partName[start+1:]
		}
		if partName = strings.TrimSuffix(partName, `"`); partName == name {
			return devName, nil
		}
	}
	if err = lines.Err(); err != nil {
		return "", fmt.Errorf("Could not read procfs file %q listing MTD partitions: %w", procPath, err)
	}
	return "", fmt.Errorf("%w: No partition in %q is named %q", ErrNoDevice, procPath, name)
}
