//Package report renders MTD geometry query results as the human-readable
// summary printed by the info operation.
package report

import (
	"fmt"
	"strings"

	"github.com/tarndt/mtdbg/pkg/mtd"
)

//sizeSuffixes is walked one step per division by 1024
const sizeSuffixes = "KMGT"

//FormatSize renders a byte count as the raw value followed by a
// parenthesized human-scaled value: divide by 1024 while >= 1024, selecting
// the suffix where the loop stops. Values under 1024 get no suffix.
func FormatSize(x uint32) string {
	scaled, steps := x, 0
	for ; scaled >= 1024 && steps < len(sizeSuffixes); steps++ {
		scaled /= 1024
	}
	if steps == 0 {
		return fmt.Sprintf("%d", x)
	}
	return fmt.Sprintf("%d (%d%c)", x, scaled, sizeSuffixes[steps-1])
}

//FormatInfo renders a device descriptor and its erase-region table
func FormatInfo(info mtd.Info, regions []mtd.Region) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "mtd.type = %s\n", info.Type)
	fmt.Fprintf(&sb, "mtd.flags = %s\n", info.Flags)
	fmt.Fprintf(&sb, "mtd.size = %s\n", FormatSize(info.Size))
	fmt.Fprintf(&sb, "mtd.erasesize = %s\n", FormatSize(info.EraseSize))
	fmt.Fprintf(&sb, "mtd.writesize = %s\n", FormatSize(info.WriteSize))
	fmt.Fprintf(&sb, "mtd.oobsize = %s\n", FormatSize(info.OOBSize))
	fmt.Fprintf(&sb, "regions = %d\n\n", len(regions))

	for i, region := range regions {
		fmt.Fprintf(&sb, "region[%d].offset = 0x%.8x\n", i, region.Offset)
		fmt.Fprintf(&sb, "region[%d].erasesize = %s\n", i, FormatSize(region.EraseSize))
		fmt.Fprintf(&sb, "region[%d].numblocks = %d\n", i, region.NumBlocks)
		fmt.Fprintf(&sb, "region[%d].regionindex = %d\n", i, region.Index)
	}
	return sb.String()
}
