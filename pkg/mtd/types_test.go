package mtd

import "testing"

func TestTypeNames(t *testing.T) {
	cases := []struct {
		typ      Type
		expected string
	}{
		{TypeAbsent, "MTD_ABSENT"},
		{TypeRAM, "MTD_RAM"},
		{TypeROM, "MTD_ROM"},
		{TypeNORFlash, "MTD_NORFLASH"},
		{TypeNANDFlash, "MTD_NANDFLASH"},
		{TypeDataFlash, "MTD_DATAFLASH"},
		{TypeUBIVolume, "MTD_UBIVOLUME"},
		{TypeMLCNANDFlash, "MTD_MLCNANDFLASH"},
		{Type(5), "(unknown type - new MTD API maybe?)"},
		{Type(200), "(unknown type - new MTD API maybe?)"},
	}

	for _, tc := range cases {
		if actual := tc.typ.String(); actual != tc.expected {
			t.Errorf("Expected type %d to render as %q but got %q", tc.typ, tc.expected, actual)
		}
	}
}

func TestFlagNames(t *testing.T) {
	t.Run("exact-capability-classes", func(t *testing.T) {
		cases := []struct {
			flags    Flags
			expected string
		}{
			{CapROM, "MTD_CAP_ROM"},
			{CapRAM, "MTD_CAP_RAM"},
			{CapNORFlash, "MTD_CAP_NORFLASH"},
			{CapNANDFlash, "MTD_CAP_NANDFLASH"},
		}
		for _, tc := range cases {
			if actual := tc.flags.String(); actual != tc.expected {
				t.Errorf("Expected flags %#x to render as %q but got %q", uint32(tc.flags), tc.expected, actual)
			}
		}
	})

	t.Run("bit-lists", func(t *testing.T) {
		cases := []struct {
			flags    Flags
			expected string
		}{
			{FlagWriteable | FlagPowerupLock, "MTD_WRITEABLE | MTD_POWERUP_LOCK"},
			{FlagBitWriteable | FlagNoErase, "MTD_BIT_WRITEABLE | MTD_NO_ERASE"},
			{FlagWriteable | FlagBitWriteable | FlagNoErase | FlagPowerupLock,
				"MTD_WRITEABLE | MTD_BIT_WRITEABLE | MTD_NO_ERASE | MTD_POWERUP_LOCK"},
		}
		for _, tc := range cases {
			if actual := tc.flags.String(); actual != tc.expected {
				t.Errorf("Expected flags %#x to render as %q but got %q", uint32(tc.flags), tc.expected, actual)
			}
		}
	})
}
