package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [image-path]",
	Short: "Print low-level diagnostic details for every store",
	Long: `Print per-store diagnostic detail that "list" and "info" omit:
copy identifiers, block counts, and whether in-volume catalog data was
found at all.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(args[0])
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(path string) error {
	v, err := openVolume(path)
	if err != nil {
		return err
	}
	defer v.Close()

	fmt.Printf("volume_identifier: %s\n", v.Identifier())
	fmt.Printf("store_volume_identifier: %s\n", v.StoreVolumeIdentifier())

	n := v.StoreCount()
	for i := 0; i < n; i++ {
		s, err := v.Store(i)
		if err != nil {
			return err
		}
		fmt.Printf("\nstore[%d]:\n", i)
		fmt.Printf("  identifier: %s\n", s.Identifier())
		fmt.Printf("  creation_time: %s\n", s.CreationTime().Time())
		fmt.Printf("  volume_size: %d\n", s.VolumeSize())
		fmt.Printf("  live_volume_size: %d\n", s.Size())
		fmt.Printf("  has_in_volume_data: %v\n", s.HasInVolumeData())
		fmt.Printf("  attribute_flags: 0x%08x\n", s.AttributeFlags())
		if copyID, ok := s.CopyIdentifier(); ok {
			fmt.Printf("  copy_identifier: %s\n", copyID)
		} else {
			fmt.Printf("  copy_identifier: (unavailable)\n")
		}
		if copySetID, ok := s.CopySetIdentifier(); ok {
			fmt.Printf("  copy_set_identifier: %s\n", copySetID)
		}
		count, err := s.BlockCount()
		if err != nil {
			fmt.Printf("  block_count: (load failed: %v)\n", err)
			continue
		}
		fmt.Printf("  block_count: %d\n", count)
	}
	return nil
}
