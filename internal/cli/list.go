package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [image-path]",
	Short: "List the stores (snapshots) found in a volume",
	Long: `List every store decoded from the volume's catalog, in creation-time
order, along with its identifier, creation time, and snapshot volume size.

Examples:
  vshadowinfo list disk.raw
  vshadowinfo list --volume-offset 1048576 disk.raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(path string) error {
	v, err := openVolume(path)
	if err != nil {
		return err
	}
	defer v.Close()

	n := v.StoreCount()
	fmt.Printf("%-3s  %-36s  %-24s  %12s  %s\n", "#", "identifier", "created", "volume size", "attrs")
	for i := 0; i < n; i++ {
		s, err := v.Store(i)
		if err != nil {
			return err
		}
		flags := s.AttributeFlags()
		fmt.Printf("%-3d  %-36s  %-24s  %12s  0x%08x\n",
			i, s.Identifier().String(), s.CreationTime().Time().Format("2006-01-02 15:04:05"),
			humanSize(s.VolumeSize()), flags)
	}
	return nil
}
