package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [image-path]",
	Short: "Show volume and store summary information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(path string) error {
	v, err := openVolume(path)
	if err != nil {
		return err
	}
	defer v.Close()

	size, err := v.Size()
	if err != nil {
		return err
	}

	fmt.Printf("Volume identifier:       %s\n", v.Identifier())
	fmt.Printf("Store volume identifier: %s\n", v.StoreVolumeIdentifier())
	fmt.Printf("Volume size:             %s (%d bytes)\n", humanSize(size), size)
	fmt.Printf("Number of stores:        %d\n", v.StoreCount())
	return nil
}
