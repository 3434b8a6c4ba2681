package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/store"
)

var (
	extractStoreIndex int
	extractStoreID    string
	extractOut        string
)

var extractCmd = &cobra.Command{
	Use:   "extract [image-path]",
	Short: "Reconstruct a snapshot's logical volume image to a file",
	Long: `Reconstruct the full logical byte image of the volume as it existed at
one store's creation time, and write it to --out.

Examples:
  vshadowinfo extract --store 0 --out snapshot-0.img disk.raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().IntVar(&extractStoreIndex, "store", 0, "store index (0 is oldest)")
	extractCmd.Flags().StringVar(&extractStoreID, "store-id", "", "store identifier (GUID); cannot be combined with --store")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file path")
	extractCmd.MarkFlagRequired("out")
	extractCmd.MarkFlagsMutuallyExclusive("store", "store-id")
}

func runExtract(path string) error {
	v, err := openVolume(path)
	if err != nil {
		return err
	}
	defer v.Close()

	var s *store.Store
	if extractStoreID != "" {
		id, err := guid.ParseString(extractStoreID)
		if err != nil {
			return err
		}
		s, err = v.StoreByIdentifier(id)
		if err != nil {
			return err
		}
	} else {
		s, err = v.Store(extractStoreIndex)
		if err != nil {
			return err
		}
	}

	out, err := os.Create(extractOut)
	if err != nil {
		return err
	}
	defer out.Close()

	const chunkSize = 4 << 20
	buf := make([]byte, chunkSize)
	total := s.VolumeSize()
	var offset int64
	for uint64(offset) < total {
		n := len(buf)
		if remaining := total - uint64(offset); uint64(n) > remaining {
			n = int(remaining)
		}
		if _, err := s.ReadAt(buf[:n], offset); err != nil {
			return err
		}
		if _, err := out.Write(buf[:n]); err != nil {
			return err
		}
		offset += int64(n)
	}

	fmt.Printf("Wrote %s (%s) to %s\n", humanSize(total), s.Identifier().String(), extractOut)
	return nil
}
