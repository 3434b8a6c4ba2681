package cli

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-vshadow/pkg/ioutil2/bytesource"
	"github.com/deploymenttheory/go-vshadow/pkg/volume"
)

// openVolume opens path as a local file and loads the VSS catalog found
// within it, honoring the persistent --volume-offset/--verbose/--quiet
// flags.
func openVolume(path string) (*volume.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	src := bytesource.NewReaderAtSource(f, info.Size())
	v, err := volume.Open(src, openOptions()...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return v, nil
}

func humanSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
