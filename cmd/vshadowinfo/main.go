// Command vshadowinfo is a read-only inspector for Volume Shadow Copy
// Service snapshots embedded in an NTFS volume image.
package main

import "github.com/deploymenttheory/go-vshadow/internal/cli"

func main() {
	cli.Execute()
}
