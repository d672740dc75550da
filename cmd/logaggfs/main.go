// logaggfs mounts a passthrough filesystem that copies writes to tracked log
// files into size-rotated capture segments.
package main

import "github.com/deep-compute/logaggfs/internal/cli"

func main() {
	cli.Execute()
}
