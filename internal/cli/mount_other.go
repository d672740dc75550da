//go:build !linux

package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func runMount(cmd *cobra.Command, args []string) error {
	return errors.New("mounting requires Linux FUSE support")
}
