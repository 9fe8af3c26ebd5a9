// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdtd/rdtd/pkg/api"
)

// Version is the version of rdtd.
var Version = "unset"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of rdtd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rdtd version %s\n", Version)
	},
}

func init() {
	api.Version = Version
	RootCmd.AddCommand(versionCmd)
}
