// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
)

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pacroute",
		Short: "A roaming PAC forward proxy",
	}

	rootCmd.AddCommand(
		runCommand(),
		versionCommand(),
	)

	return rootCmd
}
