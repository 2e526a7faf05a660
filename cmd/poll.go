// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the configured measurement set once",
	Long: `Connect to the device, perform the GENIBus handshake, read the
configured measurement set, and print the decoded values.

Measurements the device reports as unavailable are listed as such rather
than shown with placeholder values.`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	engine, err := connectedEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Disconnect()

	values, err := engine.PollData(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n\n", connectionInfo())

	catalog := genibus.DefaultCatalog()
	names := append([]string(nil), cfg.Poll.Measurements...)
	sort.Strings(names)
	for _, name := range names {
		unit := ""
		if dp, err := catalog.Lookup(cfg.Protocol.Family, genibus.ClassMeasuredData, name); err == nil {
			unit = dp.Unit
		}
		if v, ok := values[name]; ok {
			fmt.Printf("  %-12s %10.2f %s\n", name, v, unit)
		} else {
			fmt.Printf("  %-12s %10s\n", name, "n/a")
		}
	}
	return nil
}
