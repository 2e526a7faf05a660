// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer
//
// cu300 - Grundfos CU300 GENIBus client
//
// A CLI tool for polling, controlling, and monitoring Grundfos pump
// controllers over serial, TCP, or a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/chr15toffer/GrundfosCU300/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
