// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Novaprobe - Novastar LED Controller Monitor
//
// A CLI tool and polling service for Novastar sender and receiver cards
// over serial or a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/novaprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
