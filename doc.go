// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// buildmemo is the command line tool for inspecting and managing the build
// memo cache. It wires the CLI, delegates to internal packages, and serves as
// the entry point.
package main
