// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output filters, sorts and emits row datasets as text tables, json
// or yaml for the CLI commands.
package output
