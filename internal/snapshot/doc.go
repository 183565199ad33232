// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package snapshot copies the entries of a local store to and from an S3
// prefix, so a CI build can start with the cache the previous build left
// behind. Entry ages survive the round trip.
package snapshot
