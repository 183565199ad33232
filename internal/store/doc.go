// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package store provides the key-value persistence used by the memoizer. An
// entry's age is derived from when it was last written, never stored inside
// the entry. DirStore keeps one <key>.json file per key under a root
// directory; MemStore keeps entries in memory and is meant for tests.
package store
