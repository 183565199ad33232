// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package memo memoizes expensive producers, typically external API fetches
// made during a build, into a store.Store.
//
// Wrap returns a function that serves the stored value for a key while it is
// fresh and otherwise runs the producer, persists its JSON encoding, and
// returns the result. Freshness is the age of the stored entry compared with
// an optional timeout; without a timeout an entry lives until it is removed.
// Expired entries are only noticed, and deleted, when they are read again.
//
//	c := memo.New(store.NewDirStore(".cache/data"))
//	repos := memo.Wrap(c, "github-repos", fetchRepos, memo.WithTimeout(time.Hour))
//	list, err := repos(ctx)
package memo
