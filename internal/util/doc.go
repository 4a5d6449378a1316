// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the devroot packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - StringWidth, PadWidth: terminal column arithmetic
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateWidth(longTitle, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
