// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides flag parsing and the line mode front end for devroot.
//
// # Key Types
//
//   - Args: Parsed command-line flags (--config, --model, --set, --plain)
//   - ArgParser: Generic flag parser used by Parse
//   - ChatCLI: Line mode conversation over a session.Session
//   - Printer: Session event handler that prints reveal frames
//
// # Usage
//
//	args, err := cli.Parse(os.Args[1:])
//	...
//	printer := cli.NewPrinter(os.Stdout, "DevRoot AI")
//	sess := session.New(completer, cfg, session.WithEventHandler(printer.Handle))
//	repl := cli.NewChatCLI(sess, printer, cli.NewLinerReader(), cli.Options{})
//	err = repl.Run(ctx)
package cli
