// Package main hosts the qcflow CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls
// against the workflow services: job lifecycle moves, dimension plans,
// measurement recording, material and external-process tracking, exit-control
// sampling, error reporting, and directory maintenance. It centralizes
// configuration resolution, store opening, and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
