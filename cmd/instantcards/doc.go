// Package main hosts the instantcards CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot processing, the daemon
// runtime, job inspection, and configuration scaffolding. It centralizes
// configuration resolution so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
