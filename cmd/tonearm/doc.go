// Package main hosts the tonearm CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration loading, logging setup,
// and the reconcile pipeline behind user-facing commands. Keep this package
// lean: add new functionality by extending the internal packages first,
// then surface it through dedicated commands or flags here.
package main
