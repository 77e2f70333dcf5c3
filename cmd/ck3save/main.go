// Command ck3save is the CLI front-end around this module's core
// packages. It exposes three subcommands — melt, json, debug_save —
// over any CK3 save shape the library can classify.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
