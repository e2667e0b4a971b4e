// Companion runs the avatar affect engine.
//
//	companion serve      run the engine with the web API and websockets
//	companion simulate   run a scripted headless session and print snapshots
//	companion version    print the build version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
