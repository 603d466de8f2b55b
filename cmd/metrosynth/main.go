// Command metrosynth compiles note notation, renders voices to WAV and
// plays them through the configured audio backend.
//
// Usage:
//
//	metrosynth [flags] <command> [args]
//
// Commands:
//
//	compile  - Print the notes of a notation string
//	render   - Render a voice, a melody or the metronome to a WAV file
//	play     - Play a voice or a melody
//	metro    - Run the metronome scene headless
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
