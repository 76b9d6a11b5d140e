// Package main is the single-binary entrypoint for mindpath, a wellness
// progression engine: exercises earn XP, levels, streaks and achievements.
package main

import "github.com/mindpath-app/mindpath/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
