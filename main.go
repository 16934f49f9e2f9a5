package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"tmdb-finder-cli/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func versionString() string {
	if commit != "none" && commit != "" {
		return version + " (" + commit + ")"
	}
	return version
}

func main() {
	if err := fang.Execute(
		context.Background(),
		cmd.NewRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
