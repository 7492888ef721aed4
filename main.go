package main

import (
	"github.com/mj1618/swipegen/cmd"

	// Registers the adb device backend.
	_ "github.com/mj1618/swipegen/internal/platform/adb"
)

func main() {
	cmd.Execute()
}
