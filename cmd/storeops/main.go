package main

import (
	"fmt"
	"os"

	"github.com/small-frappuccino/storeops/pkg/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "storeops:", err)
		os.Exit(1)
	}
}
