// Command geosync seeds and reconciles the geographic store from the GeoNames dumps.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
