// Command oxyanim inspects, bakes and plays back glTF skeletal animations without a window.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
