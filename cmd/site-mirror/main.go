/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		var failed *sitesFailedError
		if errors.As(err, &failed) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
