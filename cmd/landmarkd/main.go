// Command landmarkd serves nearby landmarks aggregated from the MediaWiki
// geosearch API through a two-tier cache.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
