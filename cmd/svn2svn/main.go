// Command svn2svn replays one SVN repository's history into another,
// preserving logical ancestry across renames, copies, and merges.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
