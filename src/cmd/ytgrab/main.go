package main

import (
	"fmt"
	"os"
)

func main() {
	s := &rootState{stdout: os.Stdout}
	err := newRootCommand(s).Execute()
	s.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
