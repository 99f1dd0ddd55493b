package main

import (
	"errors"
	"fmt"
	"os"
)

// exitEnforced is the exit status when the policy enforcement block is hit.
const exitEnforced = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errPolicyEnforced) {
			os.Exit(exitEnforced)
		}
		os.Exit(1)
	}
}
