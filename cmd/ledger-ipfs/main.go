package main

import (
	"fmt"
	"os"

	"github.com/iotaledger/ledger-ipfs/pkg/toolset"
)

func main() {
	if !toolset.ShouldHandleTools() {
		fmt.Printf("Usage: %s tools <tool> [flags]\n", os.Args[0])
		os.Exit(1)
	}

	toolset.HandleTools()
}
