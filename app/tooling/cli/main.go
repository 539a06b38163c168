// This program is the operator CLI for a naivechain node.
package main

import "github.com/ardanlabs/naivechain/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}
