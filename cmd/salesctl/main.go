// Command salesctl migrates, imports and queries the sales store from the shell
package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/diogoqz/api-consulta-hotmart/cmd/salesctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
