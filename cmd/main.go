package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	c := &cli{}
	err := c.rootCommand().ExecuteContext(context.Background())
	c.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
