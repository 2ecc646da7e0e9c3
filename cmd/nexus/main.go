package main

import "github.com/kumarharshit0413/Nexus/internal/cli"

func main() {
	cli.Execute()
}
