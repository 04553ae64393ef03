package main

import "github.com/KaramelBytes/cepv-cli/cmd"

func main() {
	cmd.Execute()
}
