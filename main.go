package main

import (
	"example.com/fieldops/services/delivery/cmd"
)

func main() {
	cmd.Execute()
}
