package main

import "github.com/robotalks/uart2json/pkg/cli/sh"

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
