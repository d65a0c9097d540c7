package main

import (
	"github.com/robotalks/flipbot/pkg/cli/sh"
	"github.com/robotalks/flipbot/pkg/env"

	_ "github.com/robotalks/flipbot/pkg/cli/cmds/sim"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
