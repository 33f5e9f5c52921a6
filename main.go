package main

import (
	"shiftguard.io/infrastructure"
	"shiftguard.io/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
