package main

import (
	"dacalc/pkg/config"
	"dacalc/process/sanitize"
)

func main() {
	config.LoadDotEnv(".env")
	sanitize.Run()
}
