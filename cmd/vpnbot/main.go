package main

import (
	"os"

	"github.com/sergeyzhinskiy/telegramvpnbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
