package main

import (
	"salesledger/cmd/salesledger/commands"
	"salesledger/internal/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
