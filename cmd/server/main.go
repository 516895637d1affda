package main

import (
	"github.com/dwarvesf/payment-listener/internal/server"
)

// @title Payment Listener API
// @version 1.0
// @description Order payment status and health of the on-chain payment listener.
// @BasePath /
func main() {
	server.Init()
}
