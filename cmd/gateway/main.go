package main

import "flightgate.dev/pkg/gateway"

func main() {
	gateway.New().Run()
}
