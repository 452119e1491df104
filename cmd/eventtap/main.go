// Command eventtap runs the subscription daemon.
//
// Every configured source (Pub/Sub subscriptions, PostgreSQL channels, a bucket
// notification, a watched page, an optional headless tab, and a heartbeat) is
// registered on its own collector under one root collector. GET
// /v1/collectors lists them; POST /v1/collectors/{id}/flush releases one; a
// signal releases the root and therefore everything.
//
// Run locally: go run ./cmd/eventtap run --config eventtap.yaml
package main

import "github.com/JakeFAU/disposer/cmd"

func main() {
	cmd.Execute()
}
