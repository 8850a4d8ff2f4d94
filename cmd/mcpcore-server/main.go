// Command mcpcore-server is a reference stdio host for the engine: it
// loads configuration, wires logging/metrics/tracing, registers the demo
// tool/resource/prompt providers, and drives one connection over stdin/stdout.
package main

import "github.com/mcpcore/mcpcore-go/cmd/mcpcore-server/cmd"

func main() {
	cmd.Execute()
}
