package main

import (
	"context"
	"cpkit/cmd/cpkit/commands"
	"cpkit/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
