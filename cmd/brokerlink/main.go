package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	"k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/brokerlink/cmd/brokerlink/app"
)

func main() {
	ctx := server.SetupSignalContext()
	if err := app.NewBrokerlinkCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
