// Command winrm runs commands on Windows hosts over WinRM.
//
// The password is read from the WINRM_PASSWORD environment variable or
// prompted for on the terminal.
//
// Usage:
//
//	winrm run -H web01 -u 'CORP\ops' --auth ntlm -- ipconfig /all
//	winrm identify -H web01,web02 -o json
//	winrm shells --config ~/.config/winrm.yaml
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smnsjas/go-winrm/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
