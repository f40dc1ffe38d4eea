// Package winrs provides Windows Remote Shell (WinRS) sessions.
//
// A Shell wraps a remote cmd.exe shell and a Process wraps one command in
// it. Both track their lifecycle locally so that use after Close fails
// without a round trip; the server remains the authority on whether an ID
// is still alive.
//
// Basic usage:
//
//	p := wsman.NewProtocol(endpoint, httpTransport)
//	shell, err := winrs.Open(ctx, p,
//	    winrs.WithWorkingDirectory("C:\\temp"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shell.Close(ctx)
//
//	proc, err := shell.Run(ctx, "dir", "/b")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(proc.Stdout()))
package winrs
