// Package winrm is a Windows Remote Management (WinRM) client: it opens
// remote cmd.exe shells over WS-Management, runs commands in them, streams
// their input and output, and tears them down again.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  client/          High-level API, config, audit events  │
//	├─────────────────────────────────────────────────────────┤
//	│  winrs/           Shell and Process lifecycles          │
//	├─────────────────────────────────────────────────────────┤
//	│  wsman/           Envelopes, serializer, operations     │
//	├─────────────────────────────────────────────────────────┤
//	│  wsman/transport  HTTP(S) POST                          │
//	│  wsman/auth       Basic, NTLM, Kerberos (SPNEGO)        │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	cfg := client.DefaultConfig()
//	cfg.Username = `CORP\administrator`
//	cfg.Password = "password"
//	cfg.AuthType = client.AuthNTLM
//	cfg.UseTLS = true
//
//	c, err := client.New("server.corp.example.com", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close(ctx)
//
//	result, err := c.Execute(ctx, "ipconfig", "/all")
//
// The winrm command in cmd/winrm wraps the client for use from a shell.
package winrm
