// Package client provides a high-level API for running commands on
// Windows hosts over WinRM.
//
// It wires the HTTP transport, authentication and wsman.Protocol together
// from a Config and runs each command in its own cmd shell.
//
// # Quick Start
//
//	cfg := client.DefaultConfig()
//	cfg.UseTLS = true
//	cfg.AuthType = client.AuthNTLM
//	cfg.Username = `CORP\administrator`
//	cfg.Password = "password"
//
//	c, err := client.New("server.corp.example.com", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close(ctx)
//
//	result, err := c.Execute(ctx, "ipconfig", "/all")
//
// Configuration can also be loaded from YAML with LoadConfigFile, which
// supports per-host overrides.
package client
