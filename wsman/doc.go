// Package wsman implements the client side of the WinRM remote shell
// protocol: WS-Management SOAP 1.2 envelopes carrying the Windows Remote Shell
// (cmd) resource.
//
// The package has three layers:
//
//   - Envelope model: Envelope, Header and Body with the shell payloads.
//   - Serializer: Marshal and Unmarshal. Marshal declares on the envelope
//     root exactly the namespace prefixes the populated fields use, plus xsd
//     and xsi. Unmarshal returns a *Fault error when the body is a SOAP fault.
//   - Protocol: the shell and command lifecycle on top of a Transport.
//
// # Operations
//
//   - OpenShell: Create a cmd shell (WS-Transfer Create)
//   - RunCommand: Start a command in the shell
//   - SendCommandInput: Write to the command's stdin
//   - GetCommandState / PollCommandState / StreamCommandState: Receive output and state
//   - CloseCommand: Signal terminate
//   - CloseShell: Delete the shell (WS-Transfer Delete)
//   - Identify, GetConfig, EnumerateShells: discovery without a shell
//
// # Subpackages
//
//   - auth: Authentication handlers (Basic, NTLM, Negotiate/Kerberos)
//   - transport: HTTP/TLS transport layer
package wsman
