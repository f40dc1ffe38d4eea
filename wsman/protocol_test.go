package wsman_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smnsjas/go-winrm/internal/wsmantest"
	"github.com/smnsjas/go-winrm/wsman"
)

const testEndpoint = "http://server:5985/wsman"

func newTestProtocol(t *testing.T, srv *wsmantest.Server, opts ...wsman.ProtocolOption) *wsman.Protocol {
	t.Helper()
	opts = append([]wsman.ProtocolOption{wsman.WithIDProvider(&wsman.IncrementingProvider{})}, opts...)
	return wsman.NewProtocol(testEndpoint, srv, opts...)
}

func actions(srv *wsmantest.Server) []string {
	var out []string
	for _, r := range srv.Requests() {
		out = append(out, r.Action)
	}
	return out
}

// TestProtocol_Lifecycle runs a command from shell creation to deletion.
func TestProtocol_Lifecycle(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Script("findstr x", wsmantest.Script{Stderr: "warn", ExitCode: 1, EchoStdin: true})
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, err := p.OpenShell(ctx, wsman.ShellOptions{})
	if err != nil {
		t.Fatalf("OpenShell failed: %v", err)
	}
	if shellID == "" {
		t.Fatal("OpenShell returned an empty shell ID")
	}

	commandID, err := p.RunCommand(ctx, shellID, "findstr", []string{"x"}, 0)
	if err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}

	if err := p.SendCommandInput(ctx, shellID, commandID, []byte("xyz\r\n"), true); err != nil {
		t.Fatalf("SendCommandInput failed: %v", err)
	}

	state, err := p.PollCommandState(ctx, shellID, commandID, 0)
	if err != nil {
		t.Fatalf("PollCommandState failed: %v", err)
	}
	if !state.Done || state.ExitCode != 1 {
		t.Errorf("state = done:%v exit:%d, want done:true exit:1", state.Done, state.ExitCode)
	}
	if string(state.Stdout) != "xyz\r\n" {
		t.Errorf("Stdout = %q, want %q", state.Stdout, "xyz\r\n")
	}
	if string(state.Stderr) != "warn" {
		t.Errorf("Stderr = %q, want %q", state.Stderr, "warn")
	}

	if err := p.CloseCommand(ctx, shellID, commandID); err != nil {
		t.Fatalf("CloseCommand failed: %v", err)
	}
	if err := p.CloseShell(ctx, shellID); err != nil {
		t.Fatalf("CloseShell failed: %v", err)
	}
	if srv.OpenShells() != 0 {
		t.Errorf("OpenShells() = %d, want 0", srv.OpenShells())
	}

	want := []string{
		wsman.ActionCreate, wsman.ActionCommand, wsman.ActionSend,
		wsman.ActionReceive, wsman.ActionSignal, wsman.ActionDelete,
	}
	if got := actions(srv); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", got, want)
	}
}

// TestProtocol_RequestShapes checks headers and bodies of the lifecycle requests.
func TestProtocol_RequestShapes(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, err := p.OpenShell(ctx, wsman.ShellOptions{
		WorkingDirectory: `C:\Temp`,
		Environment:      map[string]string{"ZED": "1", "ALPHA": "2"},
		IdleTimeout:      10 * time.Minute,
		Codepage:         65001,
		NoProfile:        true,
	})
	if err != nil {
		t.Fatalf("OpenShell failed: %v", err)
	}
	commandID, err := p.RunCommand(ctx, shellID, "cmd.exe", []string{"/c", "echo hi"}, 0)
	if err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	if err := p.SendCommandInput(ctx, shellID, commandID, []byte("data"), false); err != nil {
		t.Fatalf("SendCommandInput failed: %v", err)
	}

	reqs := srv.Requests()
	create := reqs[0].Envelope

	if create.Header.MessageID != "uuid:00000000-0000-0000-0000-000000000001" {
		t.Errorf("MessageID = %q, want the first sequential ID", create.Header.MessageID)
	}
	if create.Header.To != testEndpoint {
		t.Errorf("To = %q, want %q", create.Header.To, testEndpoint)
	}
	if create.Header.OperationTimeout != "PT20S" {
		t.Errorf("OperationTimeout = %q, want PT20S", create.Header.OperationTimeout)
	}
	if create.Header.MaxEnvelopeSize == nil || create.Header.MaxEnvelopeSize.Value != wsman.DefaultMaxEnvelopeSize {
		t.Errorf("MaxEnvelopeSize = %+v, want %d", create.Header.MaxEnvelopeSize, wsman.DefaultMaxEnvelopeSize)
	}
	if create.Header.Locale == nil || create.Header.Locale.Lang != "en-US" {
		t.Errorf("Locale = %+v, want en-US", create.Header.Locale)
	}
	if v, _ := create.Header.OptionValue(wsman.OptionNoProfile); v != "TRUE" {
		t.Errorf("WINRS_NOPROFILE = %q, want TRUE", v)
	}
	if v, _ := create.Header.OptionValue(wsman.OptionCodepage); v != "65001" {
		t.Errorf("WINRS_CODEPAGE = %q, want 65001", v)
	}

	sh := create.Body.Shell
	if sh == nil {
		t.Fatal("Create body has no Shell")
	}
	if sh.InputStreams != "stdin" || sh.OutputStreams != "stdout stderr" {
		t.Errorf("streams = %q/%q, want stdin/stdout stderr", sh.InputStreams, sh.OutputStreams)
	}
	if sh.IdleTimeOut != "PT600S" {
		t.Errorf("IdleTimeOut = %q, want PT600S", sh.IdleTimeOut)
	}
	if sh.WorkingDirectory != `C:\Temp` {
		t.Errorf("WorkingDirectory = %q", sh.WorkingDirectory)
	}
	if sh.Environment == nil || len(sh.Environment.Variables) != 2 || sh.Environment.Variables[0].Name != "ALPHA" {
		t.Errorf("Environment = %+v, want ALPHA then ZED", sh.Environment)
	}

	command := reqs[1].Envelope
	if id, _ := command.Header.ShellID(); id != shellID {
		t.Errorf("Command ShellId selector = %q, want %q", id, shellID)
	}
	if v, _ := command.Header.OptionValue(wsman.OptionConsoleModeStdin); v != "TRUE" {
		t.Errorf("WINRS_CONSOLEMODE_STDIN = %q, want TRUE", v)
	}
	if v, _ := command.Header.OptionValue(wsman.OptionSkipCmdShell); v != "FALSE" {
		t.Errorf("WINRS_SKIP_CMD_SHELL = %q, want FALSE", v)
	}
	if args := command.Body.CommandLine.Arguments; len(args) != 2 || args[1] != "echo hi" {
		t.Errorf("Arguments = %q, want [/c, echo hi]", args)
	}

	send := reqs[2].Envelope.Body.Send
	if send == nil || len(send.Streams) != 1 {
		t.Fatalf("Send body = %+v", send)
	}
	if st := send.Streams[0]; st.Name != "stdin" || st.CommandID != commandID || st.End || st.Content != "ZGF0YQ==" {
		t.Errorf("stream = %+v", st)
	}

	raw := string(reqs[0].Raw)
	if strings.Contains(raw, "xmlns:n=") || strings.Contains(raw, "xmlns:cfg=") {
		t.Errorf("Create request declares unused namespaces:\n%s", raw)
	}
}

// TestProtocol_PollCountsReceives verifies N running answers then Done take
// exactly N+1 Receive calls.
func TestProtocol_PollCountsReceives(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		srv := wsmantest.NewServer()
		srv.Script("slow", wsmantest.Script{Stdout: "ok", RunningPolls: n})
		p := newTestProtocol(t, srv)
		ctx := context.Background()

		shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
		commandID, _ := p.RunCommand(ctx, shellID, "slow", nil, 0)

		state, err := p.PollCommandState(ctx, shellID, commandID, time.Minute)
		if err != nil {
			t.Fatalf("n=%d: PollCommandState failed: %v", n, err)
		}
		if !state.Done {
			t.Errorf("n=%d: command not done", n)
		}
		if got := srv.Calls(wsman.ActionReceive); got != n+1 {
			t.Errorf("n=%d: %d Receive calls, want %d", n, got, n+1)
		}
	}
}

// TestProtocol_PollTimedOutFaultsContinue verifies TimedOut faults are
// treated as a running command.
func TestProtocol_PollTimedOutFaultsContinue(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Script("wait", wsmantest.Script{Stdout: "done", TimeoutPolls: 2})
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "wait", nil, 0)

	st, err := p.GetCommandState(ctx, shellID, commandID, 0)
	if err != nil {
		t.Fatalf("GetCommandState failed: %v", err)
	}
	if st.Done || st.State != wsman.CommandStateRunning || len(st.Stdout) != 0 {
		t.Errorf("timed out receive = %+v, want running without output", st)
	}

	state, err := p.PollCommandState(ctx, shellID, commandID, time.Minute)
	if err != nil {
		t.Fatalf("PollCommandState failed: %v", err)
	}
	if string(state.Stdout) != "done" {
		t.Errorf("Stdout = %q, want done", state.Stdout)
	}
	if got := srv.Calls(wsman.ActionReceive); got != 3 {
		t.Errorf("%d Receive calls, want 3", got)
	}
}

// TestProtocol_PollDeadline verifies no Receive is issued after the deadline.
func TestProtocol_PollDeadline(t *testing.T) {
	clock := wsman.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	srv := wsmantest.NewServer()
	srv.Script("forever", wsmantest.Script{RunningPolls: 1000})
	srv.OnRequest = func(req *wsman.Envelope) {
		if req.Header.ActionURI() == wsman.ActionReceive {
			clock.Advance(time.Second)
		}
	}
	p := newTestProtocol(t, srv, wsman.WithClock(clock))
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "forever", nil, 0)

	_, err := p.PollCommandState(ctx, shellID, commandID, 3*time.Second)
	if !errors.Is(err, wsman.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	var terr *wsman.TimeoutError
	if !errors.As(err, &terr) || terr.Calls != 3 {
		t.Errorf("TimeoutError = %+v, want 3 calls", terr)
	}
	if got := srv.Calls(wsman.ActionReceive); got != 3 {
		t.Errorf("%d Receive calls, want 3", got)
	}

	var timeouts []string
	for _, r := range srv.Requests() {
		if r.Action == wsman.ActionReceive {
			timeouts = append(timeouts, r.Envelope.Header.OperationTimeout)
		}
	}
	if strings.Join(timeouts, ",") != "PT3S,PT2S,PT1S" {
		t.Errorf("Receive OperationTimeouts = %v, want capped at the remaining time", timeouts)
	}
}

// TestProtocol_PollFaultStops verifies a non-continuation fault aborts the
// poll without retry.
func TestProtocol_PollFaultStops(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Handle(wsman.ActionReceive, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		return wsmantest.NewFault(req, "s:Sender", "w:InvalidSelectors", 2150858843, "the shell was not found"), nil
	})
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "dir", nil, 0)

	_, err := p.PollCommandState(ctx, shellID, commandID, time.Minute)
	var fault *wsman.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want *wsman.Fault", err)
	}
	if !fault.IsShellNotFound() || fault.WSManCode != 2150858843 {
		t.Errorf("fault = %+v", fault)
	}
	if got := srv.Calls(wsman.ActionReceive); got != 1 {
		t.Errorf("%d Receive calls, want 1", got)
	}
}

// TestProtocol_PollContextCanceled verifies cancellation stops the loop.
func TestProtocol_PollContextCanceled(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Script("forever", wsmantest.Script{RunningPolls: 1000})
	p := newTestProtocol(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "forever", nil, 0)

	srv.OnRequest = func(req *wsman.Envelope) {
		if req.Header.ActionURI() == wsman.ActionReceive {
			cancel()
		}
	}

	_, err := p.PollCommandState(ctx, shellID, commandID, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := srv.Calls(wsman.ActionReceive); got != 1 {
		t.Errorf("%d Receive calls, want 1", got)
	}
}

// TestProtocol_StreamCommandState verifies each Receive result reaches the
// callback and that a callback error ends the poll.
func TestProtocol_StreamCommandState(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Script("build", wsmantest.Script{Stdout: "built", RunningPolls: 2})
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "build", nil, 0)

	var seen []string
	state, err := p.StreamCommandState(ctx, shellID, commandID, time.Minute, func(st *wsman.CommandState) error {
		seen = append(seen, st.State)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamCommandState failed: %v", err)
	}
	if !state.Done || string(state.Stdout) != "built" {
		t.Errorf("state = %+v", state)
	}
	want := []string{wsman.CommandStateRunning, wsman.CommandStateRunning, wsman.CommandStateDone}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("callback states = %v, want %v", seen, want)
	}

	errStop := errors.New("writer closed")
	commandID, _ = p.RunCommand(ctx, shellID, "build", nil, 0)
	before := srv.Calls(wsman.ActionReceive)
	_, err = p.StreamCommandState(ctx, shellID, commandID, time.Minute, func(*wsman.CommandState) error {
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("err = %v, want callback error", err)
	}
	if got := srv.Calls(wsman.ActionReceive) - before; got != 1 {
		t.Errorf("%d Receive calls after callback error, want 1", got)
	}
}

// TestProtocol_PerCallTimeout verifies an explicit timeout applies to one
// request only.
func TestProtocol_PerCallTimeout(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	if _, err := p.RunCommand(ctx, shellID, "a", nil, 90*time.Second); err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	if _, err := p.RunCommand(ctx, shellID, "b", nil, 0); err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}

	reqs := srv.Requests()
	if got := reqs[1].Envelope.Header.OperationTimeout; got != "PT90S" {
		t.Errorf("first command OperationTimeout = %q, want PT90S", got)
	}
	if got := reqs[2].Envelope.Header.OperationTimeout; got != "PT20S" {
		t.Errorf("second command OperationTimeout = %q, want PT20S", got)
	}
	if p.Config().OperationTimeout != wsman.DefaultOperationTimeout {
		t.Errorf("config mutated: %v", p.Config().OperationTimeout)
	}
}

// TestProtocol_ConcurrentCommands verifies concurrent commands in one shell
// get distinct command and message IDs.
func TestProtocol_ConcurrentCommands(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, err := p.OpenShell(ctx, wsman.ShellOptions{})
	if err != nil {
		t.Fatalf("OpenShell failed: %v", err)
	}

	const n = 10
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = p.RunCommand(ctx, shellID, "hostname", nil, 0)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("RunCommand %d failed: %v", i, errs[i])
		}
		if seen[id] {
			t.Errorf("duplicate command ID %s", id)
		}
		seen[id] = true
	}

	messageIDs := make(map[string]bool)
	for _, r := range srv.Requests() {
		if messageIDs[r.Envelope.Header.MessageID] {
			t.Errorf("duplicate MessageID %s", r.Envelope.Header.MessageID)
		}
		messageIDs[r.Envelope.Header.MessageID] = true
	}
}

// TestProtocol_Identify verifies Identify works without a shell and sends an
// empty header.
func TestProtocol_Identify(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)

	resp, err := p.Identify(context.Background())
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if resp.ProductVendor != "Microsoft Corporation" {
		t.Errorf("ProductVendor = %q", resp.ProductVendor)
	}
	if resp.SecurityProfiles == nil || len(resp.SecurityProfiles.Names) != 1 {
		t.Errorf("SecurityProfiles = %+v", resp.SecurityProfiles)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].Action != wsman.ActionIdentify {
		t.Fatalf("requests = %v, want a single Identify", actions(srv))
	}
	if srv.OpenShells() != 0 {
		t.Error("Identify opened a shell")
	}
	raw := string(reqs[0].Raw)
	if !strings.Contains(raw, "<s:Header></s:Header>") || strings.Contains(raw, "a:Action") {
		t.Errorf("Identify header should be empty:\n%s", raw)
	}
}

// TestProtocol_MessageMismatch verifies responses for other messages are rejected.
func TestProtocol_MessageMismatch(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Handle(wsman.ActionCreate, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		resp := wsmantest.NewResponse(req, wsman.ActionCreateResponse)
		resp.Header.RelatesTo = "uuid:someone-else"
		resp.Body.Shell = &wsman.Shell{ShellID: "S1"}
		return resp, nil
	})
	p := newTestProtocol(t, srv)

	_, err := p.OpenShell(context.Background(), wsman.ShellOptions{})
	if !errors.Is(err, wsman.ErrMessageMismatch) {
		t.Fatalf("err = %v, want ErrMessageMismatch", err)
	}
}

// TestProtocol_ShellIDFallback verifies the ShellId is read from rsp:Shell
// when the response has no ResourceCreated selector.
func TestProtocol_ShellIDFallback(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Handle(wsman.ActionCreate, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		resp := wsmantest.NewResponse(req, wsman.ActionCreateResponse)
		resp.Body.Shell = &wsman.Shell{ShellID: "FALLBACK-1"}
		return resp, nil
	})
	p := newTestProtocol(t, srv)

	id, err := p.OpenShell(context.Background(), wsman.ShellOptions{})
	if err != nil {
		t.Fatalf("OpenShell failed: %v", err)
	}
	if id != "FALLBACK-1" {
		t.Errorf("shell ID = %q, want FALLBACK-1", id)
	}
}

// TestProtocol_MissingShellID verifies a Create response without an ID fails.
func TestProtocol_MissingShellID(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Handle(wsman.ActionCreate, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		return wsmantest.NewResponse(req, wsman.ActionCreateResponse), nil
	})
	p := newTestProtocol(t, srv)

	_, err := p.OpenShell(context.Background(), wsman.ShellOptions{})
	if !errors.Is(err, wsman.ErrMissingShellID) {
		t.Fatalf("err = %v, want ErrMissingShellID", err)
	}
}

type failingTransport struct{ err error }

func (f failingTransport) Send(context.Context, []byte) ([]byte, error) { return nil, f.err }

// TestProtocol_TransportError verifies transport failures are wrapped.
func TestProtocol_TransportError(t *testing.T) {
	cause := errors.New("connection reset")
	p := wsman.NewProtocol(testEndpoint, failingTransport{err: cause})

	_, err := p.OpenShell(context.Background(), wsman.ShellOptions{})
	var terr *wsman.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *wsman.TransportError", err)
	}
	if terr.Action != wsman.ActionCreate || !errors.Is(err, cause) {
		t.Errorf("TransportError = %+v", terr)
	}
}

// TestProtocol_CloseShellFault verifies faults from Delete propagate.
func TestProtocol_CloseShellFault(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)

	err := p.CloseShell(context.Background(), "NO-SUCH-SHELL")
	var fault *wsman.Fault
	if !errors.As(err, &fault) || !fault.IsShellNotFound() {
		t.Fatalf("err = %v, want shell-not-found fault", err)
	}
}

// TestProtocol_GetConfig verifies the service configuration is parsed.
func TestProtocol_GetConfig(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)

	cfg, err := p.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.MaxEnvelopeSizeKB != 500 || cfg.MaxTimeoutMS != 60000 || cfg.MaxProviderRequests != 4294967295 {
		t.Errorf("config = %+v", cfg)
	}
	if got := srv.Requests()[0].Envelope.Header.ResourceURI.Value; got != wsman.ResourceURIConfig {
		t.Errorf("ResourceURI = %q", got)
	}
}

// TestProtocol_EnumerateShells verifies enumeration follows Pull responses.
func TestProtocol_EnumerateShells(t *testing.T) {
	srv := wsmantest.NewServer()
	srv.Handle(wsman.ActionEnumerate, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		resp := wsmantest.NewResponse(req, wsman.ActionEnumerateResponse)
		resp.Body.EnumerateResponse = &wsman.EnumerateResponse{
			EnumerationContext: "ctx-1",
			Items:              &wsman.Items{Shells: []wsman.Shell{{ShellID: "S1"}}},
		}
		return resp, nil
	})
	srv.Handle(wsman.ActionPull, func(req *wsman.Envelope) (*wsman.Envelope, error) {
		resp := wsmantest.NewResponse(req, wsman.ActionPullResponse)
		resp.Body.PullResponse = &wsman.PullResponse{
			Items:         &wsman.Items{Shells: []wsman.Shell{{ShellID: "S2"}, {ShellID: "S3"}}},
			EndOfSequence: &wsman.Empty{},
		}
		return resp, nil
	})
	p := newTestProtocol(t, srv)

	shells, err := p.EnumerateShells(context.Background())
	if err != nil {
		t.Fatalf("EnumerateShells failed: %v", err)
	}
	if len(shells) != 3 || shells[2].ShellID != "S3" {
		t.Errorf("shells = %+v", shells)
	}
	pull := srv.Requests()[1].Envelope.Body.Pull
	if pull == nil || pull.EnumerationContext != "ctx-1" {
		t.Errorf("Pull = %+v, want context ctx-1", pull)
	}
}

// TestProtocol_SignalCtrlC verifies arbitrary signal codes are sent.
func TestProtocol_SignalCtrlC(t *testing.T) {
	srv := wsmantest.NewServer()
	p := newTestProtocol(t, srv)
	ctx := context.Background()

	shellID, _ := p.OpenShell(ctx, wsman.ShellOptions{})
	commandID, _ := p.RunCommand(ctx, shellID, "ping", []string{"-t", "host"}, 0)

	if err := p.SignalCommand(ctx, shellID, commandID, wsman.SignalCtrlC); err != nil {
		t.Fatalf("SignalCommand failed: %v", err)
	}
	reqs := srv.Requests()
	sig := reqs[len(reqs)-1].Envelope.Body.Signal
	if sig == nil || sig.Code != wsman.SignalCtrlC || sig.CommandID != commandID {
		t.Errorf("Signal = %+v", sig)
	}
}
