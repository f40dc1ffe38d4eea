// Package wsmantest provides an in-memory WinRM endpoint for tests.
//
// Server parses every request with wsman.Unmarshal, dispatches it by action
// and answers with envelopes written by wsman.Marshal. It can be used
// directly as a wsman.Transport or mounted on an httptest.Server.
package wsmantest

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/smnsjas/go-winrm/wsman"
)

// Script describes how the fake server runs a command.
type Script struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// RunningPolls is the number of Receive calls answered with a Running
	// state before the command completes.
	RunningPolls int

	// TimeoutPolls is the number of Receive calls answered with a w:TimedOut
	// fault before any output is produced.
	TimeoutPolls int

	// EchoStdin makes the command write its received stdin to stdout.
	EchoStdin bool
}

// Handler answers a request. Returning a nil envelope with a nil error
// yields an empty response body.
type Handler func(req *wsman.Envelope) (*wsman.Envelope, error)

// Request records one received request.
type Request struct {
	Action   string
	Envelope *wsman.Envelope
	Raw      []byte
}

type command struct {
	id       string
	script   Script
	receives int
	stdin    []byte
	done     bool
}

type shell struct {
	id       string
	opts     *wsman.Shell
	commands map[string]*command
}

// Server is a scripted WinRM endpoint with in-memory shells.
type Server struct {
	mu       sync.Mutex
	handlers map[string]Handler
	scripts  map[string]Script
	shells   map[string]*shell
	requests []Request
	nextID   int

	// OnRequest, if set, is called for every request before it is handled.
	OnRequest func(req *wsman.Envelope)
}

// NewServer returns a server implementing the shell lifecycle, Identify,
// the config Get and shell enumeration.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		scripts:  make(map[string]Script),
		shells:   make(map[string]*shell),
	}
	s.handlers[wsman.ActionCreate] = s.handleCreate
	s.handlers[wsman.ActionCommand] = s.handleCommand
	s.handlers[wsman.ActionSend] = s.handleSend
	s.handlers[wsman.ActionReceive] = s.handleReceive
	s.handlers[wsman.ActionSignal] = s.handleSignal
	s.handlers[wsman.ActionDelete] = s.handleDelete
	s.handlers[wsman.ActionIdentify] = s.handleIdentify
	s.handlers[wsman.ActionGet] = s.handleGet
	s.handlers[wsman.ActionEnumerate] = s.handleEnumerate
	return s
}

// Handle overrides the handler for action.
func (s *Server) Handle(action string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[action] = h
}

// Script sets how the command line command behaves when run.
func (s *Server) Script(commandLine string, sc Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[commandLine] = sc
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many requests carried action.
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Action == action {
			n++
		}
	}
	return n
}

// OpenShells returns the number of shells not yet deleted.
func (s *Server) OpenShells() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shells)
}

// Send implements wsman.Transport.
func (s *Server) Send(ctx context.Context, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, _, err := s.dispatch(body)
	return resp, err
}

// ServeHTTP implements http.Handler. Faults are answered with status 500.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, fault, err := s.dispatch(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/soap+xml;charset=UTF-8")
	if fault {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = w.Write(resp)
}

func (s *Server) dispatch(body []byte) ([]byte, bool, error) {
	req, err := wsman.Unmarshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("wsmantest: bad request: %w", err)
	}
	action := req.Header.ActionURI()
	if action == "" && req.Body != nil && req.Body.Identify != nil {
		action = wsman.ActionIdentify
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Action: action, Envelope: req, Raw: body})
	h := s.handlers[action]
	hook := s.OnRequest
	s.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if h == nil {
		return mustMarshal(NewFault(req, "s:Sender", "a:ActionNotSupported", 0, "unsupported action "+action)), true, nil
	}

	resp, err := h(req)
	if err != nil {
		return nil, false, err
	}
	if resp == nil {
		return nil, false, nil
	}
	return mustMarshal(resp), resp.Body != nil && resp.Body.Fault != nil, nil
}

func mustMarshal(env *wsman.Envelope) []byte {
	b, err := wsman.Marshal(env)
	if err != nil {
		panic(fmt.Sprintf("wsmantest: marshal response: %v", err))
	}
	return b
}

// NewResponse returns a response envelope for req with the given action and
// RelatesTo set to the request MessageID.
func NewResponse(req *wsman.Envelope, action string) *wsman.Envelope {
	env := wsman.NewEnvelope().
		WithAction(action).
		WithTo(wsman.AddressAnonymous).
		WithMessageID(fmt.Sprintf("uuid:%s-response", strings.TrimPrefix(req.Header.MessageID, "uuid:")))
	env.Header.RelatesTo = req.Header.MessageID
	return env
}

// NewFault returns a fault response for req.
func NewFault(req *wsman.Envelope, code, subcode string, wsmanCode uint32, reason string) *wsman.Envelope {
	env := NewResponse(req, "http://schemas.dmtf.org/wbem/wsman/1/wsman/fault")
	f := &wsman.SOAPFault{
		Code:   wsman.FaultCode{Value: code},
		Reason: wsman.FaultReason{Text: wsman.FaultText{Lang: "en-US", Value: reason}},
	}
	if subcode != "" {
		f.Code.Subcode = &wsman.FaultSubcode{Value: subcode}
	}
	if wsmanCode != 0 {
		f.Detail = &wsman.FaultDetail{WSManFault: &wsman.WSManFault{
			Code:    fmt.Sprint(wsmanCode),
			Machine: "fake-host",
			Message: reason,
		}}
	}
	env.Body.Fault = f
	return env
}

// TimedOutFault returns the fault WinRM sends when a Receive times out
// without output.
func TimedOutFault(req *wsman.Envelope) *wsman.Envelope {
	return NewFault(req, "s:Receiver", "w:TimedOut", wsman.WSManCodeOperationTimeout,
		"The WS-Management service cannot complete the operation within the time specified in OperationTimeout.")
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", s.nextID)
}

func (s *Server) lookupShell(req *wsman.Envelope) (*shell, *wsman.Envelope) {
	id, _ := req.Header.ShellID()
	sh, ok := s.shells[id]
	if !ok {
		return nil, NewFault(req, "s:Sender", "w:InvalidSelectors", 2150858843, "The request for the Windows Remote Shell with ShellId "+id+" failed because the shell was not found on the server.")
	}
	return sh, nil
}

func (s *Server) handleCreate(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := &shell{id: s.newID(), opts: req.Body.Shell, commands: make(map[string]*command)}
	s.shells[sh.id] = sh

	resp := NewResponse(req, wsman.ActionCreateResponse)
	resp.Body.ResourceCreated = &wsman.ResourceCreated{
		Address: req.Header.To,
		ReferenceParameters: &wsman.ReferenceParameters{
			ResourceURI: wsman.ResourceURICmd,
			SelectorSet: &wsman.SelectorSet{Selectors: []wsman.Selector{{Name: wsman.SelectorShellID, Value: sh.id}}},
		},
	}
	return resp, nil
}

func (s *Server) handleCommand(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, fault := s.lookupShell(req)
	if fault != nil {
		return fault, nil
	}
	line := req.Body.CommandLine
	if line == nil {
		return NewFault(req, "s:Sender", "w:SchemaValidationError", 0, "missing CommandLine"), nil
	}
	full := strings.TrimSpace(line.Command + " " + strings.Join(line.Arguments, " "))
	sc, ok := s.scripts[full]
	if !ok {
		sc = s.scripts[line.Command]
	}
	cmd := &command{id: s.newID(), script: sc}
	sh.commands[cmd.id] = cmd

	resp := NewResponse(req, wsman.ActionCommandResponse)
	resp.Body.CommandResponse = &wsman.CommandResponse{CommandID: cmd.id}
	return resp, nil
}

func (s *Server) handleSend(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, fault := s.lookupShell(req)
	if fault != nil {
		return fault, nil
	}
	if req.Body.Send == nil {
		return NewFault(req, "s:Sender", "w:SchemaValidationError", 0, "missing Send"), nil
	}
	for _, st := range req.Body.Send.Streams {
		cmd, ok := sh.commands[st.CommandID]
		if !ok {
			return NewFault(req, "s:Sender", "w:InvalidParameter", 0, "unknown command "+st.CommandID), nil
		}
		data, err := base64.StdEncoding.DecodeString(st.Content)
		if err != nil {
			return nil, err
		}
		cmd.stdin = append(cmd.stdin, data...)
	}
	return NewResponse(req, wsman.ActionSendResponse), nil
}

func (s *Server) handleReceive(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, fault := s.lookupShell(req)
	if fault != nil {
		return fault, nil
	}
	if req.Body.Receive == nil {
		return NewFault(req, "s:Sender", "w:SchemaValidationError", 0, "missing Receive"), nil
	}
	cmd, ok := sh.commands[req.Body.Receive.DesiredStream.CommandID]
	if !ok {
		return NewFault(req, "s:Sender", "w:InvalidParameter", 0, "unknown command"), nil
	}

	cmd.receives++
	if cmd.receives <= cmd.script.TimeoutPolls {
		return TimedOutFault(req), nil
	}

	resp := NewResponse(req, wsman.ActionReceiveResponse)
	rr := &wsman.ReceiveResponse{}
	resp.Body.ReceiveResponse = rr

	if cmd.receives <= cmd.script.TimeoutPolls+cmd.script.RunningPolls {
		rr.CommandState = &wsman.CommandStateElement{CommandID: cmd.id, State: wsman.CommandStateRunning}
		return resp, nil
	}

	stdout := cmd.script.Stdout
	if cmd.script.EchoStdin {
		stdout += string(cmd.stdin)
	}
	if stdout != "" {
		rr.Streams = append(rr.Streams, wsman.Stream{Name: "stdout", CommandID: cmd.id,
			Content: base64.StdEncoding.EncodeToString([]byte(stdout))})
	}
	if cmd.script.Stderr != "" {
		rr.Streams = append(rr.Streams, wsman.Stream{Name: "stderr", CommandID: cmd.id,
			Content: base64.StdEncoding.EncodeToString([]byte(cmd.script.Stderr))})
	}
	rr.Streams = append(rr.Streams,
		wsman.Stream{Name: "stdout", CommandID: cmd.id, End: true},
		wsman.Stream{Name: "stderr", CommandID: cmd.id, End: true})

	exit := cmd.script.ExitCode
	rr.CommandState = &wsman.CommandStateElement{CommandID: cmd.id, State: wsman.CommandStateDone, ExitCode: &exit}
	cmd.done = true
	return resp, nil
}

func (s *Server) handleSignal(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, fault := s.lookupShell(req)
	if fault != nil {
		return fault, nil
	}
	if req.Body.Signal == nil {
		return NewFault(req, "s:Sender", "w:SchemaValidationError", 0, "missing Signal"), nil
	}
	if _, ok := sh.commands[req.Body.Signal.CommandID]; !ok {
		return NewFault(req, "s:Sender", "w:InvalidParameter", 0, "unknown command"), nil
	}
	if req.Body.Signal.Code == wsman.SignalTerminate {
		delete(sh.commands, req.Body.Signal.CommandID)
	}
	return NewResponse(req, wsman.ActionSignalResponse), nil
}

func (s *Server) handleDelete(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, fault := s.lookupShell(req)
	if fault != nil {
		return fault, nil
	}
	delete(s.shells, sh.id)
	return NewResponse(req, wsman.ActionDeleteResponse), nil
}

func (s *Server) handleIdentify(req *wsman.Envelope) (*wsman.Envelope, error) {
	env := wsman.NewEnvelope()
	env.Body.IdentifyResponse = &wsman.IdentifyResponse{
		ProtocolVersion: "http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd",
		ProductVendor:   "Microsoft Corporation",
		ProductVersion:  "OS: 10.0.20348 SP: 0.0 Stack: 3.0",
		SecurityProfiles: &wsman.SecurityProfiles{Names: []string{
			"http://schemas.dmtf.org/wbem/wsman/1/wsman/secprofile/http/spnego-kerberos",
		}},
	}
	return env, nil
}

func (s *Server) handleGet(req *wsman.Envelope) (*wsman.Envelope, error) {
	if req.Header.ResourceURI == nil || req.Header.ResourceURI.Value != wsman.ResourceURIConfig {
		return NewFault(req, "s:Sender", "w:DestinationUnreachable", 0, "unknown resource"), nil
	}
	resp := NewResponse(req, wsman.ActionGetResponse)
	resp.Body.Config = &wsman.ServiceConfig{
		MaxEnvelopeSizeKB:   500,
		MaxTimeoutMS:        60000,
		MaxBatchItems:       32000,
		MaxProviderRequests: 4294967295,
	}
	return resp, nil
}

func (s *Server) handleEnumerate(req *wsman.Envelope) (*wsman.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := NewResponse(req, wsman.ActionEnumerateResponse)
	items := &wsman.Items{}
	for _, id := range slices.Sorted(maps.Keys(s.shells)) {
		sh := s.shells[id]
		entry := wsman.Shell{
			ShellID:     sh.id,
			ResourceURI: wsman.ResourceURICmd,
			Owner:       "fake\\user",
			State:       "Connected",
		}
		if sh.opts != nil {
			entry.InputStreams = sh.opts.InputStreams
			entry.OutputStreams = sh.opts.OutputStreams
		}
		items.Shells = append(items.Shells, entry)
	}
	resp.Body.EnumerateResponse = &wsman.EnumerateResponse{
		Items:         items,
		EndOfSequence: &wsman.Empty{},
	}
	return resp, nil
}
