package wsman

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testEnvelope() *Envelope {
	return NewEnvelope().
		WithTo("http://server:5985/wsman").
		WithReplyTo(AddressAnonymous).
		WithMaxEnvelopeSize(153600).
		WithMessageID("uuid:00000000-0000-0000-0000-000000000001").
		WithLocale("en-US").
		WithDataLocale("en-US").
		WithOperationTimeout("PT20S").
		WithResourceURI(ResourceURICmd).
		WithAction(ActionCommand).
		WithSelector(SelectorShellID, "SHELL-1").
		WithOption(OptionConsoleModeStdin, "TRUE")
}

// TestMarshal_DeclaresOnlyUsedNamespaces verifies that only namespaces of
// populated fields are declared, plus xsd and xsi.
func TestMarshal_DeclaresOnlyUsedNamespaces(t *testing.T) {
	env := NewEnvelope().WithAction(ActionDelete).WithTo("http://server/wsman")

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xmlStr := string(data)

	for _, want := range []string{
		`xmlns:xsd="` + NsXsd + `"`,
		`xmlns:xsi="` + NsXsi + `"`,
		`xmlns:s="` + NsSoap + `"`,
		`xmlns:a="` + NsAddressing + `"`,
	} {
		if !strings.Contains(xmlStr, want) {
			t.Errorf("missing declaration %s in:\n%s", want, xmlStr)
		}
	}
	for _, unwanted := range []string{"xmlns:w=", "xmlns:p=", "xmlns:rsp=", "xmlns:n=", "xmlns:x=", "xmlns:cfg="} {
		if strings.Contains(xmlStr, unwanted) {
			t.Errorf("unexpected declaration %s in:\n%s", unwanted, xmlStr)
		}
	}
	if strings.Contains(xmlStr, `xmlns="`) {
		t.Errorf("default namespace declaration leaked into output:\n%s", xmlStr)
	}
	if !strings.HasPrefix(xmlStr, "<s:Envelope ") {
		t.Errorf("output should start with the s:Envelope root, got %q", xmlStr[:min(40, len(xmlStr))])
	}
}

// TestMarshal_PrefixedElements verifies prefixes and mustUnderstand attributes.
func TestMarshal_PrefixedElements(t *testing.T) {
	env := testEnvelope()
	env.Body.CommandLine = &CommandLine{Command: "ipconfig", Arguments: []string{"/all", "/v"}}

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xmlStr := string(data)

	checks := []string{
		`<a:Action s:mustUnderstand="true">` + ActionCommand + `</a:Action>`,
		`<w:ResourceURI s:mustUnderstand="true">` + ResourceURICmd + `</w:ResourceURI>`,
		`<w:MaxEnvelopeSize s:mustUnderstand="true">153600</w:MaxEnvelopeSize>`,
		`<w:Locale s:mustUnderstand="false" xml:lang="en-US"></w:Locale>`,
		`<p:DataLocale s:mustUnderstand="false" xml:lang="en-US"></p:DataLocale>`,
		`<a:Address s:mustUnderstand="false">` + AddressAnonymous + `</a:Address>`,
		`<w:Selector Name="ShellId">SHELL-1</w:Selector>`,
		`<w:Option Name="WINRS_CONSOLEMODE_STDIN">TRUE</w:Option>`,
		`<rsp:Command>ipconfig</rsp:Command>`,
		`<rsp:Arguments>/all</rsp:Arguments><rsp:Arguments>/v</rsp:Arguments>`,
		`<w:OperationTimeout>PT20S</w:OperationTimeout>`,
	}
	for _, want := range checks {
		if !strings.Contains(xmlStr, want) {
			t.Errorf("output missing %s\n%s", want, xmlStr)
		}
	}
}

// TestMarshal_EmptyOptionAndSelectorValues verifies that an empty value still
// produces an element.
func TestMarshal_EmptyOptionAndSelectorValues(t *testing.T) {
	env := NewEnvelope().
		WithAction(ActionCommand).
		WithOption("EMPTY", "").
		WithSelector("Blank", "")

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xmlStr := string(data)
	if !strings.Contains(xmlStr, `<w:Option Name="EMPTY"></w:Option>`) {
		t.Errorf("empty option not written:\n%s", xmlStr)
	}
	if !strings.Contains(xmlStr, `<w:Selector Name="Blank"></w:Selector>`) {
		t.Errorf("empty selector not written:\n%s", xmlStr)
	}

	parsed, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v, ok := parsed.Header.OptionValue("EMPTY"); !ok || v != "" {
		t.Errorf("OptionValue(EMPTY) = %q, %v; want \"\", true", v, ok)
	}
	if parsed.Header.SelectorSet == nil || len(parsed.Header.SelectorSet.Selectors) != 1 {
		t.Fatalf("selector lost in round trip: %+v", parsed.Header.SelectorSet)
	}
}

// TestMarshal_AbsentOptionSet verifies no OptionSet element without options.
func TestMarshal_AbsentOptionSet(t *testing.T) {
	data, err := Marshal(NewEnvelope().WithAction(ActionDelete))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "OptionSet") || strings.Contains(string(data), "SelectorSet") {
		t.Errorf("unexpected OptionSet/SelectorSet:\n%s", data)
	}
}

// TestRoundTrip verifies Unmarshal(Marshal(e)) recovers the populated fields.
func TestRoundTrip(t *testing.T) {
	exit := 3
	tests := []struct {
		name string
		env  *Envelope
	}{
		{
			name: "command",
			env: func() *Envelope {
				e := testEnvelope()
				e.Body.CommandLine = &CommandLine{Command: "dir", Arguments: []string{"C:\\"}}
				return e
			}(),
		},
		{
			name: "create shell",
			env: func() *Envelope {
				e := testEnvelope()
				e.Body.Shell = &Shell{
					InputStreams:     "stdin",
					OutputStreams:    "stdout stderr",
					WorkingDirectory: `C:\Temp`,
					IdleTimeOut:      "PT600S",
					Environment:      &Environment{Variables: []Variable{{Name: "A", Value: "1"}, {Name: "B", Value: ""}}},
				}
				return e
			}(),
		},
		{
			name: "receive response",
			env: func() *Envelope {
				e := NewEnvelope().WithAction(ActionReceiveResponse)
				e.Header.RelatesTo = "uuid:1"
				e.Body.ReceiveResponse = &ReceiveResponse{
					Streams: []Stream{
						{Name: "stdout", CommandID: "C1", Content: "aGVsbG8="},
						{Name: "stdout", CommandID: "C1", End: true},
					},
					CommandState: &CommandStateElement{CommandID: "C1", State: CommandStateDone, ExitCode: &exit},
				}
				return e
			}(),
		},
		{
			name: "identify",
			env:  &Envelope{Header: &Header{}, Body: &Body{Identify: &Identify{}}},
		},
		{
			name: "enumerate response",
			env: func() *Envelope {
				e := NewEnvelope().WithAction(ActionEnumerateResponse)
				e.Body.EnumerateResponse = &EnumerateResponse{
					EnumerationContext: "ctx-1",
					Items:              &Items{Shells: []Shell{{ShellID: "S1", State: "Connected"}}},
				}
				return e
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.env)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v\n%s", err, data)
			}
			got.XMLName = tt.env.XMLName
			if !reflect.DeepEqual(got.Header, tt.env.Header) {
				t.Errorf("header mismatch\n got: %+v\nwant: %+v", got.Header, tt.env.Header)
			}
			if !reflect.DeepEqual(got.Body, tt.env.Body) {
				t.Errorf("body mismatch\n got: %+v\nwant: %+v", got.Body, tt.env.Body)
			}
		})
	}
}

// TestMarshal_IdentifyEmptyHeader verifies the Identify request shape.
func TestMarshal_IdentifyEmptyHeader(t *testing.T) {
	env := &Envelope{Header: &Header{}, Body: &Body{Identify: &Identify{}}}
	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xmlStr := string(data)
	if !strings.Contains(xmlStr, "<s:Header></s:Header>") {
		t.Errorf("expected empty header:\n%s", xmlStr)
	}
	if !strings.Contains(xmlStr, "<wsmid:Identify></wsmid:Identify>") {
		t.Errorf("expected Identify body:\n%s", xmlStr)
	}
	if strings.Contains(xmlStr, "xmlns:a=") {
		t.Errorf("addressing namespace declared without addressing headers:\n%s", xmlStr)
	}
}

// TestMarshal_NilHeaderAndBody verifies a bare envelope still carries both parts.
func TestMarshal_NilHeaderAndBody(t *testing.T) {
	data, err := Marshal(&Envelope{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "<s:Header></s:Header>") || !strings.Contains(string(data), "<s:Body></s:Body>") {
		t.Errorf("missing header or body:\n%s", data)
	}
}

type foreignNode struct{}

func (foreignNode) collectNamespaces(c *nsCollector) {
	c.add("urn:example:unregistered", "Foreign")
}

// TestUsedNamespaces_UnknownNamespace verifies unmapped namespaces are an error.
func TestUsedNamespaces_UnknownNamespace(t *testing.T) {
	_, err := usedNamespaces(foreignNode{})
	if !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("err = %v, want ErrUnknownNamespace", err)
	}
	if !strings.Contains(err.Error(), "urn:example:unregistered") {
		t.Errorf("error should name the namespace: %v", err)
	}
}

// TestRewritePrefixes_UndeclaredNamespace verifies the writer refuses
// namespaces missing from the declared set.
func TestRewritePrefixes_UndeclaredNamespace(t *testing.T) {
	raw := []byte(`<Envelope xmlns="` + NsSoap + `"><Body><Shell xmlns="` + NsShell + `"></Shell></Body></Envelope>`)

	if _, err := rewritePrefixes(raw, []string{NsSoap}); err == nil {
		t.Fatal("expected error for undeclared rsp namespace")
	}

	raw = []byte(`<Envelope xmlns="urn:example:unregistered"></Envelope>`)
	_, err := rewritePrefixes(raw, nil)
	if !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("err = %v, want ErrUnknownNamespace", err)
	}
}

// TestMarshal_NilEnvelope verifies nil input is rejected.
func TestMarshal_NilEnvelope(t *testing.T) {
	_, err := Marshal(nil)
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *SerializationError", err)
	}
}

// TestUnmarshal_Fault verifies SOAP fault parsing.
func TestUnmarshal_Fault(t *testing.T) {
	faultXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
            xmlns:a="http://schemas.xmlsoap.org/ws/2004/08/addressing">
  <s:Body>
    <s:Fault>
      <s:Code>
        <s:Value>s:Sender</s:Value>
        <s:Subcode>
          <s:Value>w:InvalidSelectors</s:Value>
        </s:Subcode>
      </s:Code>
      <s:Reason>
        <s:Text xml:lang="en-US">The specified shell was not found.</s:Text>
      </s:Reason>
      <s:Detail>
        <f:WSManFault xmlns:f="http://schemas.microsoft.com/wbem/wsman/1/wsmanfault"
                      Code="2150858843" Machine="SERVER01">
          <f:Message>Shell not found</f:Message>
        </f:WSManFault>
      </s:Detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`

	env, err := Unmarshal([]byte(faultXML))
	if env == nil {
		t.Fatal("expected the parsed envelope alongside the fault")
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want *Fault", err)
	}

	if fault.Code != "s:Sender" {
		t.Errorf("Code = %q, want %q", fault.Code, "s:Sender")
	}
	if fault.Subcode != "w:InvalidSelectors" {
		t.Errorf("Subcode = %q, want %q", fault.Subcode, "w:InvalidSelectors")
	}
	if !strings.Contains(fault.Reason, "shell was not found") {
		t.Errorf("Reason = %q, want to contain 'shell was not found'", fault.Reason)
	}
	if fault.WSManCode != 2150858843 {
		t.Errorf("WSManCode = %d, want %d", fault.WSManCode, uint32(2150858843))
	}
	if fault.Machine != "SERVER01" {
		t.Errorf("Machine = %q, want SERVER01", fault.Machine)
	}
	if fault.Message != "Shell not found" {
		t.Errorf("Message = %q, want %q", fault.Message, "Shell not found")
	}
	if !fault.IsShellNotFound() {
		t.Error("IsShellNotFound() = false, want true")
	}
}

// TestMarshal_FaultDetail verifies WSManFault is written in the wsmanfault
// namespace and still decodes.
func TestMarshal_FaultDetail(t *testing.T) {
	env := NewEnvelope().WithAction(ActionReceiveResponse)
	env.Body.Fault = &SOAPFault{
		Code:   FaultCode{Value: "s:Receiver", Subcode: &FaultSubcode{Value: "w:TimedOut"}},
		Reason: FaultReason{Text: FaultText{Lang: "en-US", Value: "operation timed out"}},
		Detail: &FaultDetail{WSManFault: &WSManFault{
			Code:    "2150858793",
			Machine: "WEB01",
			Message: "operation timed out",
		}},
	}

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`xmlns:f="` + NsWSManFault + `"`,
		`<s:Detail><f:WSManFault Code="2150858793" Machine="WEB01"><f:Message>operation timed out</f:Message></f:WSManFault></s:Detail>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}

	_, err = Unmarshal(data)
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want *Fault", err)
	}
	if fault.WSManCode != 2150858793 || fault.Machine != "WEB01" || fault.Message != "operation timed out" {
		t.Errorf("fault = %+v", fault)
	}
}

// TestUnmarshal_NotAFault verifies normal responses carry no error.
func TestUnmarshal_NotAFault(t *testing.T) {
	normalXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <rsp:Shell xmlns:rsp="http://schemas.microsoft.com/wbem/wsman/1/windows/shell">
      <rsp:ShellId>test-id</rsp:ShellId>
    </rsp:Shell>
  </s:Body>
</s:Envelope>`

	env, err := Unmarshal([]byte(normalXML))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.Body.Shell == nil || env.Body.Shell.ShellID != "test-id" {
		t.Errorf("Shell = %+v, want ShellId test-id", env.Body.Shell)
	}
}

// TestUnmarshal_Malformed verifies parse errors are SerializationErrors.
func TestUnmarshal_Malformed(t *testing.T) {
	for _, input := range []string{"", "<not-closed", "<other/>"} {
		_, err := Unmarshal([]byte(input))
		var serr *SerializationError
		if !errors.As(err, &serr) {
			t.Errorf("Unmarshal(%q) err = %v, want *SerializationError", input, err)
		}
	}
}

// TestUnmarshal_ReceiveResponse verifies a server-shaped ReceiveResponse.
func TestUnmarshal_ReceiveResponse(t *testing.T) {
	respXML := `<s:Envelope xml:lang="en-US" xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://schemas.xmlsoap.org/ws/2004/08/addressing" xmlns:w="http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd" xmlns:rsp="http://schemas.microsoft.com/wbem/wsman/1/windows/shell">
  <s:Header>
    <a:Action>http://schemas.microsoft.com/wbem/wsman/1/windows/shell/ReceiveResponse</a:Action>
    <a:MessageID>uuid:AAAA</a:MessageID>
    <a:To>http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous</a:To>
    <a:RelatesTo>uuid:BBBB</a:RelatesTo>
  </s:Header>
  <s:Body>
    <rsp:ReceiveResponse>
      <rsp:Stream Name="stdout" CommandId="CMD-1">aGVsbG8NCg==</rsp:Stream>
      <rsp:Stream Name="stdout" CommandId="CMD-1" End="true"></rsp:Stream>
      <rsp:Stream Name="stderr" CommandId="CMD-1" End="true"></rsp:Stream>
      <rsp:CommandState CommandId="CMD-1" State="http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandState/Done">
        <rsp:ExitCode>0</rsp:ExitCode>
      </rsp:CommandState>
    </rsp:ReceiveResponse>
  </s:Body>
</s:Envelope>`

	env, err := Unmarshal([]byte(respXML))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.Header.RelatesTo != "uuid:BBBB" {
		t.Errorf("RelatesTo = %q, want uuid:BBBB", env.Header.RelatesTo)
	}
	rr := env.Body.ReceiveResponse
	if rr == nil {
		t.Fatal("ReceiveResponse missing")
	}
	if len(rr.Streams) != 3 {
		t.Fatalf("got %d streams, want 3", len(rr.Streams))
	}
	if !rr.Streams[1].End {
		t.Error("second stream should carry End=true")
	}
	if rr.CommandState == nil || rr.CommandState.State != CommandStateDone {
		t.Fatalf("CommandState = %+v, want Done", rr.CommandState)
	}
	if rr.CommandState.ExitCode == nil || *rr.CommandState.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want 0", rr.CommandState.ExitCode)
	}
}
