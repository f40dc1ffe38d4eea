package wsman

import "encoding/xml"

// Body is the SOAP body. It is a union of optional payloads; exactly the
// non-nil fields are written, and a parsed response populates the payloads
// that were present on the wire.
type Body struct {
	// Request payloads.
	Shell       *Shell       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Shell"`
	CommandLine *CommandLine `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell CommandLine"`
	Send        *Send        `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Send"`
	Receive     *Receive     `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Receive"`
	Signal      *Signal      `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Signal"`
	Identify    *Identify    `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd Identify"`
	Enumerate   *Enumerate   `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration Enumerate"`
	Pull        *Pull        `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration Pull"`

	// Response payloads.
	ResourceCreated   *ResourceCreated   `xml:"http://schemas.xmlsoap.org/ws/2004/09/transfer ResourceCreated"`
	CommandResponse   *CommandResponse   `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell CommandResponse"`
	ReceiveResponse   *ReceiveResponse   `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell ReceiveResponse"`
	IdentifyResponse  *IdentifyResponse  `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd IdentifyResponse"`
	Config            *ServiceConfig     `xml:"http://schemas.microsoft.com/wbem/wsman/1/config Config"`
	EnumerateResponse *EnumerateResponse `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration EnumerateResponse"`
	PullResponse      *PullResponse      `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration PullResponse"`
	Fault             *SOAPFault         `xml:"http://www.w3.org/2003/05/soap-envelope Fault"`
}

// Shell describes a remote shell. It is the Create request payload and also
// appears in Create and Enumerate responses.
type Shell struct {
	ShellID          string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell ShellId,omitempty"`
	Name             string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Name,omitempty"`
	ResourceURI      string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell ResourceUri,omitempty"`
	Owner            string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Owner,omitempty"`
	ClientIP         string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell ClientIP,omitempty"`
	State            string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell State,omitempty"`
	InputStreams     string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell InputStreams,omitempty"`
	OutputStreams    string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell OutputStreams,omitempty"`
	WorkingDirectory string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell WorkingDirectory,omitempty"`
	IdleTimeOut      string       `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell IdleTimeOut,omitempty"`
	Environment      *Environment `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Environment"`
}

// Environment holds the environment variables of a shell.
type Environment struct {
	Variables []Variable `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Variable"`
}

// Variable is a single environment variable.
type Variable struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// CommandLine is the Command request payload.
type CommandLine struct {
	Command   string   `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Command"`
	Arguments []string `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Arguments"`
}

// Send is the Send request payload.
type Send struct {
	Streams []Stream `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Stream"`
}

// Stream carries base64 encoded data for one named stream. It is used for
// input in Send and for output in ReceiveResponse.
type Stream struct {
	Name      string `xml:"Name,attr"`
	CommandID string `xml:"CommandId,attr,omitempty"`
	End       bool   `xml:"End,attr,omitempty"`
	Content   string `xml:",chardata"`
}

// Receive is the Receive request payload.
type Receive struct {
	DesiredStream DesiredStream `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell DesiredStream"`
}

// DesiredStream names the output streams to receive for a command.
type DesiredStream struct {
	CommandID string `xml:"CommandId,attr,omitempty"`
	Streams   string `xml:",chardata"`
}

// Signal is the Signal request payload.
type Signal struct {
	CommandID string `xml:"CommandId,attr,omitempty"`
	Code      string `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Code"`
}

// Identify is the empty Identify request payload.
type Identify struct{}

// ResourceCreated is the endpoint reference returned by Create.
type ResourceCreated struct {
	Address             string               `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing Address,omitempty"`
	ReferenceParameters *ReferenceParameters `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing ReferenceParameters"`
}

// ReferenceParameters addresses the created resource.
type ReferenceParameters struct {
	ResourceURI string       `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd ResourceURI,omitempty"`
	SelectorSet *SelectorSet `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd SelectorSet"`
}

// CommandResponse is returned by Command.
type CommandResponse struct {
	CommandID string `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell CommandId"`
}

// ReceiveResponse is returned by Receive.
type ReceiveResponse struct {
	Streams      []Stream             `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Stream"`
	CommandState *CommandStateElement `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell CommandState"`
}

// CommandStateElement reports the state of a command in a ReceiveResponse.
type CommandStateElement struct {
	CommandID string `xml:"CommandId,attr,omitempty"`
	State     string `xml:"State,attr"`
	ExitCode  *int   `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell ExitCode"`
}

// IdentifyResponse describes the remote WS-Management service.
type IdentifyResponse struct {
	ProtocolVersion  string            `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd ProtocolVersion"`
	ProductVendor    string            `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd ProductVendor"`
	ProductVersion   string            `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd ProductVersion"`
	SecurityProfiles *SecurityProfiles `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd SecurityProfiles"`
}

// SecurityProfiles lists the authentication profiles the service accepts.
type SecurityProfiles struct {
	Names []string `xml:"http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd SecurityProfileName"`
}

// ServiceConfig is the subset of the WinRM service configuration returned by
// a Get on the config resource.
type ServiceConfig struct {
	MaxEnvelopeSizeKB   int64 `xml:"http://schemas.microsoft.com/wbem/wsman/1/config MaxEnvelopeSizekb,omitempty"`
	MaxTimeoutMS        int64 `xml:"http://schemas.microsoft.com/wbem/wsman/1/config MaxTimeoutms,omitempty"`
	MaxBatchItems       int64 `xml:"http://schemas.microsoft.com/wbem/wsman/1/config MaxBatchItems,omitempty"`
	MaxProviderRequests int64 `xml:"http://schemas.microsoft.com/wbem/wsman/1/config MaxProviderRequests,omitempty"`
}

// Enumerate is the WS-Enumeration Enumerate request payload.
type Enumerate struct {
	OptimizeEnumeration *Empty `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd OptimizeEnumeration"`
	MaxElements         int    `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd MaxElements,omitempty"`
}

// Pull is the WS-Enumeration Pull request payload.
type Pull struct {
	EnumerationContext string `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration EnumerationContext"`
	MaxElements        int    `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration MaxElements,omitempty"`
}

// EnumerateResponse is returned by Enumerate. With optimized enumeration the
// first batch of items is returned inline.
type EnumerateResponse struct {
	EnumerationContext string `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration EnumerationContext,omitempty"`
	Items              *Items `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd Items"`
	EndOfSequence      *Empty `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd EndOfSequence"`
}

// PullResponse is returned by Pull.
type PullResponse struct {
	EnumerationContext string `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration EnumerationContext,omitempty"`
	Items              *Items `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration Items"`
	EndOfSequence      *Empty `xml:"http://schemas.xmlsoap.org/ws/2004/09/enumeration EndOfSequence"`
}

// Items holds enumerated shells.
type Items struct {
	Shells []Shell `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell Shell"`
}

// Empty is a marker element with no content.
type Empty struct{}

// SOAPFault is the wire form of a SOAP 1.2 fault. Unmarshal converts it to a
// *Fault error.
type SOAPFault struct {
	Code   FaultCode    `xml:"http://www.w3.org/2003/05/soap-envelope Code"`
	Reason FaultReason  `xml:"http://www.w3.org/2003/05/soap-envelope Reason"`
	Detail *FaultDetail `xml:"http://www.w3.org/2003/05/soap-envelope Detail"`
}

// FaultCode is the SOAP fault code with an optional subcode.
type FaultCode struct {
	Value   string        `xml:"http://www.w3.org/2003/05/soap-envelope Value"`
	Subcode *FaultSubcode `xml:"http://www.w3.org/2003/05/soap-envelope Subcode"`
}

// FaultSubcode is the SOAP fault subcode.
type FaultSubcode struct {
	Value string `xml:"http://www.w3.org/2003/05/soap-envelope Value"`
}

// FaultReason is the human readable reason of a SOAP fault.
type FaultReason struct {
	Text FaultText `xml:"http://www.w3.org/2003/05/soap-envelope Text"`
}

// FaultText is a language tagged reason text.
type FaultText struct {
	Lang  string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// FaultDetail carries the WinRM specific fault information. Servers use
// different namespaces for WSManFault, so these elements match by local
// name only when decoding. They are written in NsWSManFault.
type FaultDetail struct {
	WSManFault *WSManFault `xml:"WSManFault"`
}

// WSManFault is the WinRM fault detail.
type WSManFault struct {
	XMLName xml.Name `xml:"WSManFault"`
	Code    string   `xml:"Code,attr"`
	Machine string   `xml:"Machine,attr"`
	Message string   `xml:"Message"`
}

type wsmanFaultWire struct {
	XMLName xml.Name `xml:"http://schemas.microsoft.com/wbem/wsman/1/wsmanfault WSManFault"`
	Code    string   `xml:"Code,attr,omitempty"`
	Machine string   `xml:"Machine,attr,omitempty"`
	Message string   `xml:"http://schemas.microsoft.com/wbem/wsman/1/wsmanfault Message"`
}

// MarshalXML writes the fault in the wsmanfault namespace.
func (f WSManFault) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return e.Encode(wsmanFaultWire{Code: f.Code, Machine: f.Machine, Message: f.Message})
}
