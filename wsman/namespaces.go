package wsman

// XML Namespace URIs for WS-Management protocol.
const (
	// NsSoap is the SOAP 1.2 envelope namespace.
	NsSoap = "http://www.w3.org/2003/05/soap-envelope"

	// NsAddressing is the WS-Addressing namespace.
	NsAddressing = "http://schemas.xmlsoap.org/ws/2004/08/addressing"

	// NsWsman is the DMTF WS-Management namespace.
	NsWsman = "http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd"

	// NsWsmanMicrosoft is the Microsoft WS-Management namespace extension.
	NsWsmanMicrosoft = "http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd"

	// NsShell is the Windows Remote Shell namespace.
	NsShell = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell"

	// NsTransfer is the WS-Transfer namespace.
	NsTransfer = "http://schemas.xmlsoap.org/ws/2004/09/transfer"

	// NsEnumeration is the WS-Enumeration namespace.
	NsEnumeration = "http://schemas.xmlsoap.org/ws/2004/09/enumeration"

	// NsIdentity is the WS-Management Identify namespace.
	NsIdentity = "http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd"

	// NsConfig is the WinRM service configuration namespace.
	NsConfig = "http://schemas.microsoft.com/wbem/wsman/1/config"

	// NsWSManFault is the namespace of the WSManFault fault detail.
	NsWSManFault = "http://schemas.microsoft.com/wbem/wsman/1/wsmanfault"

	// NsCimBinding is the CIM binding namespace.
	NsCimBinding = "http://schemas.dmtf.org/wbem/wsman/1/cimbinding.xsd"

	// NsXsd is the XML Schema namespace.
	NsXsd = "http://www.w3.org/2001/XMLSchema"

	// NsXsi is the XML Schema Instance namespace.
	NsXsi = "http://www.w3.org/2001/XMLSchema-instance"

	// nsXML is the reserved namespace bound to the xml prefix (xml:lang).
	nsXML = "http://www.w3.org/XML/1998/namespace"
)

// namespacePrefixes maps every namespace the serializer knows to the prefix it
// is written with. A namespace missing from this table cannot be serialized.
var namespacePrefixes = map[string]string{
	NsXsd:            "xsd",
	NsXsi:            "xsi",
	NsSoap:           "s",
	NsAddressing:     "a",
	NsCimBinding:     "b",
	NsEnumeration:    "n",
	NsTransfer:       "x",
	NsIdentity:       "wsmid",
	NsWsman:          "w",
	NsWsmanMicrosoft: "p",
	NsShell:          "rsp",
	NsConfig:         "cfg",
	NsWSManFault:     "f",
}

// namespaceOrder is the order in which namespace declarations are written on
// the envelope root.
var namespaceOrder = []string{
	NsXsd,
	NsXsi,
	NsSoap,
	NsAddressing,
	NsCimBinding,
	NsEnumeration,
	NsTransfer,
	NsIdentity,
	NsWsman,
	NsWsmanMicrosoft,
	NsShell,
	NsConfig,
	NsWSManFault,
}

// PrefixFor returns the prefix used for a namespace URI.
func PrefixFor(namespace string) (string, bool) {
	p, ok := namespacePrefixes[namespace]
	return p, ok
}

// WS-Addressing constants.
const (
	// AddressAnonymous is the WS-Addressing anonymous reply address.
	AddressAnonymous = "http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous"
)

// WSMan Action URIs for WS-Transfer operations.
const (
	// ActionCreate creates a new resource (used for shell creation).
	ActionCreate = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Create"

	// ActionCreateResponse is the response to Create.
	ActionCreateResponse = "http://schemas.xmlsoap.org/ws/2004/09/transfer/CreateResponse"

	// ActionDelete removes a resource (used for shell deletion).
	ActionDelete = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Delete"

	// ActionDeleteResponse is the response to Delete.
	ActionDeleteResponse = "http://schemas.xmlsoap.org/ws/2004/09/transfer/DeleteResponse"

	// ActionGet retrieves a resource representation (used for winrm/config).
	ActionGet = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Get"

	// ActionGetResponse is the response to Get.
	ActionGetResponse = "http://schemas.xmlsoap.org/ws/2004/09/transfer/GetResponse"
)

// WSMan Action URIs for Windows Remote Shell operations.
const (
	// ActionCommand starts a command within a shell.
	ActionCommand = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/Command"

	// ActionCommandResponse is the response to Command.
	ActionCommandResponse = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandResponse"

	// ActionSend sends input data to a command's stdin.
	ActionSend = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/Send"

	// ActionSendResponse is the response to Send.
	ActionSendResponse = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/SendResponse"

	// ActionReceive retrieves output and state from a command.
	ActionReceive = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/Receive"

	// ActionReceiveResponse is the response to Receive.
	ActionReceiveResponse = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/ReceiveResponse"

	// ActionSignal sends a control signal (terminate, ctrl_c, ctrl_break).
	ActionSignal = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/Signal"

	// ActionSignalResponse is the response to Signal.
	ActionSignalResponse = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/SignalResponse"
)

// WSMan Action URIs for Enumeration.
const (
	// ActionEnumerate enumerates resources.
	ActionEnumerate = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/Enumerate"

	// ActionEnumerateResponse is the response to Enumerate.
	ActionEnumerateResponse = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/EnumerateResponse"

	// ActionPull continues an enumeration.
	ActionPull = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/Pull"

	// ActionPullResponse is the response to Pull.
	ActionPullResponse = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/PullResponse"
)

// ActionIdentify names the Identify operation. Identify requests carry no
// addressing headers, so this value never appears on the wire; it is used for
// logging and error context.
const ActionIdentify = "http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity/Identify"

// Signal codes for the Signal action.
const (
	// SignalTerminate terminates a command.
	SignalTerminate = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/signal/terminate"

	// SignalCtrlC delivers a Ctrl+C to the command.
	SignalCtrlC = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/signal/ctrl_c"

	// SignalCtrlBreak delivers a Ctrl+Break to the command.
	SignalCtrlBreak = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/signal/ctrl_break"
)

// Command state URIs reported in ReceiveResponse.
const (
	CommandStateDone    = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandState/Done"
	CommandStateRunning = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandState/Running"
	CommandStatePending = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/CommandState/Pending"
)

// Resource URIs.
const (
	// ResourceURICmd is the resource URI for cmd.exe remote shells.
	ResourceURICmd = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell/cmd"

	// ResourceURIShell is the resource URI used to enumerate shells.
	ResourceURIShell = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell"

	// ResourceURIConfig is the resource URI of the WinRM service configuration.
	ResourceURIConfig = "http://schemas.microsoft.com/wbem/wsman/1/config"
)

// Shell and command option names.
const (
	OptionNoProfile        = "WINRS_NOPROFILE"
	OptionCodepage         = "WINRS_CODEPAGE"
	OptionConsoleModeStdin = "WINRS_CONSOLEMODE_STDIN"
	OptionSkipCmdShell     = "WINRS_SKIP_CMD_SHELL"
	OptionReceiveKeepAlive = "WSMAN_CMDSHELL_OPTION_KEEPALIVE"
)

// SelectorShellID is the selector name that addresses an existing shell.
const SelectorShellID = "ShellId"

// Protocol defaults.
const (
	DefaultInputStreams    = "stdin"
	DefaultOutputStreams   = "stdout stderr"
	DefaultLocale          = "en-US"
	DefaultMaxEnvelopeSize = 153600
)

const (
	streamStdin  = "stdin"
	streamStdout = "stdout"
	streamStderr = "stderr"

	enumerationMaxElements = 32000
)
