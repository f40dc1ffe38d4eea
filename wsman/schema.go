package wsman

import (
	"fmt"
)

// The serializer declares on the envelope root only the namespaces that the
// populated parts of an envelope use. Rather than discovering namespaces by
// reflecting over struct tags, each type describes its fields in a static
// table: the namespace of the element or attribute, a presence check, and
// the nested values to descend into.

// schemaNode is implemented by every type that can appear in an envelope.
type schemaNode interface {
	collectNamespaces(c *nsCollector)
}

// field describes one element or attribute of T.
type field[T any] struct {
	name string
	// namespace is empty for unqualified attributes and for elements that
	// inherit the namespace of their parent.
	namespace string
	present   func(v *T) bool
	children  func(v *T) []schemaNode
}

func always[T any](*T) bool { return true }

func walkFields[T any](v *T, ns string, fields []field[T], c *nsCollector) {
	c.add(ns, "")
	for _, f := range fields {
		if !f.present(v) {
			continue
		}
		c.add(f.namespace, f.name)
		if f.children == nil {
			continue
		}
		for _, child := range f.children(v) {
			child.collectNamespaces(c)
		}
	}
}

// nsCollector accumulates the namespaces used by an envelope.
type nsCollector struct {
	used map[string]bool
	err  error
}

func (c *nsCollector) add(ns, name string) {
	if ns == "" || ns == nsXML || c.err != nil {
		return
	}
	if _, ok := namespacePrefixes[ns]; !ok {
		if name == "" {
			c.err = fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
		} else {
			c.err = fmt.Errorf("%w: %s (field %s)", ErrUnknownNamespace, ns, name)
		}
		return
	}
	c.used[ns] = true
}

// usedNamespaces walks node and returns the namespaces it references in
// declaration order. xsi and xsd are always included.
func usedNamespaces(node schemaNode) ([]string, error) {
	c := &nsCollector{used: map[string]bool{NsXsd: true, NsXsi: true}}
	node.collectNamespaces(c)
	if c.err != nil {
		return nil, c.err
	}
	out := make([]string, 0, len(c.used))
	for _, ns := range namespaceOrder {
		if c.used[ns] {
			out = append(out, ns)
		}
	}
	return out, nil
}

func nodes[T schemaNode](items ...T) []schemaNode {
	out := make([]schemaNode, len(items))
	for i := range items {
		out[i] = items[i]
	}
	return out
}

func sliceNodes[E any, P interface {
	*E
	schemaNode
}](items []E) []schemaNode {
	out := make([]schemaNode, len(items))
	for i := range items {
		out[i] = P(&items[i])
	}
	return out
}

var envelopeSchema = []field[Envelope]{
	{name: "Header", namespace: NsSoap, present: always[Envelope],
		children: func(e *Envelope) []schemaNode { return nodes(e.Header) }},
	{name: "Body", namespace: NsSoap, present: always[Envelope],
		children: func(e *Envelope) []schemaNode { return nodes(e.Body) }},
}

func (e *Envelope) collectNamespaces(c *nsCollector) { walkFields(e, NsSoap, envelopeSchema, c) }

var headerSchema = []field[Header]{
	{name: "To", namespace: NsAddressing, present: func(h *Header) bool { return h.To != "" }},
	{name: "ReplyTo", namespace: NsAddressing, present: func(h *Header) bool { return h.ReplyTo != nil },
		children: func(h *Header) []schemaNode { return nodes(h.ReplyTo) }},
	{name: "MaxEnvelopeSize", namespace: NsWsman, present: func(h *Header) bool { return h.MaxEnvelopeSize != nil },
		children: func(h *Header) []schemaNode { return nodes(h.MaxEnvelopeSize) }},
	{name: "MessageID", namespace: NsAddressing, present: func(h *Header) bool { return h.MessageID != "" }},
	{name: "RelatesTo", namespace: NsAddressing, present: func(h *Header) bool { return h.RelatesTo != "" }},
	{name: "Locale", namespace: NsWsman, present: func(h *Header) bool { return h.Locale != nil },
		children: func(h *Header) []schemaNode { return nodes(h.Locale) }},
	{name: "DataLocale", namespace: NsWsmanMicrosoft, present: func(h *Header) bool { return h.DataLocale != nil },
		children: func(h *Header) []schemaNode { return nodes(h.DataLocale) }},
	{name: "OperationTimeout", namespace: NsWsman, present: func(h *Header) bool { return h.OperationTimeout != "" }},
	{name: "ResourceURI", namespace: NsWsman, present: func(h *Header) bool { return h.ResourceURI != nil },
		children: func(h *Header) []schemaNode { return nodes(h.ResourceURI) }},
	{name: "Action", namespace: NsAddressing, present: func(h *Header) bool { return h.Action != nil },
		children: func(h *Header) []schemaNode { return nodes(h.Action) }},
	{name: "OptionSet", namespace: NsWsman, present: func(h *Header) bool { return h.OptionSet != nil },
		children: func(h *Header) []schemaNode { return nodes(h.OptionSet) }},
	{name: "SelectorSet", namespace: NsWsman, present: func(h *Header) bool { return h.SelectorSet != nil },
		children: func(h *Header) []schemaNode { return nodes(h.SelectorSet) }},
}

func (h *Header) collectNamespaces(c *nsCollector) { walkFields(h, NsSoap, headerSchema, c) }

var mustUnderstandValueSchema = []field[MustUnderstandValue]{
	{name: "mustUnderstand", namespace: NsSoap, present: always[MustUnderstandValue]},
}

func (m *MustUnderstandValue) collectNamespaces(c *nsCollector) {
	walkFields(m, "", mustUnderstandValueSchema, c)
}

var replyToSchema = []field[ReplyTo]{
	{name: "Address", namespace: NsAddressing, present: always[ReplyTo],
		children: func(r *ReplyTo) []schemaNode { return nodes(&r.Address) }},
}

func (r *ReplyTo) collectNamespaces(c *nsCollector) { walkFields(r, NsAddressing, replyToSchema, c) }

var addressSchema = []field[Address]{
	{name: "mustUnderstand", namespace: NsSoap, present: always[Address]},
}

func (a *Address) collectNamespaces(c *nsCollector) { walkFields(a, NsAddressing, addressSchema, c) }

var maxEnvelopeSizeSchema = []field[MaxEnvelopeSize]{
	{name: "mustUnderstand", namespace: NsSoap, present: always[MaxEnvelopeSize]},
}

func (m *MaxEnvelopeSize) collectNamespaces(c *nsCollector) {
	walkFields(m, NsWsman, maxEnvelopeSizeSchema, c)
}

var localeSchema = []field[Locale]{
	{name: "mustUnderstand", namespace: NsSoap, present: always[Locale]},
	{name: "lang", namespace: nsXML, present: func(l *Locale) bool { return l.Lang != "" }},
}

func (l *Locale) collectNamespaces(c *nsCollector) { walkFields(l, "", localeSchema, c) }

var selectorSetSchema = []field[SelectorSet]{
	{name: "Selector", namespace: NsWsman, present: func(s *SelectorSet) bool { return len(s.Selectors) > 0 }},
}

func (s *SelectorSet) collectNamespaces(c *nsCollector) {
	walkFields(s, NsWsman, selectorSetSchema, c)
}

var optionSetSchema = []field[OptionSet]{
	{name: "Option", namespace: NsWsman, present: func(o *OptionSet) bool { return len(o.Options) > 0 }},
}

func (o *OptionSet) collectNamespaces(c *nsCollector) { walkFields(o, NsWsman, optionSetSchema, c) }

var bodySchema = []field[Body]{
	{name: "Shell", namespace: NsShell, present: func(b *Body) bool { return b.Shell != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Shell) }},
	{name: "CommandLine", namespace: NsShell, present: func(b *Body) bool { return b.CommandLine != nil },
		children: func(b *Body) []schemaNode { return nodes(b.CommandLine) }},
	{name: "Send", namespace: NsShell, present: func(b *Body) bool { return b.Send != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Send) }},
	{name: "Receive", namespace: NsShell, present: func(b *Body) bool { return b.Receive != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Receive) }},
	{name: "Signal", namespace: NsShell, present: func(b *Body) bool { return b.Signal != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Signal) }},
	{name: "Identify", namespace: NsIdentity, present: func(b *Body) bool { return b.Identify != nil }},
	{name: "Enumerate", namespace: NsEnumeration, present: func(b *Body) bool { return b.Enumerate != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Enumerate) }},
	{name: "Pull", namespace: NsEnumeration, present: func(b *Body) bool { return b.Pull != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Pull) }},
	{name: "ResourceCreated", namespace: NsTransfer, present: func(b *Body) bool { return b.ResourceCreated != nil },
		children: func(b *Body) []schemaNode { return nodes(b.ResourceCreated) }},
	{name: "CommandResponse", namespace: NsShell, present: func(b *Body) bool { return b.CommandResponse != nil },
		children: func(b *Body) []schemaNode { return nodes(b.CommandResponse) }},
	{name: "ReceiveResponse", namespace: NsShell, present: func(b *Body) bool { return b.ReceiveResponse != nil },
		children: func(b *Body) []schemaNode { return nodes(b.ReceiveResponse) }},
	{name: "IdentifyResponse", namespace: NsIdentity, present: func(b *Body) bool { return b.IdentifyResponse != nil },
		children: func(b *Body) []schemaNode { return nodes(b.IdentifyResponse) }},
	{name: "Config", namespace: NsConfig, present: func(b *Body) bool { return b.Config != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Config) }},
	{name: "EnumerateResponse", namespace: NsEnumeration, present: func(b *Body) bool { return b.EnumerateResponse != nil },
		children: func(b *Body) []schemaNode { return nodes(b.EnumerateResponse) }},
	{name: "PullResponse", namespace: NsEnumeration, present: func(b *Body) bool { return b.PullResponse != nil },
		children: func(b *Body) []schemaNode { return nodes(b.PullResponse) }},
	{name: "Fault", namespace: NsSoap, present: func(b *Body) bool { return b.Fault != nil },
		children: func(b *Body) []schemaNode { return nodes(b.Fault) }},
}

func (b *Body) collectNamespaces(c *nsCollector) { walkFields(b, NsSoap, bodySchema, c) }

var shellSchema = []field[Shell]{
	{name: "ShellId", namespace: NsShell, present: func(s *Shell) bool { return s.ShellID != "" }},
	{name: "Name", namespace: NsShell, present: func(s *Shell) bool { return s.Name != "" }},
	{name: "ResourceUri", namespace: NsShell, present: func(s *Shell) bool { return s.ResourceURI != "" }},
	{name: "Owner", namespace: NsShell, present: func(s *Shell) bool { return s.Owner != "" }},
	{name: "ClientIP", namespace: NsShell, present: func(s *Shell) bool { return s.ClientIP != "" }},
	{name: "State", namespace: NsShell, present: func(s *Shell) bool { return s.State != "" }},
	{name: "InputStreams", namespace: NsShell, present: func(s *Shell) bool { return s.InputStreams != "" }},
	{name: "OutputStreams", namespace: NsShell, present: func(s *Shell) bool { return s.OutputStreams != "" }},
	{name: "WorkingDirectory", namespace: NsShell, present: func(s *Shell) bool { return s.WorkingDirectory != "" }},
	{name: "IdleTimeOut", namespace: NsShell, present: func(s *Shell) bool { return s.IdleTimeOut != "" }},
	{name: "Environment", namespace: NsShell, present: func(s *Shell) bool { return s.Environment != nil },
		children: func(s *Shell) []schemaNode { return nodes(s.Environment) }},
}

func (s *Shell) collectNamespaces(c *nsCollector) { walkFields(s, NsShell, shellSchema, c) }

var environmentSchema = []field[Environment]{
	{name: "Variable", namespace: NsShell, present: func(e *Environment) bool { return len(e.Variables) > 0 }},
}

func (e *Environment) collectNamespaces(c *nsCollector) {
	walkFields(e, NsShell, environmentSchema, c)
}

var commandLineSchema = []field[CommandLine]{
	{name: "Command", namespace: NsShell, present: always[CommandLine]},
	{name: "Arguments", namespace: NsShell, present: func(l *CommandLine) bool { return len(l.Arguments) > 0 }},
}

func (l *CommandLine) collectNamespaces(c *nsCollector) {
	walkFields(l, NsShell, commandLineSchema, c)
}

var sendSchema = []field[Send]{
	{name: "Stream", namespace: NsShell, present: func(s *Send) bool { return len(s.Streams) > 0 }},
}

func (s *Send) collectNamespaces(c *nsCollector) { walkFields(s, NsShell, sendSchema, c) }

var receiveSchema = []field[Receive]{
	{name: "DesiredStream", namespace: NsShell, present: always[Receive]},
}

func (r *Receive) collectNamespaces(c *nsCollector) { walkFields(r, NsShell, receiveSchema, c) }

var signalSchema = []field[Signal]{
	{name: "Code", namespace: NsShell, present: always[Signal]},
}

func (s *Signal) collectNamespaces(c *nsCollector) { walkFields(s, NsShell, signalSchema, c) }

var enumerateSchema = []field[Enumerate]{
	{name: "OptimizeEnumeration", namespace: NsWsman, present: func(e *Enumerate) bool { return e.OptimizeEnumeration != nil }},
	{name: "MaxElements", namespace: NsWsman, present: func(e *Enumerate) bool { return e.MaxElements != 0 }},
}

func (e *Enumerate) collectNamespaces(c *nsCollector) {
	walkFields(e, NsEnumeration, enumerateSchema, c)
}

var pullSchema = []field[Pull]{
	{name: "EnumerationContext", namespace: NsEnumeration, present: always[Pull]},
	{name: "MaxElements", namespace: NsEnumeration, present: func(p *Pull) bool { return p.MaxElements != 0 }},
}

func (p *Pull) collectNamespaces(c *nsCollector) { walkFields(p, NsEnumeration, pullSchema, c) }

var resourceCreatedSchema = []field[ResourceCreated]{
	{name: "Address", namespace: NsAddressing, present: func(r *ResourceCreated) bool { return r.Address != "" }},
	{name: "ReferenceParameters", namespace: NsAddressing,
		present:  func(r *ResourceCreated) bool { return r.ReferenceParameters != nil },
		children: func(r *ResourceCreated) []schemaNode { return nodes(r.ReferenceParameters) }},
}

func (r *ResourceCreated) collectNamespaces(c *nsCollector) {
	walkFields(r, NsTransfer, resourceCreatedSchema, c)
}

var referenceParametersSchema = []field[ReferenceParameters]{
	{name: "ResourceURI", namespace: NsWsman, present: func(r *ReferenceParameters) bool { return r.ResourceURI != "" }},
	{name: "SelectorSet", namespace: NsWsman, present: func(r *ReferenceParameters) bool { return r.SelectorSet != nil },
		children: func(r *ReferenceParameters) []schemaNode { return nodes(r.SelectorSet) }},
}

func (r *ReferenceParameters) collectNamespaces(c *nsCollector) {
	walkFields(r, NsAddressing, referenceParametersSchema, c)
}

var commandResponseSchema = []field[CommandResponse]{
	{name: "CommandId", namespace: NsShell, present: always[CommandResponse]},
}

func (r *CommandResponse) collectNamespaces(c *nsCollector) {
	walkFields(r, NsShell, commandResponseSchema, c)
}

var receiveResponseSchema = []field[ReceiveResponse]{
	{name: "Stream", namespace: NsShell, present: func(r *ReceiveResponse) bool { return len(r.Streams) > 0 }},
	{name: "CommandState", namespace: NsShell, present: func(r *ReceiveResponse) bool { return r.CommandState != nil },
		children: func(r *ReceiveResponse) []schemaNode { return nodes(r.CommandState) }},
}

func (r *ReceiveResponse) collectNamespaces(c *nsCollector) {
	walkFields(r, NsShell, receiveResponseSchema, c)
}

var commandStateSchema = []field[CommandStateElement]{
	{name: "ExitCode", namespace: NsShell, present: func(s *CommandStateElement) bool { return s.ExitCode != nil }},
}

func (s *CommandStateElement) collectNamespaces(c *nsCollector) {
	walkFields(s, NsShell, commandStateSchema, c)
}

var identifyResponseSchema = []field[IdentifyResponse]{
	{name: "ProtocolVersion", namespace: NsIdentity, present: always[IdentifyResponse]},
	{name: "ProductVendor", namespace: NsIdentity, present: always[IdentifyResponse]},
	{name: "ProductVersion", namespace: NsIdentity, present: always[IdentifyResponse]},
	{name: "SecurityProfiles", namespace: NsIdentity,
		present:  func(r *IdentifyResponse) bool { return r.SecurityProfiles != nil },
		children: func(r *IdentifyResponse) []schemaNode { return nodes(r.SecurityProfiles) }},
}

func (r *IdentifyResponse) collectNamespaces(c *nsCollector) {
	walkFields(r, NsIdentity, identifyResponseSchema, c)
}

var securityProfilesSchema = []field[SecurityProfiles]{
	{name: "SecurityProfileName", namespace: NsIdentity, present: func(p *SecurityProfiles) bool { return len(p.Names) > 0 }},
}

func (p *SecurityProfiles) collectNamespaces(c *nsCollector) {
	walkFields(p, NsIdentity, securityProfilesSchema, c)
}

var serviceConfigSchema = []field[ServiceConfig]{
	{name: "MaxEnvelopeSizekb", namespace: NsConfig, present: func(s *ServiceConfig) bool { return s.MaxEnvelopeSizeKB != 0 }},
	{name: "MaxTimeoutms", namespace: NsConfig, present: func(s *ServiceConfig) bool { return s.MaxTimeoutMS != 0 }},
	{name: "MaxBatchItems", namespace: NsConfig, present: func(s *ServiceConfig) bool { return s.MaxBatchItems != 0 }},
	{name: "MaxProviderRequests", namespace: NsConfig, present: func(s *ServiceConfig) bool { return s.MaxProviderRequests != 0 }},
}

func (s *ServiceConfig) collectNamespaces(c *nsCollector) {
	walkFields(s, NsConfig, serviceConfigSchema, c)
}

var enumerateResponseSchema = []field[EnumerateResponse]{
	{name: "EnumerationContext", namespace: NsEnumeration, present: func(r *EnumerateResponse) bool { return r.EnumerationContext != "" }},
	{name: "Items", namespace: NsWsman, present: func(r *EnumerateResponse) bool { return r.Items != nil },
		children: func(r *EnumerateResponse) []schemaNode { return nodes(r.Items) }},
	{name: "EndOfSequence", namespace: NsWsman, present: func(r *EnumerateResponse) bool { return r.EndOfSequence != nil }},
}

func (r *EnumerateResponse) collectNamespaces(c *nsCollector) {
	walkFields(r, NsEnumeration, enumerateResponseSchema, c)
}

var pullResponseSchema = []field[PullResponse]{
	{name: "EnumerationContext", namespace: NsEnumeration, present: func(r *PullResponse) bool { return r.EnumerationContext != "" }},
	{name: "Items", namespace: NsEnumeration, present: func(r *PullResponse) bool { return r.Items != nil },
		children: func(r *PullResponse) []schemaNode { return nodes(r.Items) }},
	{name: "EndOfSequence", namespace: NsEnumeration, present: func(r *PullResponse) bool { return r.EndOfSequence != nil }},
}

func (r *PullResponse) collectNamespaces(c *nsCollector) {
	walkFields(r, NsEnumeration, pullResponseSchema, c)
}

var itemsSchema = []field[Items]{
	{name: "Shell", namespace: NsShell, present: func(i *Items) bool { return len(i.Shells) > 0 },
		children: func(i *Items) []schemaNode { return sliceNodes(i.Shells) }},
}

// Items inherits its namespace from the response that contains it.
func (i *Items) collectNamespaces(c *nsCollector) { walkFields(i, "", itemsSchema, c) }

var soapFaultSchema = []field[SOAPFault]{
	{name: "Code", namespace: NsSoap, present: always[SOAPFault]},
	{name: "Reason", namespace: NsSoap, present: always[SOAPFault]},
	{name: "Detail", namespace: NsSoap, present: func(f *SOAPFault) bool { return f.Detail != nil },
		children: func(f *SOAPFault) []schemaNode { return nodes(f.Detail) }},
}

func (f *SOAPFault) collectNamespaces(c *nsCollector) { walkFields(f, NsSoap, soapFaultSchema, c) }

var faultDetailSchema = []field[FaultDetail]{
	{name: "WSManFault", namespace: NsWSManFault, present: func(d *FaultDetail) bool { return d.WSManFault != nil }},
}

func (d *FaultDetail) collectNamespaces(c *nsCollector) { walkFields(d, NsSoap, faultDetailSchema, c) }
