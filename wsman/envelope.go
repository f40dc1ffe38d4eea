package wsman

import (
	"encoding/xml"
)

// Envelope represents a SOAP 1.2 envelope for WS-Management messages.
//
// Struct tags carry full namespace URIs so that responses decode by namespace
// rather than by prefix. Use Marshal to write an envelope; it replaces the
// default namespace declarations produced by encoding/xml with the prefixes
// from the namespace table, declared once on the root.
type Envelope struct {
	XMLName xml.Name `xml:"http://www.w3.org/2003/05/soap-envelope Envelope"`
	Header  *Header  `xml:"http://www.w3.org/2003/05/soap-envelope Header"`
	Body    *Body    `xml:"http://www.w3.org/2003/05/soap-envelope Body"`
}

// Header represents the SOAP header containing WS-Addressing and WS-Management headers.
// Every field is optional; unset fields are not written and contribute no
// namespace declaration.
type Header struct {
	To              string           `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing To,omitempty"`
	ReplyTo         *ReplyTo         `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing ReplyTo"`
	MaxEnvelopeSize *MaxEnvelopeSize `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd MaxEnvelopeSize"`
	MessageID       string           `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing MessageID,omitempty"`
	RelatesTo       string           `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing RelatesTo,omitempty"`
	Locale          *Locale          `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd Locale"`
	DataLocale      *Locale          `xml:"http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd DataLocale"`

	// OperationTimeout is an ISO 8601 duration such as "PT20S".
	OperationTimeout string `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd OperationTimeout,omitempty"`

	ResourceURI *MustUnderstandValue `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd ResourceURI"`
	Action      *MustUnderstandValue `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing Action"`
	OptionSet   *OptionSet           `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd OptionSet"`
	SelectorSet *SelectorSet         `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd SelectorSet"`
}

// MustUnderstandValue is a text header carrying the SOAP mustUnderstand flag.
type MustUnderstandValue struct {
	MustUnderstand bool   `xml:"http://www.w3.org/2003/05/soap-envelope mustUnderstand,attr"`
	Value          string `xml:",chardata"`
}

// ReplyTo represents the WS-Addressing ReplyTo element.
type ReplyTo struct {
	Address Address `xml:"http://schemas.xmlsoap.org/ws/2004/08/addressing Address"`
}

// Address is the endpoint address inside ReplyTo.
type Address struct {
	MustUnderstand bool   `xml:"http://www.w3.org/2003/05/soap-envelope mustUnderstand,attr"`
	Value          string `xml:",chardata"`
}

// MaxEnvelopeSize bounds the size in bytes of the response envelope.
type MaxEnvelopeSize struct {
	MustUnderstand bool `xml:"http://www.w3.org/2003/05/soap-envelope mustUnderstand,attr"`
	Value          int  `xml:",chardata"`
}

// Locale is a language tag header (Locale and DataLocale).
type Locale struct {
	MustUnderstand bool   `xml:"http://www.w3.org/2003/05/soap-envelope mustUnderstand,attr"`
	Lang           string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
}

// SelectorSet contains selectors for targeting specific resources.
type SelectorSet struct {
	Selectors []Selector `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd Selector"`
}

// Selector represents a single selector key-value pair.
type Selector struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// OptionSet contains options for the operation.
type OptionSet struct {
	Options []Option `xml:"http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd Option"`
}

// Option represents a single option.
type Option struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// NewEnvelope creates a new SOAP envelope with an empty header and body.
func NewEnvelope() *Envelope {
	return &Envelope{
		Header: &Header{},
		Body:   &Body{},
	}
}

// WithAction sets the WS-Addressing Action header.
func (e *Envelope) WithAction(action string) *Envelope {
	e.Header.Action = &MustUnderstandValue{MustUnderstand: true, Value: action}
	return e
}

// WithTo sets the WS-Addressing To header (the endpoint URL).
func (e *Envelope) WithTo(to string) *Envelope {
	e.Header.To = to
	return e
}

// WithMessageID sets the WS-Addressing MessageID header.
func (e *Envelope) WithMessageID(messageID string) *Envelope {
	e.Header.MessageID = messageID
	return e
}

// WithReplyTo sets the WS-Addressing ReplyTo header.
func (e *Envelope) WithReplyTo(address string) *Envelope {
	e.Header.ReplyTo = &ReplyTo{Address: Address{Value: address}}
	return e
}

// WithResourceURI sets the WS-Management ResourceURI header.
func (e *Envelope) WithResourceURI(uri string) *Envelope {
	e.Header.ResourceURI = &MustUnderstandValue{MustUnderstand: true, Value: uri}
	return e
}

// WithMaxEnvelopeSize sets the WS-Management MaxEnvelopeSize header.
func (e *Envelope) WithMaxEnvelopeSize(size int) *Envelope {
	e.Header.MaxEnvelopeSize = &MaxEnvelopeSize{MustUnderstand: true, Value: size}
	return e
}

// WithOperationTimeout sets the WS-Management OperationTimeout header.
// The timeout should be in ISO 8601 duration format (e.g., "PT60S" for 60 seconds).
func (e *Envelope) WithOperationTimeout(timeout string) *Envelope {
	e.Header.OperationTimeout = timeout
	return e
}

// WithLocale sets the Locale header.
func (e *Envelope) WithLocale(lang string) *Envelope {
	e.Header.Locale = &Locale{Lang: lang}
	return e
}

// WithDataLocale sets the DataLocale header.
func (e *Envelope) WithDataLocale(lang string) *Envelope {
	e.Header.DataLocale = &Locale{Lang: lang}
	return e
}

// WithSelector adds a selector to the SelectorSet.
func (e *Envelope) WithSelector(name, value string) *Envelope {
	if e.Header.SelectorSet == nil {
		e.Header.SelectorSet = &SelectorSet{}
	}
	e.Header.SelectorSet.Selectors = append(e.Header.SelectorSet.Selectors,
		Selector{Name: name, Value: value})
	return e
}

// WithOption adds an option to the OptionSet.
func (e *Envelope) WithOption(name, value string) *Envelope {
	if e.Header.OptionSet == nil {
		e.Header.OptionSet = &OptionSet{}
	}
	e.Header.OptionSet.Options = append(e.Header.OptionSet.Options,
		Option{Name: name, Value: value})
	return e
}

// ShellID returns the value of the ShellId selector, if present.
func (h *Header) ShellID() (string, bool) {
	if h == nil || h.SelectorSet == nil {
		return "", false
	}
	for _, s := range h.SelectorSet.Selectors {
		if s.Name == SelectorShellID {
			return s.Value, true
		}
	}
	return "", false
}

// OptionValue returns the value of the named option, if present.
func (h *Header) OptionValue(name string) (string, bool) {
	if h == nil || h.OptionSet == nil {
		return "", false
	}
	for _, o := range h.OptionSet.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// ActionURI returns the Action header value or "" when unset.
func (h *Header) ActionURI() string {
	if h == nil || h.Action == nil {
		return ""
	}
	return h.Action.Value
}
