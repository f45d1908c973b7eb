package voice

import (
	"encoding/xml"
	"strconv"
)

// Response is a provider-agnostic voice-markup document (TwiML wire
// format). Verbs are rendered in the order they are appended.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []interface{}
}

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type gatherVerb struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr"`
	Timeout   int      `xml:"timeout,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Say       *sayVerb
}

type recordVerb struct {
	XMLName                       xml.Name `xml:"Record"`
	MaxLength                     int      `xml:"maxLength,attr"`
	PlayBeep                      bool     `xml:"playBeep,attr"`
	Trim                          string   `xml:"trim,attr,omitempty"`
	RecordingStatusCallback       string   `xml:"recordingStatusCallback,attr"`
	RecordingStatusCallbackMethod string   `xml:"recordingStatusCallbackMethod,attr"`
}

type redirectVerb struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

func NewResponse() *Response {
	return &Response{}
}

// Say appends a spoken prompt.
func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, sayVerb{Text: text})
	return r
}

// Gather collects numDigits DTMF digits and posts them to action. The
// prompt is spoken inside the gather so the caller can barge in.
func (r *Response) Gather(numDigits, timeoutSec int, action, prompt string) *Response {
	g := gatherVerb{
		NumDigits: numDigits,
		Timeout:   timeoutSec,
		Action:    action,
		Method:    "POST",
	}
	if prompt != "" {
		g.Say = &sayVerb{Text: prompt}
	}
	r.Verbs = append(r.Verbs, g)
	return r
}

// Record starts a recording with a beep and registers the completion callback.
func (r *Response) Record(maxLengthSec int, statusCallback string) *Response {
	r.Verbs = append(r.Verbs, recordVerb{
		MaxLength:                     maxLengthSec,
		PlayBeep:                      true,
		Trim:                          "do-not-trim",
		RecordingStatusCallback:       statusCallback,
		RecordingStatusCallbackMethod: "POST",
	})
	return r
}

// Redirect sends the call flow to another webhook URL.
func (r *Response) Redirect(url string) *Response {
	r.Verbs = append(r.Verbs, redirectVerb{Method: "POST", URL: url})
	return r
}

// Hangup terminates the call.
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, hangupVerb{})
	return r
}

// Render serializes the document with the XML declaration the telephony
// provider expects.
func (r *Response) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}

// MarshalXML flattens the verb list under <Response>.
func (r *Response) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Response"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, v := range r.Verbs {
		if err := e.Encode(v); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// MarshalXML renders the nested prompt inside <Gather>.
func (g gatherVerb) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Gather"}
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "numDigits"}, Value: strconv.Itoa(g.NumDigits)},
		{Name: xml.Name{Local: "timeout"}, Value: strconv.Itoa(g.Timeout)},
		{Name: xml.Name{Local: "action"}, Value: g.Action},
		{Name: xml.Name{Local: "method"}, Value: g.Method},
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if g.Say != nil {
		if err := e.Encode(*g.Say); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
