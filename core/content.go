package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// FilePart references an input attachment inside conversation content.
type FilePart struct {
	MimeType string
	Data     []byte
	URI      string
}

func (FilePart) isPart() {}

// FunctionCall describes a tool invocation requested by the model. Arguments
// is the raw serialized argument payload (JSON).
type FunctionCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call fed back into the
// conversation so the model can adapt to tool failures.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

func (FunctionResponsePart) isPart() {}

// Content holds a conversation role plus ordered heterogeneous parts. It is
// the unit of conversation context submitted to the model backend.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewUserContent builds user-role content from an InputMessage, converting
// attachments to file parts in order.
func NewUserContent(msg InputMessage) Content {
	parts := []Part{TextPart{Text: msg.Text}}
	for _, a := range msg.Attachments {
		parts = append(parts, FilePart{MimeType: a.MimeType, Data: a.Data, URI: a.URI})
	}
	return Content{Role: "user", Parts: parts}
}

// NewAssistantText builds assistant-role content holding a single text part.
func NewAssistantText(text string) Content {
	return Content{Role: "assistant", Parts: []Part{TextPart{Text: text}}}
}

// NewToolResponseContent builds tool-role content carrying one function response.
func NewToolResponseContent(fr FunctionResponse) Content {
	return Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
}

// Text concatenates all text parts preserving order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// FunctionCalls returns any function call parts preserving original order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}
