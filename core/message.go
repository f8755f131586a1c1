package core

// Attachment is a binary or referenced payload attached to an InputMessage.
// Exactly one of Data or URI should be set; MimeType describes the payload
// either way.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// InputMessage is a caller-supplied conversation input. It is immutable after
// construction and consumed exactly once by the execution loop.
type InputMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewInputMessage constructs an InputMessage, rejecting empty text.
func NewInputMessage(text string, attachments ...Attachment) (InputMessage, error) {
	if text == "" {
		return InputMessage{}, NewValidationError("text", "message text must not be empty")
	}
	for i, a := range attachments {
		if a.MimeType == "" {
			return InputMessage{}, NewValidationError("attachments", "attachment mime type must not be empty")
		}
		if len(a.Data) == 0 && a.URI == "" {
			return InputMessage{}, &ValidationError{
				Field:   "attachments",
				Value:   i,
				Message: "attachment must carry either data or a URI",
			}
		}
	}
	return InputMessage{Text: text, Attachments: attachments}, nil
}

// OutputChunk is one fragment of the agent's streamed response. Chunks within
// a turn are strictly ordered; consumers concatenate non-final chunks and
// treat Final as the end of the turn's output.
type OutputChunk struct {
	Content string `json:"content"`
	Final   bool   `json:"final"`
	Turn    int    `json:"turn"`
}
