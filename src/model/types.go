// Package model defines the record types found in a chat export archive
// and the fields the sync pipeline adds to them.
package model

import "encoding/json"

// Sender values used by export messages.
const (
	SenderHuman     = "human"
	SenderAssistant = "assistant"
)

// Content item type tags. Unknown tags are ignored during rendering.
const (
	ContentTypeText       = "text"
	ContentTypeToolUse    = "tool_use"
	ContentTypeToolResult = "tool_result"
)

// Account is a reference to the account that owns a conversation.
type Account struct {
	UUID string `json:"uuid,omitempty"`
}

// Conversation is one chat session from the export. Timestamps are kept
// verbatim as the export's ISO-8601 strings; parsing happens only where a
// formatted value is needed. Processed and MarkdownPath are owned by the
// sync pipeline, not the export.
type Conversation struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name,omitempty"`
	CreatedAt    string    `json:"created_at,omitempty"`
	UpdatedAt    string    `json:"updated_at,omitempty"`
	Account      *Account  `json:"account,omitempty"`
	ChatMessages []Message `json:"chat_messages,omitempty"`

	Processed    bool   `json:"processed,omitempty"`
	MarkdownPath string `json:"markdownPath,omitempty"`
}

// Message is a single turn in a conversation. Content is either the plain
// Text field or the typed Content sequence; exports use one or the other.
type Message struct {
	UUID        string        `json:"uuid,omitempty"`
	Sender      string        `json:"sender,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
	Text        string        `json:"text,omitempty"`
	Content     []ContentItem `json:"content,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// ContentItem is the tagged union of message content shapes. Input and
// Content stay raw so tool payloads of any shape survive a round trip.
type ContentItem struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	FileName         string `json:"file_name,omitempty"`
	FileType         string `json:"file_type,omitempty"`
	FileSize         int64  `json:"file_size,omitempty"`
	ExtractedContent string `json:"extracted_content,omitempty"`
}

// User is an account holder from the optional users collection.
type User struct {
	UUID         string `json:"uuid"`
	FullName     string `json:"full_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// Creator is a reference to the user that created a project.
type Creator struct {
	UUID string `json:"uuid,omitempty"`
}

// Project is a record from the optional projects collection.
type Project struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	Creator     *Creator `json:"creator,omitempty"`
}

// Metadata is the store-level bookkeeping record, written once per run.
type Metadata struct {
	LastProcessed string         `json:"lastProcessed,omitempty"`
	Version       int            `json:"version"`
	Stats         map[string]int `json:"stats,omitempty"`
}

// PlainText returns the message body as plain text: the Text field when
// present, otherwise the concatenation of text content items.
func (m Message) PlainText() string {
	if m.Text != "" {
		return m.Text
	}
	var out string
	for _, item := range m.Content {
		if item.Type == ContentTypeText && item.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += item.Text
		}
	}
	return out
}
