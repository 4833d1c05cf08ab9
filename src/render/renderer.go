// Package render turns one conversation record into a formatted markdown
// document.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/dustin/go-humanize"

	"github.com/ehorne/chatvault/src/model"
)

const timestampFormat = "2006-01-02 15:04:05"

// titleMaxLen caps titles derived from message text.
const titleMaxLen = 50

// RenderError wraps any failure while rendering a single conversation.
// Callers skip-and-continue; one bad render must not abort a run.
type RenderError struct {
	UUID string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering conversation %s: %v", e.UUID, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer produces markdown documents from conversations. Output is
// deterministic for identical input aside from the stamped generation
// timestamp, which comes from Now.
type Renderer struct {
	Now func() time.Time

	htmlConv *md.Converter
}

// New returns a Renderer stamping documents with the current time.
func New() *Renderer {
	return &Renderer{
		Now:      time.Now,
		htmlConv: md.NewConverter("", true, nil),
	}
}

// Render produces the full document for conv. Any panic while walking the
// record is recovered into a *RenderError.
func (r *Renderer) Render(conv model.Conversation) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &RenderError{UUID: conv.UUID, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	var sb strings.Builder
	sb.WriteString("# " + Title(conv) + "\n\n")
	r.writeMetadata(&sb, conv)
	for _, msg := range conv.ChatMessages {
		r.writeMessage(&sb, msg)
	}
	r.writeFooter(&sb, conv)
	return sb.String(), nil
}

// Title resolves the document title: the conversation name, else the first
// line of the first message's text ellipsized to 50 chars, else a fallback
// built from the uuid.
func Title(conv model.Conversation) string {
	if name := strings.TrimSpace(conv.Name); name != "" {
		return name
	}
	for _, msg := range conv.ChatMessages {
		text := strings.TrimSpace(msg.PlainText())
		if text == "" {
			continue
		}
		line := text
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		return ellipsize(line, titleMaxLen)
	}
	id := conv.UUID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Conversation " + id
}

func ellipsize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func (r *Renderer) writeMetadata(sb *strings.Builder, conv model.Conversation) {
	var lines []string
	if ts := formatTimestamp(conv.CreatedAt); ts != "" {
		lines = append(lines, "- **Created:** "+ts)
	}
	if ts := formatTimestamp(conv.UpdatedAt); ts != "" {
		lines = append(lines, "- **Updated:** "+ts)
	}
	if conv.Account != nil && conv.Account.UUID != "" {
		lines = append(lines, "- **Account:** "+conv.Account.UUID)
	}
	if len(lines) == 0 {
		return
	}
	sb.WriteString("## Metadata\n\n")
	for _, line := range lines {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
}

func (r *Renderer) writeMessage(sb *strings.Builder, msg model.Message) {
	header := "## " + senderLabel(msg.Sender)
	if ts := formatTimestamp(msg.CreatedAt); ts != "" {
		header += " (" + ts + ")"
	}
	sb.WriteString(header + "\n\n")

	if msg.Text != "" {
		r.writeText(sb, msg.Text)
	} else {
		for _, item := range msg.Content {
			switch item.Type {
			case model.ContentTypeText:
				r.writeText(sb, item.Text)
			case model.ContentTypeToolUse:
				r.writeToolUse(sb, item)
			case model.ContentTypeToolResult:
				r.writeToolResult(sb, item)
			default:
				// Unknown item types are skipped, not rejected, so newer
				// exports still render.
			}
		}
	}
	r.writeAttachments(sb, msg.Attachments)
}

// writeText renders a plain text body: fences normalized, RTL text
// repaired and wrapped in a directional block.
func (r *Renderer) writeText(sb *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	text = NormalizeCodeBlocks(text)
	if IsRTL(text) {
		text = WrapRTL(RepairText(text))
	}
	sb.WriteString(text + "\n\n")
}

func (r *Renderer) writeToolUse(sb *strings.Builder, item model.ContentItem) {
	sb.WriteString("### Tool Use: " + item.Name + "\n\n")
	if len(item.Input) > 0 {
		sb.WriteString("```json\n" + prettyJSON(item.Input) + "\n```\n\n")
	}
}

func (r *Renderer) writeToolResult(sb *strings.Builder, item model.ContentItem) {
	sb.WriteString("### Tool Result: " + item.Name + "\n\n")
	if item.IsError {
		sb.WriteString("**Error:** the tool reported a failure.\n\n")
	}
	text, isText := toolResultText(item.Content)
	switch {
	case isText && strings.TrimSpace(text) != "":
		sb.WriteString("```\n" + text + "\n```\n\n")
	case !isText && len(item.Content) > 0:
		sb.WriteString("```json\n" + prettyJSON(item.Content) + "\n```\n\n")
	}
}

// toolResultText extracts a textual tool result. The export stores results
// either as a bare string or as a nested array of text items.
func toolResultText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var items []model.ContentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		var parts []string
		for _, item := range items {
			if item.Type == model.ContentTypeText && item.Text != "" {
				parts = append(parts, item.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), true
		}
	}
	return "", false
}

func (r *Renderer) writeAttachments(sb *strings.Builder, attachments []model.Attachment) {
	if len(attachments) == 0 {
		return
	}
	sb.WriteString("### Attachments\n\n")
	for _, att := range attachments {
		name := att.FileName
		if name == "" {
			name = "attachment"
		}
		detail := att.FileType
		if att.FileSize > 0 {
			size := humanize.Bytes(uint64(att.FileSize))
			if detail != "" {
				detail += ", " + size
			} else {
				detail = size
			}
		}
		if detail != "" {
			sb.WriteString("- **" + name + "** (" + detail + ")\n")
		} else {
			sb.WriteString("- **" + name + "**\n")
		}
		if content := r.attachmentContent(att); content != "" {
			if IsRTL(content) {
				content = WrapRTL(RepairText(content))
			}
			sb.WriteString("\n```\n" + content + "\n```\n")
		}
	}
	sb.WriteString("\n")
}

// attachmentContent returns the extracted content of an attachment, with
// HTML converted to markdown. Conversion failures fall back to the raw
// extracted text.
func (r *Renderer) attachmentContent(att model.Attachment) string {
	content := strings.TrimSpace(att.ExtractedContent)
	if content == "" {
		return ""
	}
	if strings.Contains(att.FileType, "html") && r.htmlConv != nil {
		if converted, err := r.htmlConv.ConvertString(content); err == nil {
			return strings.TrimSpace(converted)
		}
	}
	return content
}

func (r *Renderer) writeFooter(sb *strings.Builder, conv model.Conversation) {
	sb.WriteString("---\n\n")
	stamp := r.Now().Format(timestampFormat)
	sb.WriteString(fmt.Sprintf("*Generated at %s | Source: https://claude.ai/chat/%s*\n", stamp, conv.UUID))
}

func senderLabel(sender string) string {
	if sender == model.SenderHuman {
		return "User"
	}
	return "Claude"
}

// formatTimestamp renders an export timestamp as "YYYY-MM-DD HH:mm:ss",
// or empty when absent or unparseable.
func formatTimestamp(s string) string {
	t, ok := model.ParseTimestamp(s)
	if !ok {
		return ""
	}
	return t.Format(timestampFormat)
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
