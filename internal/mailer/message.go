package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// ErrInvalidMessage marks a contact message that fails validation.
var ErrInvalidMessage = errors.New("invalid contact message")

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid contact message: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Is(target error) bool { return target == ErrInvalidMessage }

// ContactMessage is a contact form submission.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Validate checks that name, email and message are present and the email parses.
func (m ContactMessage) Validate() error {
	fe := FieldErrors{}
	if strings.TrimSpace(m.Name) == "" {
		fe["name"] = "Name is required"
	}
	if email := strings.TrimSpace(m.Email); email == "" {
		fe["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fe["email"] = "Invalid email format"
	}
	if strings.TrimSpace(m.Message) == "" {
		fe["message"] = "Message is required"
	} else if len(m.Message) > 10000 {
		fe["message"] = "Message is too long"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (m ContactMessage) subject() string {
	s := strings.TrimSpace(m.Subject)
	if s == "" {
		s = "New contact form message from " + strings.TrimSpace(m.Name)
	}
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
	if utf8.RuneCountInString(s) > maxSubjectRunes {
		s = string([]rune(s)[:maxSubjectRunes])
	}
	return s
}

// sanitizer strips anything unsafe from the rendered Markdown.
var sanitizer = bluemonday.UGCPolicy()

// RenderContactHTML renders the message body as Markdown below a header of
// the sender's details, then sanitizes the result.
func RenderContactHTML(m ContactMessage) (string, error) {
	var src strings.Builder
	src.WriteString("### New contact form message\n\n")
	for _, f := range m.fields() {
		fmt.Fprintf(&src, "- **%s:** %s\n", f[0], escapeInline(f[1]))
	}
	src.WriteString("\n---\n\n")
	src.WriteString(m.Message)
	src.WriteString("\n")

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src.String()), &buf); err != nil {
		return "", err
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// RenderContactText is the plain-text alternative body.
func RenderContactText(m ContactMessage) string {
	var b strings.Builder
	for _, f := range m.fields() {
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
	}
	b.WriteString("\n")
	b.WriteString(m.Message)
	return b.String()
}

func (m ContactMessage) fields() [][2]string {
	out := [][2]string{{"Name", m.Name}, {"Email", m.Email}}
	if m.Phone != "" {
		out = append(out, [2]string{"Phone", m.Phone})
	}
	if m.Company != "" {
		out = append(out, [2]string{"Company", m.Company})
	}
	for i := range out {
		out[i][1] = strings.TrimSpace(out[i][1])
	}
	return out
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "\n", " ", "\r", " ",
)

// escapeInline keeps sender details from being read as Markdown.
func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}
