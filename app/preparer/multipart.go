package preparer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MultipartPreparer assembles a multipart/alternative MIME message with a
// text/plain fallback followed by the text/html body.
type MultipartPreparer struct {
	source string
	now    func() time.Time
}

// NewMultipartPreparer creates a preparer that sends from source.
func NewMultipartPreparer(source string) *MultipartPreparer {
	return &MultipartPreparer{source: source, now: time.Now}
}

// Prepare writes headers and both alternatives into msg.Raw.
func (p *MultipartPreparer) Prepare(_ context.Context, msg *Message) error {
	if strings.TrimSpace(p.source) == "" {
		return fmt.Errorf("source email is required")
	}
	if strings.TrimSpace(msg.Recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	for _, v := range []string{p.source, msg.Recipient, msg.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("header value contains invalid characters")
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePart(mw, "text/plain", msg.PlainText); err != nil {
		return err
	}
	if err := writePart(mw, "text/html", msg.HTML); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("From: " + p.source + "\r\n")
	b.WriteString("To: " + msg.Recipient + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + p.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: <" + uuid.NewString() + "@" + domainOf(p.source) + ">\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"\r\n")
	b.WriteString("\r\n")
	b.Write(body.Bytes())

	msg.Raw = b.Bytes()
	return nil
}

func writePart(mw *multipart.Writer, contentType string, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=UTF-8")
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return qp.Close()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return strings.Trim(address[i+1:], "> ")
	}
	return "localhost"
}
