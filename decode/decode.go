package decode

import (
	"bytes"
	"errors"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/filter"
)

func init() {
	// The 1C notification relay still sends windows-1251 and koi8-r
	// bodies depending on the sending workstation.
	charset.RegisterEncoding("windows-1251", charmap.Windows1251)
	charset.RegisterEncoding("koi8-r", charmap.KOI8R)
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Normalize turns a raw MIME message into a single text blob: every
// inline text/plain and text/html part in original order, joined by
// newlines, with HTML reduced to its text content. A message without
// usable text parts yields an empty string, never an error.
func Normalize(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		mr = nil
	}
	if mr == nil {
		return fallbackText(raw)
	}
	defer mr.Close()

	var parts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}
		if part == nil {
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			// Attachments are never scanned for records.
			continue
		}

		ctype, _, _ := inline.ContentType()
		if ctype != "text/plain" && ctype != "text/html" {
			continue
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		text := strings.ToValidUTF8(string(body), "")
		if ctype == "text/html" {
			text = StripHTML(text)
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n")
}

// StripHTML replaces tag markup with spaces and decodes entities,
// leaving only the text content.
func StripHTML(s string) string {
	return html.UnescapeString(htmlTagPattern.ReplaceAllString(s, " "))
}

// fallbackText handles messages whose MIME structure cannot be parsed:
// whatever follows the header block is treated as plain text, with
// undecodable bytes dropped.
func fallbackText(raw []byte) string {
	_, body := filter.SplitRawMessage(raw)
	return strings.ToValidUTF8(string(body), "")
}
