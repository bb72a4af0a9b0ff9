package decode

import (
	"strings"
	"testing"
)

// crlf converts the readable LF fixtures into wire-format messages.
func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestNormalizeMultipart(t *testing.T) {
	raw := crlf(`From: robot@example.com
To: office@example.com
Subject: =?utf-8?q?=D0=9E=D1=82=D1=87=D0=B5=D1=82?=
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=frontier

--frontier
Content-Type: text/plain; charset=utf-8

Пользователь: Иванов И.И. провел документ
--frontier
Content-Type: text/html; charset=utf-8

<html><body><p>Приходная накл.&nbsp;777</p></body></html>
--frontier
Content-Type: application/octet-stream
Content-Disposition: attachment; filename="report.bin"

AAAA
--frontier--
`)

	got := Normalize(raw)
	if !strings.Contains(got, "Пользователь: Иванов И.И. провел документ") {
		t.Errorf("plain part missing from %q", got)
	}
	if !strings.Contains(got, "Приходная накл. 777") {
		t.Errorf("html part not stripped and entity-decoded in %q", got)
	}
	if strings.Contains(got, "AAAA") {
		t.Errorf("attachment leaked into %q", got)
	}
	if strings.Contains(got, "<p>") || strings.Contains(got, "&nbsp;") {
		t.Errorf("markup survived in %q", got)
	}
}

func TestNormalizeSinglePartHTML(t *testing.T) {
	raw := crlf(`From: robot@example.com
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<div>Пользователь:&nbsp;Петров провел</div><div>Приходная накл. 12 (03.04.2024)</div>
`)

	got := Normalize(raw)
	if !strings.Contains(got, "Пользователь: Петров провел") {
		t.Errorf("entity not decoded in %q", got)
	}
	if !strings.Contains(got, "Приходная накл. 12 (03.04.2024)") {
		t.Errorf("invoice text missing from %q", got)
	}
}

func TestNormalizeSkipsNonTextParts(t *testing.T) {
	raw := crlf(`From: robot@example.com
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=b

--b
Content-Type: application/pdf
Content-Disposition: attachment; filename="a.pdf"

JVBERi0=
--b--
`)

	if got := Normalize(raw); got != "" {
		t.Errorf("Normalize() = %q, want empty", got)
	}
}

func TestNormalizeUnparseableFallsBackToRawBody(t *testing.T) {
	raw := []byte("this is not a mail header\r\n\r\nПриходная накл. 5 (01.01.2024)")

	got := Normalize(raw)
	if !strings.Contains(got, "Приходная накл. 5 (01.01.2024)") {
		t.Errorf("fallback body missing from %q", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); got != "" {
		t.Errorf("Normalize(nil) = %q, want empty", got)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tags become spaces",
			in:   "<p>a</p><p>b</p>",
			want: " a  b ",
		},
		{
			name: "entities decode",
			in:   "накл.&nbsp;777 &amp; ещё",
			want: "накл. 777 & ещё",
		},
		{
			name: "plain text unchanged",
			in:   "просто текст",
			want: "просто текст",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
