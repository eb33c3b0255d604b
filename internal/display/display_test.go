package display

import (
	"bytes"
	"testing"
)

func TestPrint_Text(t *testing.T) {
	var stdout, stderr bytes.Buffer
	kind := Print(&stdout, &stderr, "/etc/hostname", []byte("hello\n"))

	if kind != KindText {
		t.Errorf("expected text, got %s", kind)
	}
	if stdout.String() != "hello\n" {
		t.Errorf("expected stdout %q, got %q", "hello\n", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("expected empty stderr, got %q", stderr.String())
	}
}

func TestPrint_MultibyteText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	content := []byte("héllo wörld ✓")
	Print(&stdout, &stderr, "/tmp/u", content)

	if !bytes.Equal(stdout.Bytes(), content) {
		t.Errorf("expected stdout %q, got %q", content, stdout.Bytes())
	}
	if stderr.Len() != 0 {
		t.Errorf("expected empty stderr, got %q", stderr.String())
	}
}

func TestPrint_Binary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	kind := Print(&stdout, &stderr, "/bin/ls", []byte{0x7f, 'E', 'L', 'F', 0xff, 0xfe})

	if kind != KindBinary {
		t.Errorf("expected binary, got %s", kind)
	}
	if stdout.Len() != 0 {
		t.Errorf("binary content leaked to stdout: %q", stdout.String())
	}
	if stderr.String() != "\"/bin/ls\" is a binary file\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestPrint_EmptyAndNil(t *testing.T) {
	for _, content := range [][]byte{nil, {}} {
		var stdout, stderr bytes.Buffer
		kind := Print(&stdout, &stderr, "/etc", content)

		if kind != KindDir {
			t.Errorf("expected dir, got %s", kind)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected empty stdout, got %q", stdout.String())
		}
		if stderr.String() != "\"/etc\" is a dir\n" {
			t.Errorf("unexpected stderr %q", stderr.String())
		}
	}
}
