package opener

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"wamsg/internal/dispatch"
	logx "wamsg/pkg/logx"
)

func TestWriterPrintsLinks(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.Open(context.Background(), "https://wa.me/1?text=a")
	_ = w.Open(context.Background(), "https://wa.me/2?text=a")
	if got, want := buf.String(), "https://wa.me/1?text=a\nhttps://wa.me/2?text=a\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestBrowserStartFailureIsRefusal(t *testing.T) {
	t.Parallel()
	b := NewBrowser(logx.Nop())
	b.command = func(url string) *exec.Cmd { return exec.Command("/nonexistent/wamsg-url-handler", url) }
	err := b.Open(context.Background(), "https://wa.me/1")
	if !errors.Is(err, dispatch.ErrRefused) {
		t.Fatalf("err = %v, want ErrRefused", err)
	}
}

func TestNewSelectsKind(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if o, err := New(Config{Kind: "stdout"}, &buf, logx.Nop()); err != nil {
		t.Fatalf("stdout: %v", err)
	} else if _, ok := o.(*Writer); !ok {
		t.Fatalf("stdout: got %T", o)
	}
	if o, err := New(Config{}, &buf, logx.Nop()); err != nil {
		t.Fatalf("default: %v", err)
	} else if _, ok := o.(*Browser); !ok {
		t.Fatalf("default: got %T", o)
	}
	if _, err := New(Config{Kind: "fax"}, &buf, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := New(Config{Kind: "telegram"}, &buf, logx.Nop()); err == nil {
		t.Fatal("expected error for telegram without token")
	}
}

func TestLinkCard(t *testing.T) {
	t.Parallel()
	got := linkCard("https://wa.me/628123?text=Hi%20%3Cthere%3E%2F").String()
	want := "<b>Message to +628123</b>\n<blockquote>Hi &lt;there&gt;/</blockquote>"
	if got != want {
		t.Fatalf("linkCard = %q, want %q", got, want)
	}
}
