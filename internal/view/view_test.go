package view

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/msomdec/picprompt/internal/domain"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestHomePage_SignedOut(t *testing.T) {
	html := render(t, HomePage(nil, nil))
	if !strings.Contains(html, `id="signed-out"`) {
		t.Fatal("expected sign-in prompt")
	}
	if strings.Contains(html, `id="generator"`) {
		t.Fatal("generator must not render without a user")
	}
}

func TestHomePage_SignedInEscapesContent(t *testing.T) {
	user := &domain.User{DisplayName: "<b>Eve</b>", CreditBalance: 3}
	recent := []domain.Generation{{ID: "g1", Prompt: `a "fox" <script>`, ImageRef: "data:image/png;base64,AA==", CreatedAt: time.Now()}}

	html := render(t, HomePage(user, recent))
	if strings.Contains(html, "<b>Eve</b>") || strings.Contains(html, "<script>") {
		t.Fatal("user content must be escaped")
	}
	if !strings.Contains(html, `data-signals="{&#34;prompt&#34;:&#34;&#34;,&#34;creditBalance&#34;:3,`) {
		t.Fatal("expected initial balance signal")
	}
	if !strings.Contains(html, "data:image/png;base64,AA==") {
		t.Fatal("expected history image")
	}
}

func TestHomePage_EmptyHistory(t *testing.T) {
	html := render(t, HomePage(&domain.User{DisplayName: "Ann", CreditBalance: 5}, nil))
	if !strings.Contains(html, "No generations yet.") {
		t.Fatal("expected empty history message")
	}
	if !strings.Contains(html, `<span data-text="$creditBalance">5</span>`) {
		t.Fatal("expected rendered balance")
	}
}

func TestGeneratedImage_KeepsDataURI(t *testing.T) {
	gen := &domain.Generation{ID: "abc", Prompt: `<img onerror="x">`}
	html := render(t, GeneratedImage(gen, "data:image/png;base64,iVBORw0KGgo="))

	if !strings.Contains(html, `<figure id="result-abc">`) {
		t.Fatalf("expected figure id in %q", html)
	}
	if !strings.Contains(html, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Fatalf("data URI must be rendered as is, got %q", html)
	}
	if strings.Contains(html, `<img onerror`) {
		t.Fatal("prompt must be escaped")
	}
}
