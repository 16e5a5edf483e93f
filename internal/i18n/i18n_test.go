package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranslations(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	t.Run("english lookup", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
		got := T(ctx, "LoginError")
		if !strings.Contains(got, "Invalid access code") {
			t.Errorf("LoginError = %q", got)
		}
	})

	t.Run("hindi lookup", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("hi"))
		got := T(ctx, "LoginError")
		if got == "" || got == "LoginError" {
			t.Errorf("hindi LoginError = %q", got)
		}
	})

	t.Run("template data", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
		got := Td(ctx, "StoryTooShort", map[string]any{"Min": 50})
		if !strings.Contains(got, "50") {
			t.Errorf("StoryTooShort = %q, want interpolated minimum", got)
		}
	})

	t.Run("missing id falls back to the id", func(t *testing.T) {
		ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
		if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
			t.Errorf("missing ID = %q, want the ID itself", got)
		}
	})

	t.Run("context without localizer falls back to english", func(t *testing.T) {
		got := T(context.Background(), "SessionNotFound")
		if !strings.Contains(got, "not found") {
			t.Errorf("fallback SessionNotFound = %q", got)
		}
	})
}

func TestMiddlewareLanguageResolution(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}

	handler := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(T(r.Context(), "LoginError")))
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default english", "/api/login", "", "Invalid access code"},
		{"query parameter wins", "/api/login?lang=hi", "", "अमान्य एक्सेस कोड"},
		{"accept-language header", "/api/login", "hi", "अमान्य एक्सेस कोड"},
		{"unknown language falls back", "/api/login?lang=xx", "", "Invalid access code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestInitRejectsBadLanguage(t *testing.T) {
	if err := Init("not a language tag!"); err == nil {
		t.Error("expected an error for an unparseable language tag")
	}
	// Restore a usable bundle for other tests.
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
}
