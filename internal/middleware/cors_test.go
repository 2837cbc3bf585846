package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/config"
)

func TestAllowedOrigins(t *testing.T) {
	dev := AllowedOrigins(&config.Config{Environment: "development", FrontendURL: "http://localhost:5173"})
	if len(dev) != 2 {
		t.Errorf("expected the two dev origins, got %v", dev)
	}
	prod := AllowedOrigins(&config.Config{Environment: "production", FrontendURL: "https://plinko.example"})
	if len(prod) != 1 || prod[0] != "https://plinko.example" {
		t.Errorf("unexpected production origins %v", prod)
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "production", FrontendURL: "https://plinko.example"}

	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		origin string
		want   int
	}{
		{"https://plinko.example", http.StatusOK},
		{"https://evil.example", http.StatusForbidden},
		{"", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("origin %q: got %d, want %d", tc.origin, w.Code, tc.want)
		}
	}

	// Plain requests are not checked
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("non-upgrade request blocked: %d", w.Code)
	}
}
