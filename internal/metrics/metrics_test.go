package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestInstrumentAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Instrument())
	r.GET("/api/v1/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/items/7", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	m.ObserveRedemption("success")
	m.ObserveNotification("violation", "sent")
	m.ObserveSecurityEvent("LOCK")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	out := string(body)

	for _, want := range []string{
		`http_requests_total{method="GET",route="/api/v1/items/:id",status="204"} 1`,
		`access_code_redemptions_total{outcome="success"} 1`,
		`notifications_total{kind="violation",result="sent"} 1`,
		`security_events_total{type="LOCK"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRedemption("success")
	m.ObserveNotification("test", "sent")
	m.ObserveSecurityEvent("LOCK")
}
