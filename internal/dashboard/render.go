package dashboard

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"

	"carewatch.dev/carewatch/pkg/metrics"
)

// render writes a component to the response with metrics tracking.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, name string, c templ.Component) {
	if err := trackTemplateRender(ctx, w, s.metrics, name, c); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// trackTemplateRender wraps template rendering with metrics tracking.
func trackTemplateRender(ctx context.Context, w http.ResponseWriter, m *metrics.DashboardMetrics, templateName string, c templ.Component) error {
	if m == nil {
		return c.Render(ctx, w)
	}

	timer := prometheus.NewTimer(m.TemplateRenderTime.WithLabelValues(templateName))
	defer timer.ObserveDuration()

	err := c.Render(ctx, w)
	if err != nil {
		m.TemplateRenderErrors.WithLabelValues(templateName, "render_error").Inc()
		return err
	}

	return nil
}
