package careapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"carewatch.dev/carewatch/internal/careapi"
	"carewatch.dev/carewatch/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestClient(handler http.Handler) (*careapi.Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client, err := careapi.NewClient(&careapi.Config{
		Logger:  testLogger(),
		BaseURL: srv.URL,
		Token:   "secret-token",
	})
	Expect(err).NotTo(HaveOccurred())
	return client, srv
}

var _ = Describe("Client", func() {
	ctx := context.Background()

	Describe("NewClient", func() {
		It("should reject a nil config", func() {
			_, err := careapi.NewClient(nil)
			Expect(err).To(MatchError("client config cannot be nil"))
		})

		It("should reject a nil logger", func() {
			_, err := careapi.NewClient(&careapi.Config{BaseURL: "http://localhost"})
			Expect(err).To(MatchError("logger cannot be nil"))
		})

		It("should reject an empty base URL", func() {
			_, err := careapi.NewClient(&careapi.Config{Logger: testLogger()})
			Expect(err).To(MatchError("base URL cannot be empty"))
		})

		It("should tolerate a trailing slash in the base URL", func() {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			client, err := careapi.NewClient(&careapi.Config{Logger: testLogger(), BaseURL: srv.URL + "/"})
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Devices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotPath).To(Equal("/api/devices"))
		})
	})

	Describe("authentication", func() {
		It("should send the token as both bearer and API key", func() {
			var auth, apiKey string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				apiKey = r.Header.Get("X-API-Key")
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			_, err := client.Devices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(auth).To(Equal("Bearer secret-token"))
			Expect(apiKey).To(Equal("secret-token"))
		})

		It("should omit auth headers when no token is configured", func() {
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			client, err := careapi.NewClient(&careapi.Config{Logger: testLogger(), BaseURL: srv.URL})
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Devices(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(auth).To(BeEmpty())
		})
	})

	Describe("Alerts", func() {
		It("should pass the query as request parameters", func() {
			var query map[string][]string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			_, err := client.Alerts(ctx, careapi.AlertQuery{
				Status:      model.StatusOpen,
				Type:        model.TypeInactivity,
				Room:        "kitchen",
				LastMinutes: 60,
				Limit:       50,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(query).To(HaveKeyWithValue("status", []string{"open"}))
			Expect(query).To(HaveKeyWithValue("type", []string{"INACTIVITY"}))
			Expect(query).To(HaveKeyWithValue("room", []string{"kitchen"}))
			Expect(query).To(HaveKeyWithValue("last_minutes", []string{"60"}))
			Expect(query).To(HaveKeyWithValue("limit", []string{"50"}))
		})

		It("should omit zero-valued filters but always send a limit", func() {
			var query map[string][]string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			_, err := client.Alerts(ctx, careapi.AlertQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(query).NotTo(HaveKey("status"))
			Expect(query).NotTo(HaveKey("last_minutes"))
			Expect(query).To(HaveKeyWithValue("limit", []string{"1000"}))
		})

		It("should decode the alert collection", func() {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`[{"id":7,"ts_utc":"2025-06-15 11:00:00","status":"open","ack_at":null}]`))
			}))
			defer srv.Close()

			alerts, err := client.Alerts(ctx, careapi.AlertQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].ID).To(Equal(int64(7)))
			Expect(alerts[0].AckAt).To(BeEmpty())
		})
	})

	Describe("AckAlert", func() {
		It("should post the operator name in the body", func() {
			var path string
			var body map[string]string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				_, _ = w.Write([]byte(`{"id":7,"status":"open","ack_at":"2025-06-15 11:05:00","ack_by":"alice"}`))
			}))
			defer srv.Close()

			alert, err := client.AckAlert(ctx, 7, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("/api/alerts/7/ack"))
			Expect(body).To(HaveKeyWithValue("by", "alice"))
			Expect(alert.AckBy).To(Equal("alice"))
		})
	})

	Describe("error mapping", func() {
		It("should surface non-2xx responses as a StatusError with the body", func() {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "alert not found", http.StatusNotFound)
			}))
			defer srv.Close()

			_, err := client.CloseAlert(ctx, 99)
			var statusErr *careapi.StatusError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusNotFound))
			Expect(statusErr.Body).To(Equal("alert not found"))
		})

		DescribeTable("should map missing purge endpoints to ErrUnsupported",
			func(code int) {
				client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(code)
				}))
				defer srv.Close()

				_, err := client.PurgeAlerts(ctx, 30)
				Expect(err).To(MatchError(careapi.ErrUnsupported))
			},
			Entry("404 not found", http.StatusNotFound),
			Entry("405 method not allowed", http.StatusMethodNotAllowed),
			Entry("501 not implemented", http.StatusNotImplemented),
		)

		It("should keep a genuine purge failure as a StatusError", func() {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			_, err := client.PurgeAlerts(ctx, 30)
			Expect(err).NotTo(MatchError(careapi.ErrUnsupported))
			var statusErr *careapi.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("UnregisterDevice", func() {
		It("should escape the device id in the path", func() {
			var path string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.EscapedPath()
				_, _ = w.Write([]byte("{}"))
			}))
			defer srv.Close()

			Expect(client.UnregisterDevice(ctx, "esp/01")).To(Succeed())
			Expect(path).To(Equal("/api/devices/esp%2F01/unregister"))
		})
	})

	Describe("SaveRuleSettings", func() {
		It("should PUT the full settings map", func() {
			var method string
			var body model.RuleSettings
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				_, _ = w.Write([]byte("{}"))
			}))
			defer srv.Close()

			settings := model.RuleSettings{"inactive.threshold_day_min": "240"}
			Expect(client.SaveRuleSettings(ctx, settings)).To(Succeed())
			Expect(method).To(Equal(http.MethodPut))
			Expect(body).To(HaveKeyWithValue("inactive.threshold_day_min", "240"))
		})
	})

	Describe("SetRoomLED", func() {
		It("should post the LED state to the room path", func() {
			var path string
			var body map[string]bool
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				_, _ = w.Write([]byte("{}"))
			}))
			defer srv.Close()

			Expect(client.SetRoomLED(ctx, "kitchen", true)).To(Succeed())
			Expect(path).To(Equal("/api/rooms/kitchen/led"))
			Expect(body).To(HaveKeyWithValue("on", true))
		})
	})
})
