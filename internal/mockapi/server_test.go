package mockapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"carewatch.dev/carewatch/internal/mockapi"
	"carewatch.dev/carewatch/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newMockServer() *httptest.Server {
	server, err := mockapi.NewServer(&mockapi.Config{
		Logger: testLogger(),
		Seed:   42,
	})
	Expect(err).NotTo(HaveOccurred())
	return httptest.NewServer(server.Handler())
}

func getJSON(url string, out any) {
	resp, err := http.Get(url)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
}

func postJSON(url string, body any) *http.Response {
	var reader bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&reader).Encode(body)).To(Succeed())
	}
	resp, err := http.Post(url, "application/json", &reader)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("Server", func() {
	var srv *httptest.Server

	BeforeEach(func() {
		srv = newMockServer()
		DeferCleanup(srv.Close)
	})

	Describe("NewServer", func() {
		It("should reject a nil config", func() {
			_, err := mockapi.NewServer(nil)
			Expect(err).To(MatchError("server config cannot be nil"))
		})

		It("should reject a nil logger", func() {
			_, err := mockapi.NewServer(&mockapi.Config{})
			Expect(err).To(MatchError("logger cannot be nil"))
		})

		It("should produce the same identities for the same seed", func() {
			a := newMockServer()
			defer a.Close()
			b := newMockServer()
			defer b.Close()

			ids := func(url string) []string {
				var devices []model.Device
				getJSON(url+"/api/devices", &devices)
				out := make([]string, len(devices))
				for i, d := range devices {
					out[i] = d.DeviceID
				}
				return out
			}
			Expect(ids(a.URL)).To(Equal(ids(b.URL)))
		})
	})

	Describe("alerts", func() {
		It("should serve the seeded collection", func() {
			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts", &alerts)
			Expect(alerts).To(HaveLen(40))
		})

		It("should filter by status", func() {
			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open", &alerts)
			Expect(alerts).NotTo(BeEmpty())
			for _, a := range alerts {
				Expect(a.Status).To(Equal(model.StatusOpen))
			}
		})

		It("should honor the limit parameter", func() {
			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts?limit=5", &alerts)
			Expect(alerts).To(HaveLen(5))
		})
	})

	Describe("ack", func() {
		It("should set ack_at and refuse a second ack", func() {
			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open", &alerts)

			var target model.Alert
			for _, a := range alerts {
				if a.CanAck() {
					target = a
					break
				}
			}
			Expect(target.ID).NotTo(BeZero())

			url := fmt.Sprintf("%s/api/alerts/%d/ack", srv.URL, target.ID)
			resp := postJSON(url, map[string]string{"by": "alice"})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var acked model.Alert
			Expect(json.NewDecoder(resp.Body).Decode(&acked)).To(Succeed())
			Expect(acked.AckAt).NotTo(BeEmpty())
			Expect(acked.AckBy).To(Equal("alice"))

			again := postJSON(url, map[string]string{"by": "bob"})
			defer again.Body.Close()
			Expect(again.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should return 404 for an unknown alert", func() {
			resp := postJSON(srv.URL+"/api/alerts/999999/ack", map[string]string{"by": "alice"})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("close", func() {
		It("should close an open alert exactly once", func() {
			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open&limit=1", &alerts)
			Expect(alerts).To(HaveLen(1))

			url := fmt.Sprintf("%s/api/alerts/%d/close", srv.URL, alerts[0].ID)
			resp := postJSON(url, nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var closed model.Alert
			Expect(json.NewDecoder(resp.Body).Decode(&closed)).To(Succeed())
			Expect(closed.Status).To(Equal(model.StatusClosed))
			Expect(closed.ClosedAt).NotTo(BeEmpty())

			again := postJSON(url, nil)
			defer again.Body.Close()
			Expect(again.StatusCode).To(Equal(http.StatusConflict))
		})
	})

	Describe("close-bulk", func() {
		It("should close matching alerts and report the count", func() {
			var before []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open", &before)

			resp := postJSON(srv.URL+"/api/alerts/close-bulk?status=open", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string]int
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result["closed"]).To(Equal(len(before)))

			var after []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open", &after)
			Expect(after).To(BeEmpty())
		})
	})

	Describe("purge", func() {
		It("should require a positive age", func() {
			resp := postJSON(srv.URL+"/api/alerts/purge", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should remove only old closed alerts", func() {
			resp := postJSON(srv.URL+"/api/alerts/purge?older_than_days=1", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var alerts []model.Alert
			getJSON(srv.URL+"/api/alerts?status=open", &alerts)
			Expect(alerts).NotTo(BeEmpty())
		})
	})

	Describe("devices", func() {
		It("should register a new device once", func() {
			body := map[string]string{"device_id": "esp8266-test", "room": "Kitchen"}
			resp := postJSON(srv.URL+"/api/devices/register", body)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			dup := postJSON(srv.URL+"/api/devices/register", body)
			defer dup.Body.Close()
			Expect(dup.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should require a device id on register", func() {
			resp := postJSON(srv.URL+"/api/devices/register", map[string]string{"room": "Kitchen"})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should unregister an existing device", func() {
			var devices []model.Device
			getJSON(srv.URL+"/api/devices", &devices)
			Expect(devices).NotTo(BeEmpty())

			resp := postJSON(srv.URL+"/api/devices/"+devices[0].DeviceID+"/unregister", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var after []model.Device
			getJSON(srv.URL+"/api/devices", &after)
			Expect(after).To(HaveLen(len(devices) - 1))
		})

		It("should 404 when unregistering an unknown device", func() {
			resp := postJSON(srv.URL+"/api/devices/no-such-device/unregister", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("messages", func() {
		It("should serve the seeded collection with a limit", func() {
			var messages []model.Message
			getJSON(srv.URL+"/api/messages?limit=10", &messages)
			Expect(messages).To(HaveLen(10))
		})

		It("should emit topics in the eldercare scheme", func() {
			var messages []model.Message
			getJSON(srv.URL+"/api/messages?limit=5", &messages)
			for _, m := range messages {
				Expect(m.Topic).To(HavePrefix("iot/eldercare/"))
			}
		})
	})

	Describe("rule settings", func() {
		It("should serve a complete default configuration", func() {
			var settings model.RuleSettings
			getJSON(srv.URL+"/api/rule-settings", &settings)
			Expect(settings.Complete()).To(BeTrue())
		})

		It("should round-trip a saved configuration", func() {
			settings := make(model.RuleSettings)
			for _, k := range model.RuleSettingKeys {
				settings[k] = "7"
			}
			var buf bytes.Buffer
			Expect(json.NewEncoder(&buf).Encode(settings)).To(Succeed())
			req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/rule-settings", &buf)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got model.RuleSettings
			getJSON(srv.URL+"/api/rule-settings", &got)
			Expect(got).To(Equal(settings))
		})
	})

	Describe("rooms", func() {
		It("should serve the seeded room list", func() {
			var rooms []model.Room
			getJSON(srv.URL+"/api/rooms", &rooms)
			Expect(rooms).NotTo(BeEmpty())
		})

		It("should accept LED switches", func() {
			resp := postJSON(srv.URL+"/api/rooms/Kitchen/led", map[string]bool{"on": true})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
