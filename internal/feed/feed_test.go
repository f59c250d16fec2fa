package feed_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"carewatch.dev/carewatch/internal/feed"
	"carewatch.dev/carewatch/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newAlertFeed(fetch feed.FetchFunc[model.Alert]) *feed.Feed[model.Alert] {
	f, err := feed.New(feed.Config[model.Alert]{
		Logger: testLogger(),
		Name:   "alerts",
		Fetch:  fetch,
		Key:    model.Alert.Key,
	})
	Expect(err).NotTo(HaveOccurred())
	return f
}

var _ = Describe("Feed", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should reject a nil logger", func() {
			_, err := feed.New(feed.Config[model.Alert]{
				Name:  "alerts",
				Fetch: func(context.Context) ([]model.Alert, error) { return nil, nil },
				Key:   model.Alert.Key,
			})
			Expect(err).To(MatchError("logger cannot be nil"))
		})

		It("should reject an empty name", func() {
			_, err := feed.New(feed.Config[model.Alert]{
				Logger: testLogger(),
				Fetch:  func(context.Context) ([]model.Alert, error) { return nil, nil },
				Key:    model.Alert.Key,
			})
			Expect(err).To(MatchError("feed name cannot be empty"))
		})

		It("should reject a nil fetch function", func() {
			_, err := feed.New(feed.Config[model.Alert]{
				Logger: testLogger(),
				Name:   "alerts",
				Key:    model.Alert.Key,
			})
			Expect(err).To(MatchError("fetch function cannot be nil"))
		})

		It("should reject a nil key function", func() {
			_, err := feed.New(feed.Config[model.Alert]{
				Logger: testLogger(),
				Name:   "alerts",
				Fetch:  func(context.Context) ([]model.Alert, error) { return nil, nil },
			})
			Expect(err).To(MatchError("key function cannot be nil"))
		})

		It("should start live with an empty snapshot", func() {
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) { return nil, nil })
			Expect(f.Live()).To(BeTrue())
			Expect(f.Items()).To(BeEmpty())
			Expect(f.Version()).To(BeZero())
		})
	})

	Describe("Load", func() {
		It("should replace the snapshot wholesale on success", func() {
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				return []model.Alert{{ID: 1}, {ID: 2}}, nil
			})
			Expect(f.Load(ctx, false)).To(Succeed())
			Expect(f.Items()).To(HaveLen(2))
			Expect(f.Version()).To(Equal(uint64(1)))
			Expect(f.Err()).NotTo(HaveOccurred())
		})

		It("should drop a load issued while one is in flight", func() {
			release := make(chan struct{})
			started := make(chan struct{})
			var fetches atomic.Int32
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				fetches.Add(1)
				close(started)
				<-release
				return []model.Alert{{ID: 1}}, nil
			})

			done := make(chan error, 1)
			go func() { done <- f.Load(ctx, false) }()
			<-started

			// Second load hits the guard: no fetch, immediate nil return.
			Expect(f.Load(ctx, false)).To(Succeed())
			Expect(fetches.Load()).To(Equal(int32(1)))

			close(release)
			Expect(<-done).To(Succeed())
			Expect(f.Items()).To(HaveLen(1))
		})

		It("should keep the previous snapshot on fetch failure", func() {
			var fail atomic.Bool
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				if fail.Load() {
					return nil, errors.New("boom")
				}
				return []model.Alert{{ID: 1}}, nil
			})
			Expect(f.Load(ctx, false)).To(Succeed())

			fail.Store(true)
			Expect(f.Load(ctx, false)).To(MatchError("boom"))
			Expect(f.Items()).To(HaveLen(1))
			Expect(f.Version()).To(Equal(uint64(1)))
			Expect(f.Err()).To(MatchError("boom"))
		})

		It("should clear the sticky error on the next success", func() {
			var fail atomic.Bool
			fail.Store(true)
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				if fail.Load() {
					return nil, errors.New("boom")
				}
				return nil, nil
			})
			Expect(f.Load(ctx, false)).NotTo(Succeed())
			fail.Store(false)
			Expect(f.Load(ctx, false)).To(Succeed())
			Expect(f.Err()).NotTo(HaveOccurred())
		})

		It("should notify on failure", func() {
			var notices []string
			f, err := feed.New(feed.Config[model.Alert]{
				Logger: testLogger(),
				Name:   "alerts",
				Fetch: func(context.Context) ([]model.Alert, error) {
					return nil, errors.New("boom")
				},
				Key: model.Alert.Key,
				Notify: func(kind, text string) {
					notices = append(notices, kind+": "+text)
				},
			})
			Expect(err).NotTo(HaveOccurred())
			_ = f.Load(ctx, false)
			Expect(notices).To(ConsistOf("err: alerts refresh failed"))
		})

		Describe("loading indicator", func() {
			It("should be visible during a non-silent load and always cleared", func() {
				release := make(chan struct{})
				started := make(chan struct{})
				f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
					close(started)
					<-release
					return nil, errors.New("boom")
				})

				done := make(chan struct{})
				go func() {
					defer close(done)
					_ = f.Load(ctx, false)
				}()
				<-started
				Expect(f.Loading()).To(BeTrue())
				close(release)
				<-done

				// Cleared even though the fetch failed.
				Expect(f.Loading()).To(BeFalse())
			})

			It("should stay hidden during a silent load", func() {
				release := make(chan struct{})
				started := make(chan struct{})
				f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
					close(started)
					<-release
					return nil, nil
				})

				done := make(chan struct{})
				go func() {
					defer close(done)
					_ = f.Load(ctx, true)
				}()
				<-started
				Expect(f.Loading()).To(BeFalse())
				close(release)
				<-done
			})
		})

		It("should invoke OnApply with the feed name and new version", func() {
			var applied []uint64
			f, err := feed.New(feed.Config[model.Alert]{
				Logger: testLogger(),
				Name:   "alerts",
				Fetch:  func(context.Context) ([]model.Alert, error) { return nil, nil },
				Key:    model.Alert.Key,
				OnApply: func(name string, version uint64) {
					Expect(name).To(Equal("alerts"))
					applied = append(applied, version)
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Load(ctx, false)).To(Succeed())
			Expect(f.Load(ctx, false)).To(Succeed())
			Expect(applied).To(Equal([]uint64{1, 2}))
		})
	})

	Describe("selection", func() {
		snapshot := []model.Alert{
			{ID: 5, Status: model.StatusOpen},
			{ID: 6, Status: model.StatusOpen},
		}

		It("should resolve the selected entity from the current snapshot", func() {
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) { return snapshot, nil })
			Expect(f.Load(ctx, false)).To(Succeed())

			item, ok := f.Select("5")
			Expect(ok).To(BeTrue())
			Expect(item.ID).To(Equal(int64(5)))

			sel, ok := f.Selected()
			Expect(ok).To(BeTrue())
			Expect(sel.ID).To(Equal(int64(5)))
		})

		It("should ignore selecting a key absent from the snapshot", func() {
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) { return snapshot, nil })
			Expect(f.Load(ctx, false)).To(Succeed())

			_, ok := f.Select("99")
			Expect(ok).To(BeFalse())
			_, ok = f.Selected()
			Expect(ok).To(BeFalse())
		})

		It("should reflect the freshest entity after a snapshot replacement", func() {
			var acked atomic.Bool
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				if acked.Load() {
					return []model.Alert{{ID: 5, Status: model.StatusOpen, AckAt: "2025-06-15 10:00:00"}}, nil
				}
				return snapshot, nil
			})
			Expect(f.Load(ctx, false)).To(Succeed())
			f.Select("5")

			acked.Store(true)
			Expect(f.Load(ctx, true)).To(Succeed())

			sel, ok := f.Selected()
			Expect(ok).To(BeTrue())
			Expect(sel.AckAt).NotTo(BeEmpty())
			Expect(sel.CanAck()).To(BeFalse())
			Expect(sel.CanClose()).To(BeTrue())
		})

		It("should clear the selection when the entity vanishes", func() {
			var purged atomic.Bool
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				if purged.Load() {
					return []model.Alert{{ID: 6}}, nil
				}
				return snapshot, nil
			})
			Expect(f.Load(ctx, false)).To(Succeed())
			f.Select("5")

			purged.Store(true)
			Expect(f.Load(ctx, true)).To(Succeed())

			_, ok := f.Selected()
			Expect(ok).To(BeFalse())
		})

		It("should clear the selection on Deselect", func() {
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) { return snapshot, nil })
			Expect(f.Load(ctx, false)).To(Succeed())
			f.Select("6")
			f.Deselect()
			_, ok := f.Selected()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Effect", func() {
		It("should load silently while live", func() {
			var fetches atomic.Int32
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				fetches.Add(1)
				return nil, nil
			})
			f.Effect()(ctx)
			Expect(fetches.Load()).To(Equal(int32(1)))
			Expect(f.Loading()).To(BeFalse())
		})

		It("should be a no-op while paused", func() {
			var fetches atomic.Int32
			f := newAlertFeed(func(context.Context) ([]model.Alert, error) {
				fetches.Add(1)
				return nil, nil
			})
			f.SetLive(false)
			f.Effect()(ctx)
			Expect(fetches.Load()).To(BeZero())

			f.SetLive(true)
			f.Effect()(ctx)
			Expect(fetches.Load()).To(Equal(int32(1)))
		})
	})
})
