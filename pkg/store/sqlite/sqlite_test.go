package sqlite_test

import (
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/fact"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/store/sqlite"
)

func newRecord(id string, floatTS float64, embedding []float32) *fact.Record {
	return &fact.Record{
		ID:             id,
		TimeStamp:      "2024-01-15T10:00:00.000Z",
		FloatTimeStamp: floatTS,
		Weekday:        "Mon",
		Memory:         "memory " + id,
		OriginalMemory: "original " + id,
		SpeakerID:      "s-" + id,
		SpeakerName:    "Speaker " + id,
		UpdateQueue:    []fact.QueueEntry{},
		Embedding:      embedding,
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(sqlite.Config{
			DBPath:     ":memory:",
			Dimensions: 4,
		}, logger.New(logger.WithWriter(io.Discard)))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("NewDriver", func() {
		It("requires a database path", func() {
			_, err := sqlite.NewDriver(sqlite.Config{Dimensions: 4},
				logger.New(logger.WithWriter(io.Discard)))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("requires configured dimensions", func() {
			_, err := sqlite.NewDriver(sqlite.Config{DBPath: ":memory:"},
				logger.New(logger.WithWriter(io.Discard)))
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})

		It("satisfies store.Driver", func() {
			var _ store.Driver = driver
		})
	})

	Describe("Insert and Get", func() {
		It("round-trips a record with its embedding", func() {
			rec := newRecord("r1", 100, []float32{0.1, 0.2, 0.3, 0.4})
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Memory).To(Equal("memory r1"))
			Expect(got.OriginalMemory).To(Equal("original r1"))
			Expect(got.SpeakerID).To(Equal("s-r1"))
			Expect(got.Weekday).To(Equal("Mon"))
			Expect(got.Embedding).To(Equal([]float32{0.1, 0.2, 0.3, 0.4}))
			Expect(got.UpdateQueue).To(BeEmpty())
			Expect(got.CreatedAt).NotTo(BeEmpty())
		})

		It("is an upsert in id", func() {
			Expect(driver.Insert(ctx, newRecord("r1", 100, []float32{1, 0, 0, 0}))).To(Succeed())

			updated := newRecord("r1", 150, []float32{0, 1, 0, 0})
			updated.Memory = "rewritten"
			Expect(driver.Insert(ctx, updated)).To(Succeed())

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Memory).To(Equal("rewritten"))
			Expect(got.FloatTimeStamp).To(BeNumerically("==", 150))
		})

		It("rejects embeddings of the wrong dimension", func() {
			err := driver.Insert(ctx, newRecord("bad", 100, []float32{1, 0}))
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("persists update queues as JSON", func() {
			rec := newRecord("r1", 100, []float32{1, 0, 0, 0})
			rec.UpdateQueue = []fact.QueueEntry{{ID: "other", Score: 0.97}}
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UpdateQueue).To(HaveLen(1))
			Expect(got.UpdateQueue[0].ID).To(Equal("other"))
			Expect(got.UpdateQueue[0].Score).To(BeNumerically("~", 0.97, 1e-9))
		})
	})

	Describe("All", func() {
		BeforeEach(func() {
			Expect(driver.Insert(ctx, newRecord("r1", 100, []float32{1, 0, 0, 0}))).To(Succeed())
			Expect(driver.Insert(ctx, newRecord("r2", 200, []float32{0, 1, 0, 0}))).To(Succeed())
		})

		It("returns every record without embeddings by default", func() {
			records, err := driver.All(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			for _, rec := range records {
				Expect(rec.Embedding).To(BeNil())
			}
		})

		It("includes embeddings on request", func() {
			records, err := driver.All(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			for _, rec := range records {
				Expect(rec.Embedding).To(HaveLen(4))
			}
		})
	})

	Describe("Update", func() {
		BeforeEach(func() {
			Expect(driver.Insert(ctx, newRecord("r1", 100, []float32{1, 0, 0, 0}))).To(Succeed())
		})

		It("patches only the given fields", func() {
			memory := "patched"
			hits := 3
			Expect(driver.Update(ctx, "r1", store.Patch{Memory: &memory, HitTime: &hits})).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Memory).To(Equal("patched"))
			Expect(got.HitTime).To(Equal(3))
			Expect(got.OriginalMemory).To(Equal("original r1"))
			Expect(got.Embedding).To(Equal([]float32{1, 0, 0, 0}))
		})

		It("replaces the update queue wholesale", func() {
			queue := []fact.QueueEntry{{ID: "x", Score: 0.91}}
			Expect(driver.Update(ctx, "r1", store.Patch{UpdateQueue: &queue})).To(Succeed())

			empty := []fact.QueueEntry{}
			Expect(driver.Update(ctx, "r1", store.Patch{UpdateQueue: &empty})).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UpdateQueue).To(BeEmpty())
		})

		It("can replace the embedding", func() {
			Expect(driver.Update(ctx, "r1", store.Patch{Embedding: []float32{0, 0, 1, 0}})).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{0, 0, 1, 0}))
		})

		It("rejects wrong-dimension embedding patches", func() {
			err := driver.Update(ctx, "r1", store.Patch{Embedding: []float32{1}})
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})

		It("returns ErrNotFound for unknown ids", func() {
			memory := "x"
			err := driver.Update(ctx, "missing", store.Patch{Memory: &memory})
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("hard-removes records and tolerates missing ids", func() {
			Expect(driver.Insert(ctx, newRecord("r1", 100, []float32{1, 0, 0, 0}))).To(Succeed())

			Expect(driver.Delete(ctx, "r1")).To(Succeed())
			Expect(driver.Delete(ctx, "r1")).To(Succeed())

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			Expect(driver.Insert(ctx, newRecord("r1", 100, []float32{1, 0, 0, 0}))).To(Succeed())
			Expect(driver.Insert(ctx, newRecord("r2", 200, []float32{0.9, 0.1, 0, 0}))).To(Succeed())
			Expect(driver.Insert(ctx, newRecord("r3", 300, []float32{0, 1, 0, 0}))).To(Succeed())
		})

		It("ranks by cosine similarity descending", func() {
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 3, store.Filters{})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(3))

			Expect(hits[0].ID).To(Equal("r1"))
			Expect(hits[1].ID).To(Equal("r2"))
			Expect(hits[2].ID).To(Equal("r3"))

			for i := 1; i < len(hits); i++ {
				Expect(hits[i].Score).To(BeNumerically("<=", hits[i-1].Score))
			}
		})

		It("returns at most k records", func() {
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 2, store.Filters{})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
		})

		It("breaks score ties by ascending id", func() {
			Expect(driver.Insert(ctx, newRecord("a-dup", 400, []float32{1, 0, 0, 0}))).To(Succeed())

			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 2, store.Filters{})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits[0].ID).To(Equal("a-dup"))
			Expect(hits[1].ID).To(Equal("r1"))
		})

		It("filters on an inclusive timestamp range", func() {
			gte, lte := 150.0, 250.0
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{
				FloatTimeStamp: &store.RangeFilter{GTE: &gte, LTE: &lte},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ID).To(Equal("r2"))
		})

		It("includes records exactly on a range bound", func() {
			gte := 200.0
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{
				FloatTimeStamp: &store.RangeFilter{GTE: &gte},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
		})

		It("filters on speaker id", func() {
			speaker := "s-r2"
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{
				SpeakerID: &speaker,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ID).To(Equal("r2"))
		})

		It("filters on category", func() {
			tagged := newRecord("r4", 400, []float32{1, 0, 0, 0})
			tagged.Category = "preference"
			Expect(driver.Insert(ctx, tagged)).To(Succeed())

			category := "preference"
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{
				Category: &category,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ID).To(Equal("r4"))
		})

		It("AND-combines predicates", func() {
			speaker := "s-r2"
			gte := 250.0
			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{
				SpeakerID:      &speaker,
				FloatTimeStamp: &store.RangeFilter{GTE: &gte},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("scores zero-norm embeddings as 0", func() {
			Expect(driver.Insert(ctx, newRecord("zero", 500, []float32{0, 0, 0, 0}))).To(Succeed())

			hits, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 10, store.Filters{})
			Expect(err).NotTo(HaveOccurred())

			var zeroHit *store.Hit
			for i := range hits {
				if hits[i].ID == "zero" {
					zeroHit = &hits[i]
				}
			}
			Expect(zeroHit).NotTo(BeNil())
			Expect(zeroHit.Score).To(BeZero())
		})

		It("rejects wrong-dimension query vectors", func() {
			_, err := driver.Search(ctx, []float32{1, 0}, 5, store.Filters{})
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})
	})
})
