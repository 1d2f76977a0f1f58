package engine_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/engine"
)

var _ = Describe("Normalizer", func() {
	var n *engine.Normalizer

	BeforeEach(func() {
		n = engine.NewNormalizer(0)
	})

	Describe("ParseSessionMarker", func() {
		It("parses the conventional marker form", func() {
			t, err := engine.ParseSessionMarker("2024/01/15 (Mon) 10:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
		})

		It("accepts dashes and seconds", func() {
			t, err := engine.ParseSessionMarker("2024-01-15 (Mon) 10:00:30")
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(time.Date(2024, 1, 15, 10, 0, 30, 0, time.UTC)))
		})

		It("falls back to permissive ISO parsing", func() {
			t, err := engine.ParseSessionMarker("2024-01-15T10:00:00Z")
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
		})

		It("derives the weekday from the date, not the token", func() {
			// 2024-01-15 is a Monday regardless of what the token claims.
			t, err := engine.ParseSessionMarker("2024/01/15 (Fri) 10:00")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Weekday()).To(Equal(time.Monday))
		})

		It("rejects garbage", func() {
			_, err := engine.ParseSessionMarker("not a timestamp")
			Expect(err).To(HaveOccurred())
		})

		It("rejects out-of-range fields", func() {
			_, err := engine.ParseSessionMarker("2024/13/40 (Mon) 25:61")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Normalize", func() {
		It("assigns strictly increasing instants for a shared marker", func() {
			messages := []engine.Message{
				{Role: "user", Content: "one", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "assistant", Content: "two", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "user", Content: "three", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}

			out, err := n.Normalize(messages)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))

			base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
			Expect(out[0].Time).To(Equal(base))
			Expect(out[1].Time).To(Equal(base.Add(500 * time.Millisecond)))
			Expect(out[2].Time).To(Equal(base.Add(1000 * time.Millisecond)))

			for i := 1; i < len(out); i++ {
				Expect(out[i].Time.Sub(out[i-1].Time)).To(Equal(500 * time.Millisecond))
			}
		})

		It("keeps the cursor across calls", func() {
			first, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "a", TimeStamp: "2024/01/15 (Mon) 10:00"},
			})
			Expect(err).NotTo(HaveOccurred())

			second, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "b", TimeStamp: "2024/01/15 (Mon) 10:00"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(second[0].Time).To(Equal(first[0].Time.Add(500 * time.Millisecond)))
		})

		It("assigns sequence numbers in delivery order", func() {
			out, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "a", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "assistant", Content: "b", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "user", Content: "c", TimeStamp: "2024/01/15 (Mon) 10:01"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0].Sequence).To(Equal(0))
			Expect(out[1].Sequence).To(Equal(1))
			Expect(out[2].Sequence).To(Equal(2))

			Expect(out[0].SourceID()).To(Equal(0))
			Expect(out[1].SourceID()).To(Equal(0))
			Expect(out[2].SourceID()).To(Equal(1))
		})

		It("attaches the session marker, ISO form, float form, and weekday", func() {
			out, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "a", TimeStamp: "2024/01/15 (Mon) 10:00"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0].SessionTime).To(Equal("2024/01/15 (Mon) 10:00"))
			Expect(out[0].Weekday).To(Equal("Mon"))
			Expect(out[0].ISO).To(ContainSubstring("2024-01-15T10:00:00"))
			Expect(out[0].Float).To(BeNumerically("==", out[0].Time.UnixMilli()/1000))
		})

		It("rejects the whole batch on a missing timestamp", func() {
			_, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "ok", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "user", Content: "bad"},
			})
			Expect(err).To(MatchError(engine.ErrInvalidMessage))
		})

		It("rejects the whole batch on an unparseable marker", func() {
			_, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "bad", TimeStamp: "???"},
			})
			Expect(err).To(MatchError(engine.ErrInvalidMessage))
		})

		It("restarts sequence numbering after ResetSequence", func() {
			_, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "a", TimeStamp: "2024/01/15 (Mon) 10:00"},
			})
			Expect(err).NotTo(HaveOccurred())

			n.ResetSequence()

			out, err := n.Normalize([]engine.Message{
				{Role: "user", Content: "b", TimeStamp: "2024/01/15 (Mon) 10:05"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].Sequence).To(Equal(0))
		})
	})
})
