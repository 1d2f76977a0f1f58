package cache_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/cache"
)

// countingEmbedder returns a distinct vector per text and records every
// remote call.
type countingEmbedder struct {
	calls      int
	batchCalls int
	batchSizes []int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return vectorFor(text), nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchSizes = append(c.batchSizes, len(texts))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = vectorFor(text)
	}
	return out, nil
}

func (c *countingEmbedder) Usage() embeddings.Usage {
	return embeddings.Usage{Calls: c.calls + c.batchCalls}
}

func (c *countingEmbedder) Close() error { return nil }

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1, 0}
}

var _ = Describe("Embedder", func() {
	var (
		ctx   context.Context
		inner *countingEmbedder
		c     *cache.Embedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		inner = &countingEmbedder{}
		c = cache.New(inner)
	})

	Describe("Embed", func() {
		It("calls upstream once per distinct text", func() {
			first, err := c.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
			Expect(inner.calls).To(Equal(1))

			second, err := c.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
			Expect(inner.calls).To(Equal(1))

			for i := range first {
				Expect(second[i]).To(Equal(first[i]))
			}
		})

		It("keys the cache by exact text", func() {
			_, err := c.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Embed(ctx, "x ")
			Expect(err).NotTo(HaveOccurred())

			Expect(inner.calls).To(Equal(2))
			Expect(c.Len()).To(Equal(2))
		})
	})

	Describe("EmbedBatch", func() {
		It("forwards only the misses in one upstream call", func() {
			_, err := c.Embed(ctx, "cached")
			Expect(err).NotTo(HaveOccurred())

			vectors, err := c.EmbedBatch(ctx, []string{"cached", "miss-1", "miss-2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vectors).To(HaveLen(3))

			Expect(inner.batchCalls).To(Equal(1))
			Expect(inner.batchSizes).To(Equal([]int{2}))
		})

		It("skips upstream entirely when every text is cached", func() {
			_, err := c.EmbedBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.EmbedBatch(ctx, []string{"b", "a"})
			Expect(err).NotTo(HaveOccurred())

			Expect(inner.batchCalls).To(Equal(1))
		})

		It("aligns results positionally with the inputs", func() {
			vectors, err := c.EmbedBatch(ctx, []string{"aa", "bbbb"})
			Expect(err).NotTo(HaveOccurred())

			Expect(vectors[0][0]).To(Equal(float32(2)))
			Expect(vectors[1][0]).To(Equal(float32(4)))
		})
	})

	Describe("Clear", func() {
		It("drops the cache so the next call goes upstream", func() {
			_, err := c.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())

			c.Clear()
			Expect(c.Len()).To(BeZero())

			_, err = c.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
			Expect(inner.calls).To(Equal(2))
		})
	})

	Describe("interface compliance", func() {
		It("satisfies embeddings.Embedder", func() {
			var _ embeddings.Embedder = c
		})
	})
})

var _ = Describe("Usage pass-through", func() {
	It("reports the inner embedder's counters", func() {
		inner := &countingEmbedder{}
		c := cache.New(inner)

		for i := 0; i < 3; i++ {
			_, err := c.Embed(context.Background(), fmt.Sprintf("text-%d", i))
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(c.Usage().Calls).To(Equal(3))
	})
})
