package engine_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/engine"
)

func buffered(content string) engine.Normalized {
	return engine.Normalized{Message: engine.Message{Role: "user", Content: content}}
}

var _ = Describe("Buffer", func() {
	It("is not ready below both triggers", func() {
		b := engine.NewBuffer(10, 1000)
		ready := b.Push([]engine.Normalized{buffered("short")})
		Expect(ready).To(BeFalse())
		Expect(b.Len()).To(Equal(1))
	})

	It("fires on the message-count trigger", func() {
		b := engine.NewBuffer(3, 100000)

		Expect(b.Push([]engine.Normalized{buffered("a"), buffered("b")})).To(BeFalse())
		Expect(b.Push([]engine.Normalized{buffered("c")})).To(BeTrue())
	})

	It("fires on the token budget", func() {
		b := engine.NewBuffer(100, 10)

		// 41 characters is ceil(41/4) = 11 approximate tokens.
		long := strings.Repeat("x", 41)
		Expect(b.Push([]engine.Normalized{buffered(long)})).To(BeTrue())
		Expect(b.Tokens()).To(Equal(11))
	})

	It("flushes contents in delivery order and empties", func() {
		b := engine.NewBuffer(10, 1000)
		b.Push([]engine.Normalized{buffered("first"), buffered("second")})

		out := b.Flush()
		Expect(out).To(HaveLen(2))
		Expect(out[0].Content).To(Equal("first"))
		Expect(out[1].Content).To(Equal("second"))

		Expect(b.Len()).To(BeZero())
		Expect(b.Tokens()).To(BeZero())
	})

	It("falls back to defaults for non-positive triggers", func() {
		b := engine.NewBuffer(0, 0)

		messages := make([]engine.Normalized, engine.DefaultExtractTrigger)
		for i := range messages {
			messages[i] = buffered("m")
		}
		Expect(b.Push(messages)).To(BeTrue())
	})
})
