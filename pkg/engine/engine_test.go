package engine_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	embeddingcache "github.com/papercomputeco/engram/pkg/embeddings/cache"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/store"
)

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		chat     *stubChat
		embedder *stubEmbedder
		cached   *embeddingcache.Embedder
		storer   store.Driver
		eng      *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		chat = &stubChat{}
		embedder = &stubEmbedder{vector: []float32{1, 0, 0, 0}}
		cached = embeddingcache.New(embedder)
		storer = memoryStore(4)

		var err error
		eng, err = engine.New(engine.Config{
			Store:       storer,
			Chat:        chat,
			Embedder:    cached,
			Logger:      quietLogger(),
			MessagesUse: engine.RoleUserOnly,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(storer.Close()).To(Succeed())
	})

	Describe("New", func() {
		It("requires a store", func() {
			_, err := engine.New(engine.Config{Chat: chat, Embedder: cached, Logger: quietLogger()})
			Expect(err).To(MatchError(engine.ErrNotConfigured))
		})

		It("requires a chat client", func() {
			_, err := engine.New(engine.Config{Store: storer, Embedder: cached, Logger: quietLogger()})
			Expect(err).To(MatchError(engine.ErrNotConfigured))
		})
	})

	Describe("AddMemory", func() {
		It("buffers without extracting until a trigger fires", func() {
			result, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "hello", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Extracted).To(BeFalse())
			Expect(result.Buffered).To(Equal(1))
			Expect(chat.requests).To(BeEmpty())

			count, err := storer.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("extracts, embeds, and stores a fact on force", func() {
			chat.replies = []string{`{"data":[{"source_id":0,"fact":"User's name is Alice."}]}`}

			result, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "My name is Alice.", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Extracted).To(BeTrue())
			Expect(result.FactsCreated).To(Equal(1))
			Expect(result.Prompt).To(ContainSubstring("--- Topic 0 ---"))
			Expect(result.Response).To(ContainSubstring("Alice"))

			count, err := storer.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			formatted, err := eng.Retrieve(ctx, "name", 5, store.Filters{})
			Expect(err).NotTo(HaveOccurred())
			Expect(formatted).To(ContainSubstring("User's name is Alice."))
			Expect(formatted).To(ContainSubstring("Mon"))
		})

		It("copies source metadata onto the synthesized record", func() {
			chat.replies = []string{`{"data":[{"source_id":0,"fact":"User's name is Alice."}]}`}

			_, err := eng.AddMemory(ctx, []engine.Message{
				{
					Role: "user", Content: "My name is Alice.",
					TimeStamp: "2024/01/15 (Mon) 10:00",
					SpeakerID: "u1", SpeakerName: "Alice",
				},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())

			records, err := storer.All(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			rec := records[0]
			Expect(rec.SpeakerID).To(Equal("u1"))
			Expect(rec.SpeakerName).To(Equal("Alice"))
			Expect(rec.Weekday).To(Equal("Mon"))
			Expect(rec.Memory).To(Equal("User's name is Alice."))
			Expect(rec.OriginalMemory).To(Equal("User's name is Alice."))
			Expect(rec.HitTime).To(BeZero())
			Expect(rec.UpdateQueue).To(BeEmpty())
		})

		It("renders only policy-admitted roles into the prompt", func() {
			chat.replies = []string{`{"data":[]}`}

			_, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "the user line", TimeStamp: "2024/01/15 (Mon) 10:00"},
				{Role: "assistant", Content: "the assistant line", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(chat.lastUserPrompt()).To(ContainSubstring("the user line"))
			Expect(chat.lastUserPrompt()).NotTo(ContainSubstring("the assistant line"))
		})

		It("rejects the batch on an invalid message and keeps the store untouched", func() {
			_, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "no stamp"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).To(MatchError(engine.ErrInvalidMessage))

			count, err := storer.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("yields zero facts on an unparseable LLM reply", func() {
			chat.replies = []string{"total nonsense"}

			result, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "hi", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FactsCreated).To(BeZero())
		})
	})

	Describe("Retrieve", func() {
		It("returns an empty string for an empty store", func() {
			formatted, err := eng.Retrieve(ctx, "anything", 5, store.Filters{})
			Expect(err).NotTo(HaveOccurred())
			Expect(formatted).To(BeEmpty())
		})

		It("bumps hit counters for returned records", func() {
			chat.replies = []string{`{"data":[{"source_id":0,"fact":"fact one"}]}`}
			_, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "one", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Retrieve(ctx, "one", 5, store.Filters{})
			Expect(err).NotTo(HaveOccurred())

			records, err := storer.All(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].HitTime).To(Equal(1))

			_, err = eng.Retrieve(ctx, "one", 5, store.Filters{})
			Expect(err).NotTo(HaveOccurred())

			records, err = storer.All(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].HitTime).To(Equal(2))
		})
	})

	Describe("embedding cache", func() {
		It("serves repeat texts without another upstream call", func() {
			first, err := cached.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
			callsAfterFirst := embedder.calls

			second, err := cached.Embed(ctx, "x")
			Expect(err).NotTo(HaveOccurred())

			Expect(embedder.calls).To(Equal(callsAfterFirst))
			Expect(second).To(Equal(first))
		})
	})

	Describe("TokenStatistics", func() {
		It("accumulates extraction usage under addMemory", func() {
			chat.replies = []string{`{"data":[{"source_id":0,"fact":"f"}]}`}
			_, err := eng.AddMemory(ctx, []engine.Message{
				{Role: "user", Content: "hi", TimeStamp: "2024/01/15 (Mon) 10:00"},
			}, engine.AddOptions{ForceExtract: true})
			Expect(err).NotTo(HaveOccurred())

			stats := eng.TokenStatistics()
			Expect(stats.AddMemory.Calls).To(Equal(1))
			Expect(stats.AddMemory.PromptTokens).To(Equal(10))
			Expect(stats.AddMemory.CompletionTokens).To(Equal(5))
			Expect(stats.AddMemory.TotalTokens).To(Equal(15))
			Expect(stats.Update.Calls).To(BeZero())
			Expect(stats.Embedding.Calls).To(BeNumerically(">", 0))
		})
	})
})
