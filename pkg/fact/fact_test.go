package fact_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/fact"
)

var _ = Describe("Record helpers", func() {
	It("mints unique ids", func() {
		Expect(fact.NewID()).NotTo(Equal(fact.NewID()))
	})

	It("derives three-letter weekday codes", func() {
		monday := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		Expect(fact.WeekdayCode(monday)).To(Equal("Mon"))

		sunday := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
		Expect(fact.WeekdayCode(sunday)).To(Equal("Sun"))
	})

	It("formats timestamps in UTC with millisecond precision", func() {
		t := time.Date(2024, 1, 15, 10, 0, 0, 500_000_000, time.FixedZone("X", 3600))
		Expect(fact.FormatTimeStamp(t)).To(Equal("2024-01-15T09:00:00.500Z"))
	})
})
