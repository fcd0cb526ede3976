package robots_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kallowynd/pageruntime/robots"
)

var _ = Describe("Parse and IsAllowed", func() {
	var body string

	Describe("group selection", func() {
		BeforeEach(func() {
			body = "User-agent: pageruntime\n" +
				"Disallow: /private\n" +
				"\n" +
				"User-agent: *\n" +
				"Disallow: /\n"
		})

		It("prefers a group naming the agent specifically over the wildcard group", func() {
			rs := robots.Parse(body, "pageruntime")
			Expect(rs.IsAllowed("/private/x")).To(BeFalse())
			Expect(rs.IsAllowed("/public")).To(BeTrue())
		})

		It("falls back to the wildcard group for an unlisted agent", func() {
			rs := robots.Parse(body, "othercrawler")
			Expect(rs.IsAllowed("/public")).To(BeFalse())
		})
	})

	Describe("longest-match-wins resolution", func() {
		BeforeEach(func() {
			body = "User-agent: *\n" +
				"Allow: /articles/public\n" +
				"Disallow: /articles\n"
		})

		It("lets the longer, more specific Allow win over a shorter Disallow", func() {
			rs := robots.Parse(body, "pageruntime")
			Expect(rs.IsAllowed("/articles/public/post")).To(BeTrue())
			Expect(rs.IsAllowed("/articles/other")).To(BeFalse())
		})
	})

	Describe("equal-length tie-break", func() {
		BeforeEach(func() {
			body = "User-agent: *\n" +
				"Allow: /x\n" +
				"Disallow: /x\n"
		})

		It("lets the later rule in file order win", func() {
			rs := robots.Parse(body, "pageruntime")
			Expect(rs.IsAllowed("/x")).To(BeFalse())
		})
	})

	Describe("an empty or missing robots.txt", func() {
		It("allows everything by default", func() {
			var rs robots.RuleSet
			Expect(rs.IsAllowed("/anything")).To(BeTrue())
		})
	})
})
