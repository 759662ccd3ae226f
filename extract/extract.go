// Package extract turns a rendered catalog snapshot into raw records.
//
// Each vendor declares an ordered cascade of named strategies. The first
// strategy that finds at least one result card with a title anchor wins;
// later strategies are never consulted and results are never merged.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/flowscout/models"
)

// Result is the outcome of one extraction.
type Result struct {
	Records []models.RawRecord

	// Strategy names the winning strategy; empty when none matched.
	Strategy string
}

// Extractor maps a rendered DOM snapshot to raw records.
type Extractor interface {
	Extract(doc *goquery.Document, target, species string) Result
}

// Parse builds a goquery document from a rendered HTML snapshot.
func Parse(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Strategy is one named selector combination: a card selector, the title
// anchor inside a card, and an optional marker a card must carry to be
// accepted.
type Strategy struct {
	Name   string
	card   cascadia.Selector
	title  cascadia.Selector
	marker cascadia.Selector
}

// NewStrategy compiles the selectors. marker may be empty. It panics on an
// invalid selector; strategies are package-level declarations.
func NewStrategy(name, card, title, marker string) Strategy {
	s := Strategy{
		Name:  name,
		card:  cascadia.MustCompile(card),
		title: cascadia.MustCompile(title),
	}
	if marker != "" {
		s.marker = cascadia.MustCompile(marker)
	}
	return s
}

// Match reports whether at least one card carries a title anchor.
func (s Strategy) Match(doc *goquery.Document) bool {
	matched := false
	doc.FindMatcher(s.card).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		matched = card.FindMatcher(s.title).Length() > 0
		return !matched
	})
	return matched
}

// card is the raw material a strategy pulls out of one result card.
type card struct {
	name  string
	href  string
	facet bool
}

// cards extracts name, href and facet presence from every matching card,
// skipping cards whose title anchor has no text or href.
func (s Strategy) cards(doc *goquery.Document) []card {
	var out []card
	doc.FindMatcher(s.card).Each(func(_ int, sel *goquery.Selection) {
		a := sel.FindMatcher(s.title).First()
		if a.Length() == 0 {
			return
		}
		name := CollapseSpace(a.Text())
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if name == "" || href == "" {
			return
		}
		facet := s.marker == nil || sel.FindMatcher(s.marker).Length() > 0
		out = append(out, card{name: name, href: href, facet: facet})
	})
	return out
}

// Cascade is a vendor extractor built from ordered strategies.
type Cascade struct {
	Vendor     models.Vendor
	Strategies []Strategy
	Label      Labeler

	// RequireFacet discards cards without the strategy marker.
	RequireFacet bool
}

// Extract runs the cascade. Zero records is a valid result.
func (c *Cascade) Extract(doc *goquery.Document, target, species string) Result {
	base, _ := url.Parse(c.Vendor.BaseURL())

	for _, s := range c.Strategies {
		if !s.Match(doc) {
			continue
		}

		res := Result{Strategy: s.Name}
		for _, cd := range s.cards(doc) {
			if c.RequireFacet && !cd.facet {
				continue
			}
			link, ok := resolve(base, cd.href)
			if !ok {
				continue
			}
			res.Records = append(res.Records, models.RawRecord{
				Vendor:           c.Vendor,
				ProductName:      cd.name,
				Link:             link,
				HasRequiredFacet: cd.facet,
				Target:           target,
				Species:          species,
				Conjugate:        c.label(cd.name),
				Strategy:         s.Name,
			})
		}
		return res
	}
	return Result{}
}

func (c *Cascade) label(name string) string {
	if c.Label == nil {
		return name
	}
	return c.Label(name)
}

// resolve makes href absolute against base. Only http(s) links survive.
func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// CollapseSpace trims s and folds every whitespace run to a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
