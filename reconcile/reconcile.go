// Package reconcile filters, canonicalizes and deduplicates raw records.
//
// The near-duplicate squash is a lossy text heuristic. Callers that need
// every distinct listing (audit mode) read Outcome.Exact instead.
package reconcile

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/use-agent/flowscout/models"
)

// Options configures an Engine.
type Options struct {
	// SquashNearDuplicates collapses trivial variants (pack sizes, unit
	// suffixes) within a facet group.
	SquashNearDuplicates bool
}

// Outcome is the result of one reconciliation pass. Order is first-seen
// order throughout.
type Outcome struct {
	// Records is Exact after squashing, or Exact itself when squashing
	// is disabled.
	Records []models.Record

	// Exact is the domain-guarded, exact-deduplicated set.
	Exact []models.Record

	// Rejected counts records dropped by the domain guard.
	Rejected int

	// Duplicates counts exact duplicates.
	Duplicates int

	// Squashed counts near-duplicate variants removed from Records.
	Squashed int
}

// Engine reconciles raw records. It is stateless and safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Reconcile runs domain guard, link canonicalization, exact dedup and,
// when enabled, near-duplicate squashing.
func (e *Engine) Reconcile(raw []models.RawRecord) Outcome {
	var out Outcome

	// ── 1-3. Domain guard, canonical link, exact dedup ────────────────
	seen := make(map[string]struct{}, len(raw))
	keys := make([]groupedName, 0, len(raw))
	for _, r := range raw {
		if !r.HasRequiredFacet || !InDomain(r.Link, r.Vendor) {
			out.Rejected++
			continue
		}
		link, ok := CanonicalLink(r.Link)
		if !ok {
			out.Rejected++
			continue
		}

		name := strings.Join(strings.Fields(r.ProductName), " ")
		key := strings.Join([]string{
			string(r.Vendor),
			strings.ToLower(r.Target),
			strings.ToLower(r.Species),
			strings.ToLower(r.Conjugate),
			strings.ToLower(name),
			link,
		}, "\x00")
		if _, dup := seen[key]; dup {
			out.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		out.Exact = append(out.Exact, models.Record{
			Vendor:      r.Vendor.DisplayName(),
			ProductName: name,
			Target:      r.Target,
			Species:     r.Species,
			Conjugate:   r.Conjugate,
			Link:        link,
		})
		keys = append(keys, groupedName{
			group: strings.Join([]string{
				string(r.Vendor),
				strings.ToLower(r.Target),
				strings.ToLower(r.Species),
				strings.ToLower(r.Conjugate),
			}, "\x00"),
			name: NormalizeName(name),
		})
	}

	if !e.opts.SquashNearDuplicates {
		out.Records = out.Exact
		return out
	}

	// ── 4. Near-duplicate squash ──────────────────────────────────────
	kept := make(map[groupedName]struct{}, len(keys))
	for i, k := range keys {
		if _, variant := kept[k]; variant {
			out.Squashed++
			continue
		}
		kept[k] = struct{}{}
		out.Records = append(out.Records, out.Exact[i])
	}
	return out
}

type groupedName struct {
	group string
	name  string
}

// InDomain reports whether link's host is the vendor's domain or a
// subdomain of it.
func InDomain(link string, vendor models.Vendor) bool {
	domain := vendor.Domain()
	if domain == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// CanonicalLink strips the query string and fragment from an absolute
// http(s) link.
func CanonicalLink(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// trivialTokens never distinguish two listings of the same reagent.
var trivialTokens = map[string]struct{}{
	"test": {}, "tests": {}, "vial": {}, "vials": {},
	"pack": {}, "packs": {}, "size": {}, "each": {}, "ea": {},
	"µg": {}, "μg": {}, "ug": {}, "mg": {},
	"ml": {}, "µl": {}, "μl": {}, "ul": {},
	"rxn": {}, "rxns": {},
}

var (
	number    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	sizeToken = regexp.MustCompile(`^\d+(?:\.\d+)?(?:µg|μg|ug|mg|ml|µl|μl|ul|t|tests?|rxns?)$`)
)

// NormalizeName reduces a product name to the tokens that identify the
// reagent: lower-cased, punctuation and parentheses removed, pack-size
// counts, unit abbreviations and generic words dropped.
func NormalizeName(name string) string {
	toks := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r != '.' && !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, t := range toks {
		toks[i] = strings.Trim(t, ".")
	}

	kept := make([]string, 0, len(toks))
	for i, t := range toks {
		if t == "" {
			continue
		}
		if _, trivial := trivialTokens[t]; trivial {
			continue
		}
		if sizeToken.MatchString(t) {
			continue
		}
		if number.MatchString(t) && i+1 < len(toks) {
			if _, counted := trivialTokens[toks[i+1]]; counted {
				continue
			}
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}
