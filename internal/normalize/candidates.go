package normalize

import "strings"

// saltSuffixes lists the salt/ester qualifiers that may trail an ingredient
// name without changing its clinical identity, in specificity-descending
// order. Multi-word forms come before their abbreviations so the most
// specific strip wins the highest-priority slot.
//
// Bare metal cations that commonly ARE the salt-form name recorded for an
// active ingredient (calcium, magnesium) are deliberately absent: stripping
// "calcium" from "atorvastatin calcium" would produce a name the cost data
// never uses.
var saltSuffixes = []string{
	"dihydrochloride",
	"hydrochloride",
	"hydrobromide",
	"bitartrate",
	"hcl",
	"sodium",
	"potassium",
	"phosphate",
	"sulfate",
	"nitrate",
	"acetate",
	"besylate",
	"mesylate",
	"tosylate",
	"esylate",
	"tartrate",
	"citrate",
	"fumarate",
	"succinate",
	"maleate",
	"lactate",
	"propionate",
	"palmitate",
	"chloride",
	"bromide",
	"iodide",
	"oxalate",
}

// GenericCandidates derives bare-ingredient name variants from a salt-form
// ingredient name, for use as fallback cost-lookup keys. Candidates are
// ordered most-specific first; the unmodified normalized name is always the
// final entry. The result is deduplicated preserving first-seen order and is
// never empty for non-empty input.
func GenericCandidates(ingredient string) []string {
	name := Normalize(ingredient)
	if name == "" {
		return nil
	}

	var candidates []string
	for _, suffix := range saltSuffixes {
		stripped, ok := stripTrailing(name, suffix)
		if ok && stripped != "" {
			candidates = append(candidates, stripped)
		}
	}
	candidates = append(candidates, name)

	return dedupe(candidates)
}

// stripTrailing removes suffix from name when it is present as a trailing
// whole word.
func stripTrailing(name, suffix string) (string, bool) {
	if name == suffix {
		return "", true
	}
	if strings.HasSuffix(name, " "+suffix) {
		return strings.TrimSpace(strings.TrimSuffix(name, suffix)), true
	}
	return "", false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
