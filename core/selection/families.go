package selection

import (
	"sort"
	"strings"
)

// genreHierarchy maps a genre to its parent. Ancestor chains drive
// relatedness: near-synonym genres end up in the same family so the
// diversity cap can't be dodged by tag spelling.
var genreHierarchy = map[string]string{
	"synthwave":         "electronic",
	"darksynth":         "synthwave",
	"retrowave":         "synthwave",
	"vaporwave":         "electronic",
	"idm":               "electronic",
	"techno":            "electronic",
	"house":             "electronic",
	"deep house":        "house",
	"progressive house": "house",
	"electro house":     "house",
	"trance":            "electronic",
	"drum and bass":     "electronic",
	"jungle":            "drum and bass",
	"dubstep":           "electronic",
	"downtempo":         "electronic",
	"trip hop":          "electronic",
	"ambient":           "electronic",
	"breakbeat":         "electronic",
	"electronica":       "electronic",
	"synthpop":          "electronic",
	"lo-fi":             "electronic",

	"hard rock":        "rock",
	"classic rock":     "rock",
	"alternative rock": "rock",
	"alternative":      "rock",
	"indie rock":       "rock",
	"indie":            "rock",
	"post-rock":        "rock",
	"progressive rock": "rock",
	"psychedelic rock": "rock",
	"punk":             "rock",
	"punk rock":        "punk",
	"post-punk":        "punk",
	"grunge":           "rock",
	"shoegaze":         "rock",
	"metal":            "rock",
	"heavy metal":      "metal",
	"thrash metal":     "metal",
	"black metal":      "metal",
	"death metal":      "metal",
	"doom metal":       "metal",
	"metalcore":        "metal",

	"hip hop":         "hip hop",
	"hip-hop":         "hip hop",
	"rap":             "hip hop",
	"trap":            "hip hop",
	"boom bap":        "hip hop",
	"alternative rap": "hip hop",

	"bebop":       "jazz",
	"post-bop":    "jazz",
	"cool jazz":   "jazz",
	"free jazz":   "jazz",
	"fusion":      "jazz",
	"swing":       "jazz",
	"acid jazz":   "jazz",
	"smooth jazz": "jazz",

	"folk rock":    "folk",
	"indie folk":   "folk",
	"singer-songwriter": "folk",

	"r&b":        "soul",
	"neo-soul":   "soul",
	"funk":       "soul",
	"motown":     "soul",
	"disco":      "soul",

	"roots reggae": "reggae",
	"dub":          "reggae",
	"ska":          "reggae",

	"baroque":   "classical",
	"romantic":  "classical",
	"opera":     "classical",
	"chamber":   "classical",
	"orchestral": "classical",
}

// genreRoots are significant stems shared by genre spellings the hierarchy
// doesn't enumerate ("darksynth"/"synthwave" both carry "synth").
var genreRoots = []string{
	"synth", "metal", "rock", "punk", "house", "techno", "trance",
	"jazz", "folk", "soul", "funk", "reggae", "core", "wave", "hop",
	"blues", "country", "disco", "ambient",
}

// GenreFamilies assigns each raw genre string of a candidate pool to a
// family, so the selection cap treats near-synonyms as one bucket.
type GenreFamilies struct {
	family map[string]string
}

// BuildGenreFamilies clusters the pool's raw genre strings. Two genres land
// in the same family when their ancestor chains meet or they share a
// significant stem. The family label is the cluster's lexicographically
// smallest member, which keeps runs reproducible.
func BuildGenreFamilies(genres []string) *GenreFamilies {
	normalized := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		n := strings.ToLower(strings.TrimSpace(g))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)

	parent := make(map[string]string, len(normalized))
	for _, g := range normalized {
		parent[g] = g
	}

	var find func(string) string
	find = func(g string) string {
		if parent[g] != g {
			parent[g] = find(parent[g])
		}
		return parent[g]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Smaller label wins as representative.
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			if related(normalized[i], normalized[j]) {
				union(normalized[i], normalized[j])
			}
		}
	}

	families := make(map[string]string, len(normalized))
	for _, g := range normalized {
		families[g] = find(g)
	}
	return &GenreFamilies{family: families}
}

// FamilyOf returns the family label for a genre. Genres outside the pool the
// families were built from map to themselves.
func (f *GenreFamilies) FamilyOf(genre string) string {
	n := strings.ToLower(strings.TrimSpace(genre))
	if fam, ok := f.family[n]; ok {
		return fam
	}
	return n
}

// related reports whether two normalized genres belong together.
func related(a, b string) bool {
	if a == b {
		return true
	}

	chainA := ancestorChain(a)
	chainB := ancestorChain(b)

	// Parent/child or shared immediate parent counts as one family;
	// merely sharing a distant root (e.g. everything under "electronic")
	// does not, or every pool would collapse into one bucket.
	if contains(chainA, b) || contains(chainB, a) {
		return true
	}
	if len(chainA) > 1 && len(chainB) > 1 && chainA[1] == chainB[1] {
		return true
	}

	return sharedRoot(a, b)
}

// ancestorChain returns genre followed by its ancestors, nearest first.
func ancestorChain(genre string) []string {
	chain := []string{genre}
	current := genre
	for i := 0; i < 8; i++ { // guard against accidental cycles
		p, ok := genreHierarchy[current]
		if !ok || p == "" || p == current {
			break
		}
		chain = append(chain, p)
		current = p
	}
	return chain
}

func contains(chain []string, genre string) bool {
	for _, g := range chain {
		if g == genre {
			return true
		}
	}
	return false
}

// sharedRoot reports whether both genres carry the same significant stem.
func sharedRoot(a, b string) bool {
	for _, root := range genreRoots {
		if strings.Contains(a, root) && strings.Contains(b, root) {
			return true
		}
	}
	return false
}
