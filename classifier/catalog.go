package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
)

// Catalog is the data half of the classifier: keyword/phrase lists and
// pattern sets, separated from detector logic so rules can be updated
// without a redeploy. Catalogs are immutable once built; to reload, build
// a new one and swap the pointer.
type Catalog struct {
	CrisisPhrases        []string
	ProfanityStrong      []string
	ProfanityModerate    []string
	SpamKeywords         []string
	InappropriateAdult   []string
	InappropriateDrugs   []string
	InappropriateWeapons []string

	piiPatterns []piiPattern
}

type piiPattern struct {
	category string
	re       *regexp.Regexp
}

// raw form used for JSON (de)serialization of rule files
type catalogFile struct {
	CrisisPhrases        []string          `json:"crisis_phrases"`
	ProfanityStrong      []string          `json:"profanity_strong"`
	ProfanityModerate    []string          `json:"profanity_moderate"`
	SpamKeywords         []string          `json:"spam_keywords"`
	InappropriateAdult   []string          `json:"inappropriate_adult"`
	InappropriateDrugs   []string          `json:"inappropriate_drugs"`
	InappropriateWeapons []string          `json:"inappropriate_weapons"`
	PIIPatterns          map[string]string `json:"pii_patterns"`
}

var defaultPIIPatterns = map[string]string{
	"email address":       `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
	"phone number":        `(\+?1[\s\-.]?)?\(?\d{3}\)?[\s\-.]?\d{3}[\s\-.]?\d{4}`,
	"SSN-like number":     `\b\d{3}-\d{2}-\d{4}\b`,
	"credit card number":  `\b(?:\d[ \-]?){13,16}\b`,
	"street address":      `(?i)\b\d{1,5}\s+\w+\s+(street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|place|pl)\b`,
	"zip code":            `\b\d{5}(-\d{4})?\b`,
	"self identification": `(?i)\bmy (?:full |real )?name is\s+\w+`,
	"location disclosure": `(?i)\bi live (?:in|at|on)\s+\w+`,
}

// DefaultCatalog returns the built-in rule set. Deployments can override
// it with LoadCatalogJSON.
func DefaultCatalog() *Catalog {
	cat, err := buildCatalog(catalogFile{
		CrisisPhrases: []string{
			"kill myself",
			"want to die",
			"end my life",
			"end it all",
			"suicide",
			"self harm",
			"self-harm",
			"hurt myself",
			"better off dead",
			"no reason to live",
			"not worth living",
		},
		ProfanityStrong: []string{
			"fuck", "fucking", "cunt", "motherfucker", "cocksucker",
		},
		ProfanityModerate: []string{
			"shit", "bitch", "asshole", "bastard", "damn", "crap", "piss",
		},
		SpamKeywords: []string{
			"buy now", "click here", "limited offer", "limited time offer",
			"discount code", "promo code", "earn money", "make money fast",
			"work from home", "free money", "claim your prize",
			"you have won", "crypto giveaway", "dm me to invest",
		},
		InappropriateAdult: []string{
			"porn", "pornhub", "onlyfans", "nudes", "sexting",
		},
		InappropriateDrugs: []string{
			"cocaine", "heroin", "meth", "fentanyl", "buy drugs",
		},
		InappropriateWeapons: []string{
			"buy a gun", "ghost gun", "pipe bomb", "make a bomb",
		},
		PIIPatterns: defaultPIIPatterns,
	})
	if err != nil {
		// the built-in patterns are compile-time constants
		panic(err)
	}
	return cat
}

func buildCatalog(raw catalogFile) (*Catalog, error) {
	cat := &Catalog{
		CrisisPhrases:        raw.CrisisPhrases,
		ProfanityStrong:      raw.ProfanityStrong,
		ProfanityModerate:    raw.ProfanityModerate,
		SpamKeywords:         raw.SpamKeywords,
		InappropriateAdult:   raw.InappropriateAdult,
		InappropriateDrugs:   raw.InappropriateDrugs,
		InappropriateWeapons: raw.InappropriateWeapons,
	}
	pats := raw.PIIPatterns
	if pats == nil {
		pats = defaultPIIPatterns
	}
	// stable order so reasons come out deterministic
	for _, category := range []string{
		"email address", "phone number", "SSN-like number",
		"credit card number", "street address", "zip code",
		"self identification", "location disclosure",
	} {
		expr, ok := pats[category]
		if !ok {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling PII pattern %q: %w", category, err)
		}
		cat.piiPatterns = append(cat.piiPatterns, piiPattern{category: category, re: re})
	}
	for category, expr := range pats {
		if _, known := defaultPIIPatterns[category]; known {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling PII pattern %q: %w", category, err)
		}
		cat.piiPatterns = append(cat.piiPatterns, piiPattern{category: category, re: re})
	}
	return cat, nil
}

// LoadCatalogJSON reads a rule file from disk. Missing list fields fall
// back to empty lists, missing pattern maps to the built-in patterns.
func LoadCatalogJSON(p string) (*Catalog, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cf catalogFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing rule catalog: %w", err)
	}
	return buildCatalog(cf)
}
