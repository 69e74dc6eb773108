package core

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"triage-assist/pkg"
)

//go:embed protocol.yaml
var defaultProtocolYAML []byte

// KeywordPlaceholder is replaced with the matched keyword in evidence text.
const KeywordPlaceholder = "{keyword}"

// Protocol is an ordered list of keyword gates.  The last gate must be the
// only terminal one.  A loaded Protocol is read-only.
type Protocol struct {
	Name  string `yaml:"name"`
	Note  string `yaml:"note"`
	Gates []Gate `yaml:"gates"`
}

// Gate is one keyword-triggered decision point.  A gate fires when the
// normalised report contains any of its keywords; a terminal gate also
// decides when it does not fire, using OnMiss.
type Gate struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Keywords []string `yaml:"keywords"`
	Terminal bool     `yaml:"terminal"`
	OnMatch  Branch   `yaml:"on_match"`
	OnMiss   Branch   `yaml:"on_miss"`

	normalized []string
}

// Branch is the step metadata for one side of a gate.  Urgency, Summary and
// Cautions are only used when the branch ends the evaluation; Next only when
// it does not.
type Branch struct {
	Urgency         pkg.UrgencyLevel `yaml:"urgency"`
	Evidence        string           `yaml:"evidence"`
	FallbackKeyword string           `yaml:"fallback_keyword"`
	Decision        string           `yaml:"decision"`
	Next            string           `yaml:"next"`
	Summary         string           `yaml:"summary"`
	Cautions        []string         `yaml:"cautions"`
}

var defaultProtocol = sync.OnceValues(func() (*Protocol, error) {
	return ParseProtocol(defaultProtocolYAML)
})

// DefaultProtocol returns the embedded prototype protocol.
func DefaultProtocol() *Protocol {
	p, err := defaultProtocol()
	if err != nil {
		panic(fmt.Sprintf("core: embedded protocol is invalid: %v", err))
	}
	return p
}

// LoadProtocolFile reads a protocol document from disk.
func LoadProtocolFile(path string) (*Protocol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open protocol %s: %w", path, err)
	}
	defer f.Close()
	p, err := LoadProtocol(f)
	if err != nil {
		return nil, fmt.Errorf("protocol %s: %w", path, err)
	}
	return p, nil
}

// LoadProtocol decodes and validates a protocol document.
func LoadProtocol(r io.Reader) (*Protocol, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read protocol: %w", err)
	}
	return ParseProtocol(data)
}

// ParseProtocol decodes and validates a protocol document held in memory.
func ParseProtocol(data []byte) (*Protocol, error) {
	var p Protocol
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode protocol: %w", err)
	}
	return p.prepare()
}

// prepare validates p and returns a copy with the normalised keywords filled
// in.  p itself is not modified.
func (p *Protocol) prepare() (*Protocol, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	prepared := *p
	prepared.Gates = make([]Gate, len(p.Gates))
	for i, g := range p.Gates {
		g.normalized = make([]string, len(g.Keywords))
		for j, k := range g.Keywords {
			g.normalized[j] = stripSpace(k)
		}
		prepared.Gates[i] = g
	}
	return &prepared, nil
}

func (p *Protocol) validate() error {
	var errs []error
	if len(p.Gates) == 0 {
		return errors.New("protocol has no gates")
	}
	seen := make(map[string]bool, len(p.Gates))
	for i, g := range p.Gates {
		last := i == len(p.Gates)-1
		switch {
		case g.ID == "":
			errs = append(errs, fmt.Errorf("gate %d: id is required", i))
		case seen[g.ID]:
			errs = append(errs, fmt.Errorf("gate %q: duplicate id", g.ID))
		}
		seen[g.ID] = true

		if len(g.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("gate %q: keywords are required", g.ID))
		}
		for _, k := range g.Keywords {
			if stripSpace(k) == "" {
				errs = append(errs, fmt.Errorf("gate %q: blank keyword", g.ID))
			}
		}
		if g.Terminal != last {
			errs = append(errs, fmt.Errorf("gate %q: exactly the last gate must be terminal", g.ID))
		}
		errs = append(errs, g.OnMatch.validateDecisive(g.ID, "on_match")...)
		if g.Terminal {
			errs = append(errs, g.OnMiss.validateDecisive(g.ID, "on_miss")...)
		} else if g.OnMiss.Next == "" {
			errs = append(errs, fmt.Errorf("gate %q: on_miss.next is required", g.ID))
		} else if !last && g.OnMiss.Next != p.Gates[i+1].ID {
			errs = append(errs, fmt.Errorf("gate %q: on_miss.next %q does not name the following gate %q", g.ID, g.OnMiss.Next, p.Gates[i+1].ID))
		}
	}
	return errors.Join(errs...)
}

func (b Branch) validateDecisive(gateID, side string) []error {
	var errs []error
	if !b.Urgency.Valid() {
		errs = append(errs, fmt.Errorf("gate %q: %s.urgency %q is not a level", gateID, side, b.Urgency))
	}
	if b.Summary == "" {
		errs = append(errs, fmt.Errorf("gate %q: %s.summary is required", gateID, side))
	}
	if len(b.Cautions) == 0 {
		errs = append(errs, fmt.Errorf("gate %q: %s.cautions needs at least one entry", gateID, side))
	}
	return errs
}

// match reports whether the report fires g.  keyword is the first declared
// keyword found verbatim in the raw text, or "" when only the whitespace
// stripped comparison matched.
func (g *Gate) match(raw, normalized string) (keyword string, fired bool) {
	for _, k := range g.normalized {
		if strings.Contains(normalized, k) {
			fired = true
			break
		}
	}
	if !fired {
		return "", false
	}
	for _, k := range g.Keywords {
		if strings.Contains(raw, k) {
			return k, true
		}
	}
	return "", true
}

func (b Branch) evidence(keyword string) string {
	if keyword == "" {
		keyword = b.FallbackKeyword
	}
	return strings.ReplaceAll(b.Evidence, KeywordPlaceholder, keyword)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
