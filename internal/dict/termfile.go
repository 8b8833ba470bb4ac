package dict

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/velmed/callscore/internal/model"
)

// termFile is the on-disk YAML shape of a dictionary version.
type termFile struct {
	Dictionary struct {
		Code    string      `yaml:"code"`
		Version string      `yaml:"version"`
		Terms   []termEntry `yaml:"terms"`
	} `yaml:"dictionary"`
}

type termEntry struct {
	Term      string  `yaml:"term"`
	MatchType string  `yaml:"match_type"`
	Weight    float64 `yaml:"weight"`
	Negative  bool    `yaml:"negative"`
	Inactive  bool    `yaml:"inactive"`
}

// LoadTermFile reads a dictionary version from a YAML file and validates it.
// Entries default to active phrase matches; regex patterns must compile.
func LoadTermFile(path string) ([]model.DictionaryTerm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dict: read term file %s", path)
	}

	var tf termFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, eris.Wrapf(err, "dict: parse term file %s", path)
	}

	d := tf.Dictionary
	if d.Code == "" {
		return nil, eris.New("dict: term file missing dictionary.code")
	}
	if d.Version == "" {
		return nil, eris.New("dict: term file missing dictionary.version")
	}
	if len(d.Terms) == 0 {
		return nil, eris.Errorf("dict: term file %s has no terms", path)
	}

	terms := make([]model.DictionaryTerm, 0, len(d.Terms))
	for i, e := range d.Terms {
		if e.Term == "" {
			return nil, eris.Errorf("dict: term %d is empty", i)
		}
		mt := model.MatchType(e.MatchType)
		if e.MatchType == "" {
			mt = model.MatchPhrase
		}
		switch mt {
		case model.MatchPhrase, model.MatchStem:
		case model.MatchRegex:
			if _, err := regexp.Compile(e.Term); err != nil {
				return nil, eris.Wrapf(err, "dict: term %q is not a valid pattern", e.Term)
			}
		default:
			return nil, eris.Errorf("dict: term %q has unknown match type %q", e.Term, e.MatchType)
		}

		terms = append(terms, model.DictionaryTerm{
			DictCode:   d.Code,
			Term:       e.Term,
			MatchType:  mt,
			Weight:     e.Weight,
			IsNegative: e.Negative,
			IsActive:   !e.Inactive,
			Version:    d.Version,
		})
	}
	return terms, nil
}
