package classification

import (
	"fmt"
	"os"

	"mediawatch/types"

	"gopkg.in/yaml.v3"
)

// ThemeRule attaches a theme tag when any of its keywords appears in the
// item text. Keywords are matched case-insensitively and accent-folded.
type ThemeRule struct {
	Tag      types.ThemeTag `yaml:"tag"`
	Keywords []string       `yaml:"keywords"`
}

// RuleSet is the full classification vocabulary. Theme rules are ordered:
// when two themes tie on match ratio, the earlier rule wins the confidence
// score, so the file order is part of the contract.
type RuleSet struct {
	Themes      []ThemeRule `yaml:"themes"`
	Risk        []string    `yaml:"risk"`
	Opportunity []string    `yaml:"opportunity"`
}

// DefaultRules is the built-in bilingual (es/en) vocabulary used when no
// rules file is configured. Sources in the monitored region publish in both
// languages, so both spellings are carried.
func DefaultRules() RuleSet {
	return RuleSet{
		Themes: []ThemeRule{
			{Tag: "economic_activity", Keywords: []string{
				"economía", "economy", "económico", "economic", "crecimiento", "growth",
				"pib", "gdp", "industria", "industry", "producción", "production",
				"manufactura", "manufacturing", "exportaciones", "exports",
			}},
			{Tag: "investment", Keywords: []string{
				"inversión", "investment", "invertir", "invest", "capital",
				"expansión", "expansion", "planta", "plant", "fábrica", "factory",
				"nearshoring", "millones de dólares",
			}},
			{Tag: "employment", Keywords: []string{
				"empleo", "empleos", "jobs", "contratación", "hiring",
				"trabajadores", "workers", "despidos", "layoffs", "laboral", "labor",
				"vacantes", "vacancies", "sindicato",
			}},
			{Tag: "infrastructure", Keywords: []string{
				"infraestructura", "infrastructure", "carretera", "highway",
				"puerto", "port", "aeropuerto", "airport", "construcción", "construction",
				"energía", "energy", "agua potable", "obra pública",
			}},
			{Tag: "security", Keywords: []string{
				"seguridad", "security", "crimen", "crime", "violencia", "violence",
				"robo", "robbery", "homicidio", "homicide", "policía", "police",
				"extorsión", "extortion",
			}},
		},
		Risk: []string{
			"riesgo", "risk", "crisis", "cierre", "closure", "despidos", "layoffs",
			"huelga", "strike", "inseguridad", "insecurity", "violencia", "violence",
			"incertidumbre", "uncertainty", "recesión", "recession",
			"escasez", "shortage", "inundación", "flood", "sequía", "drought",
		},
		Opportunity: []string{
			"oportunidad", "opportunity", "inversión", "investment",
			"empleos", "jobs", "nuevos empleos", "new jobs",
			"crecimiento", "growth", "expansión", "expansion", "apertura", "opening",
			"innovación", "innovation", "nearshoring", "desarrollo", "development",
		},
	}
}

// LoadRules reads a RuleSet from a YAML file. A missing file falls back to
// the built-in defaults.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return RuleSet{}, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rs.validate(); err != nil {
		return RuleSet{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rs, nil
}

func (rs RuleSet) validate() error {
	if len(rs.Themes) == 0 {
		return fmt.Errorf("no theme rules defined")
	}
	seen := make(map[types.ThemeTag]bool, len(rs.Themes))
	for _, tr := range rs.Themes {
		if tr.Tag == "" {
			return fmt.Errorf("theme rule with empty tag")
		}
		if seen[tr.Tag] {
			return fmt.Errorf("duplicate theme tag %q", tr.Tag)
		}
		seen[tr.Tag] = true
		if len(tr.Keywords) == 0 {
			return fmt.Errorf("theme %q has no keywords", tr.Tag)
		}
	}
	return nil
}
