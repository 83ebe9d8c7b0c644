package parser

import "github.com/KaramelBytes/docassist/internal/analysis"

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool { return hasExt(filename, ".json") }

func (jsonLoader) Load(content []byte, _ Options) (*analysis.Table, error) {
	return analysis.TableFromJSON(content)
}
