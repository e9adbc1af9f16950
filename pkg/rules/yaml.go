package rules

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"dohrules/pkg/domain"
)

// RenderYAML renders g as a Mihomo rule-provider with behavior domain.
// Each provider's first entry carries the provider name as a head comment.
func RenderYAML(g *domain.Group, title, generated string) ([]byte, error) {
	payload := &yaml.Node{Kind: yaml.SequenceNode}
	for _, name := range g.SortedProviders() {
		for i, d := range g.SortedDomains(name) {
			item := &yaml.Node{Kind: yaml.ScalarNode, Value: d}
			if i == 0 {
				item.HeadComment = name
			}
			payload.Content = append(payload.Content, item)
		}
	}

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "payload"},
			payload,
		},
	}
	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		HeadComment: fmt.Sprintf(
			"DoH Servers Ruleset - %s\nAuto-generated from curl/curl wiki\nGenerated at: %s\nTotal domains: %d\nFormat: Mihomo rule-provider (behavior: domain)",
			title, generated, g.Len()),
		Content: []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
