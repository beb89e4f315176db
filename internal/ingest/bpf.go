package ingest

import (
	"fmt"
	"strings"

	"netsentry/internal/model"
)

// BuildBPF renders a filter config as a BPF expression, one parenthesized
// or-group per clause: "(tcp or udp) and (port 80 or port 443)". An empty
// config yields "".
func BuildBPF(cfg model.FilterConfig) string {
	var groups []string
	if len(cfg.Protocols) > 0 {
		parts := make([]string, 0, len(cfg.Protocols))
		for _, p := range cfg.Protocols {
			parts = append(parts, strings.ToLower(p))
		}
		groups = append(groups, group(parts))
	}
	if len(cfg.Ports) > 0 {
		parts := make([]string, 0, len(cfg.Ports))
		for _, p := range cfg.Ports {
			parts = append(parts, fmt.Sprintf("port %d", p))
		}
		groups = append(groups, group(parts))
	}
	return strings.Join(groups, " and ")
}

func group(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " or ") + ")"
}
