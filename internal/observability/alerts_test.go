package observability

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestPostingAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "posting.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	if len(spec.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	seen := map[string]bool{}
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			if rule.Alert == "" {
				t.Fatal("alert rule missing name")
			}
			if rule.Expr == "" {
				t.Fatalf("alert %s missing expr", rule.Alert)
			}
			if rule.Labels["severity"] == "" {
				t.Fatalf("alert %s missing severity label", rule.Alert)
			}
			if rule.Annotations["summary"] == "" {
				t.Fatalf("alert %s missing summary annotation", rule.Alert)
			}
			seen[rule.Alert] = true
		}
	}

	for _, required := range []string{"PostingErrorRateHigh", "PostingLatencyHigh"} {
		if !seen[required] {
			t.Fatalf("expected alert %s to be defined", required)
		}
	}
}
