package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsCoverTheProFamily(t *testing.T) {
	models := Defaults()
	labels := Labels(models)

	want := []string{"iPhone 17 Pro", "iPhone 17 Pro Max"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d models, got %d", len(want), len(labels))
	}
	for i, label := range want {
		if labels[i] != label {
			t.Errorf("model %d: expected %q, got %q", i, label, labels[i])
		}
	}
}

func TestResolveEmptySelectsEverything(t *testing.T) {
	models := Defaults()
	selected, err := Resolve(models, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(selected) != len(models) {
		t.Fatalf("expected %d models, got %d", len(models), len(selected))
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	selected, err := Resolve(Defaults(), []string{"iphone 17 pro max"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(selected) != 1 || selected[0].Label != "iPhone 17 Pro Max" {
		t.Fatalf("unexpected selection %+v", selected)
	}
}

func TestResolveRejectsUnknownLabel(t *testing.T) {
	_, err := Resolve(Defaults(), []string{"iPhone 18"})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if !strings.Contains(err.Error(), "iPhone 17 Pro") {
		t.Errorf("error should list known labels, got %v", err)
	}
}

func writeRegistry(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write registry file: %v", err)
	}
	return path
}

func TestLoadYAMLRegistry(t *testing.T) {
	path := writeRegistry(t, "models.yaml", `
models:
  - label: "iPhone 17 Pro"
    parts: ["MTUV3CH/A", "  ", "MTUW3CH/A"]
  - label: "iPhone Air"
    search_term: "iPhone Air"
`)

	models, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].SearchTerm != "iPhone 17 Pro" {
		t.Errorf("expected search_term to default to label, got %q", models[0].SearchTerm)
	}
	if len(models[0].Parts) != 2 {
		t.Errorf("expected blank parts to be dropped, got %v", models[0].Parts)
	}
}

func TestLoadJSONRegistry(t *testing.T) {
	path := writeRegistry(t, "models.json", `{"models": [{"label": "iPhone Air", "search_term": "iPhone Air"}]}`)

	models, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(models) != 1 || models[0].Label != "iPhone Air" {
		t.Fatalf("unexpected models %+v", models)
	}
}

func TestLoadRejectsDuplicateLabels(t *testing.T) {
	path := writeRegistry(t, "models.yaml", `
models:
  - label: "iPhone 17 Pro"
  - label: "iphone 17 pro"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestLoadRejectsEmptyRegistry(t *testing.T) {
	path := writeRegistry(t, "models.yaml", `models: []`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func TestLoadRejectsMissingLabel(t *testing.T) {
	path := writeRegistry(t, "models.yaml", `
models:
  - search_term: "iPhone Air"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for model without label")
	}
}
