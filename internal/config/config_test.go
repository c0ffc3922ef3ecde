package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("init without config file: %v", err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Output != "mappings.txt" || !c.Append || c.Package != "" || c.Verbose {
		t.Errorf("defaults = %+v", c)
	}
}

func TestFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deobf.yaml")
	doc := "package: com/example/game\noutput: out/map.txt\nappend: false\nversion-constraint: \">= 1.0\"\nonly: [Space, Economy]\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEOBF_OUTPUT", "env.txt")
	t.Setenv("DEOBF_VERBOSE", "true")

	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatal(err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Package != "com/example/game" {
		t.Errorf("package = %q", c.Package)
	}
	if c.Output != "env.txt" {
		t.Errorf("output = %q, want env override", c.Output)
	}
	if c.Append {
		t.Error("append = true, want false from file")
	}
	if c.VersionConstraint != ">= 1.0" {
		t.Errorf("version-constraint = %q", c.VersionConstraint)
	}
	if len(c.Only) != 2 || c.Only[0] != "Space" || c.Only[1] != "Economy" {
		t.Errorf("only = %q", c.Only)
	}
	if !c.Verbose {
		t.Error("verbose not taken from DEOBF_VERBOSE")
	}
}

func TestMissingExplicitFile(t *testing.T) {
	v := viper.New()
	if err := Init(v, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}
