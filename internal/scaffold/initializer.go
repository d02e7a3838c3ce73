package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/registry"
)

//go:embed templates/*
var templatesFS embed.FS

// Files created by Initialize, relative to the target directory.
const (
	ConfigFile   = "floor.yml"
	RegistryFile = "registry.yml"
)

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter floor.yml and registry.yml into dir.
// If force is true, existing files are overwritten.
func Initialize(dir string, force bool, log io.Writer) error {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if force {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(log, "⚠️  Overwriting existing %s...\n", file.Path)
			}
		}
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles(dir)
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	var files []FileInfo
	for _, name := range []string{ConfigFile, RegistryFile} {
		content, err := templatesFS.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", name, err)
		}
		files = append(files, FileInfo{Path: name, Content: content, Permissions: 0644})
	}
	return files, nil
}

// validateCreatedFiles loads the written files through the real loaders
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, ConfigFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", ConfigFile, err)
	}
	if _, err := registry.Load(filepath.Join(dir, RegistryFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", RegistryFile, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(w io.Writer) {
	fmt.Fprintln(w, "\n✅ Successfully initialized floor configuration!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", ConfigFile)
	fmt.Fprintf(w, "  ✓ %s\n", RegistryFile)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Edit %s with your operators and products\n", RegistryFile)
	fmt.Fprintf(w, "  2. Run 'floor registry import %s'\n", RegistryFile)
	fmt.Fprintln(w, "  3. Start 'coordinator' and 'ingester'")
}
