package classifier

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// CategoriesConfig is the YAML layout of a category file:
//
//	categories:
//	  - name: Income
//	    keywords: [salary, payroll]
type CategoriesConfig struct {
	Categories []Category `yaml:"categories"`
}

// LoadCategoryFile reads a category table from YAML. Relative paths resolve
// against the working directory.
func LoadCategoryFile(categoryFile string) ([]Category, error) {
	var categoryPath string
	if filepath.IsAbs(categoryFile) {
		categoryPath = categoryFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		categoryPath = filepath.Join(wd, categoryFile)
	}

	data, err := os.ReadFile(categoryPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", categoryFile, err)
	}

	var config CategoriesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", categoryFile, err)
	}

	if len(config.Categories) == 0 {
		return nil, fmt.Errorf("%s defines no categories", categoryFile)
	}
	for i, category := range config.Categories {
		if category.Name == "" {
			return nil, fmt.Errorf("category at index %d missing name", i)
		}
	}

	return config.Categories, nil
}

// Load returns the built-in classifier when categoryFile is empty, otherwise
// a classifier over the file's table.
func Load(categoryFile string) (*Classifier, error) {
	if categoryFile == "" {
		return Default(), nil
	}
	categories, err := LoadCategoryFile(categoryFile)
	if err != nil {
		return nil, err
	}
	return New(categories), nil
}
