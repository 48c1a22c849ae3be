// Package steps defines the ordered stages of a post generation and the
// coarse progress each one represents.
package steps

import "fmt"

// Step names
const (
	Text    = "text"
	Image   = "image"
	Slug    = "slug"
	Upload  = "upload"
	Persist = "persist"
	Social  = "social"
	Done    = "done"
)

// Categories group steps for display.
const (
	CategoryGeneration   = "generation"
	CategoryPersistence  = "persistence"
	CategoryDistribution = "distribution"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Percent      int
	Dependencies []string
	Optional     bool
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	Text: {
		Name:     Text,
		Category: CategoryGeneration,
		Percent:  10,
	},
	Image: {
		Name:         Image,
		Category:     CategoryGeneration,
		Percent:      40,
		Dependencies: []string{Text},
		Optional:     true,
	},
	Slug: {
		Name:         Slug,
		Category:     CategoryPersistence,
		Percent:      60,
		Dependencies: []string{Text},
	},
	Upload: {
		Name:         Upload,
		Category:     CategoryPersistence,
		Percent:      70,
		Dependencies: []string{Image},
		Optional:     true,
	},
	Persist: {
		Name:         Persist,
		Category:     CategoryPersistence,
		Percent:      85,
		Dependencies: []string{Slug},
	},
	Social: {
		Name:         Social,
		Category:     CategoryDistribution,
		Percent:      95,
		Dependencies: []string{Persist},
		Optional:     true,
	},
	Done: {
		Name:         Done,
		Category:     CategoryDistribution,
		Percent:      100,
		Dependencies: []string{Persist},
	},
}

// Order is the execution order of the steps.
var Order = []string{Text, Image, Slug, Upload, Persist, Social, Done}

// Percent returns the progress reached when name starts.
func Percent(name string) int {
	return StepRegistry[name].Percent
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s has missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateDependencies checks that every required dependency of stepName is
// in completed.
func ValidateDependencies(completed map[string]bool, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingDependencies: missing}
	}
	return nil
}
