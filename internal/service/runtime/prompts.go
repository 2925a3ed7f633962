package runtime

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"companionhk/internal/domain/models"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptCatalog struct {
	Roles map[string]string `yaml:"roles"`
}

var rolePrompts map[string]string

func init() {
	var catalog promptCatalog
	if err := yaml.Unmarshal(promptsYAML, &catalog); err != nil {
		panic(fmt.Sprintf("parse embedded role prompts: %v", err))
	}
	rolePrompts = catalog.Roles
}

// SystemPromptFor returns the persona prompt for a role. Unknown roles get
// the companion persona.
func SystemPromptFor(role models.Role) string {
	if prompt, ok := rolePrompts[string(role)]; ok {
		return prompt
	}
	return rolePrompts[string(models.RoleCompanion)]
}
