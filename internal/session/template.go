package session

import "strings"

// RenderTemplate substitutes {{var}} placeholders from vars. Unknown
// placeholders are left in place so a bad template is visible in the
// rendered prompt instead of silently dropped.
func RenderTemplate(template string, vars map[string]string) string {
	rendered := template
	for key, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered
}
