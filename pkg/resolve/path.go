package resolve

import "strings"

// Extension is the fixed extension of template resources.
const Extension = "tpl"

// CandidatePath builds `[basePath/][theme/]name[.templateID].extension`.
// Empty segments are skipped and surrounding slashes are collapsed so the
// result never has a leading slash from an empty prefix or a double slash.
func CandidatePath(basePath, theme, name, templateID, extension string) string {
	var b strings.Builder

	prefix := prefixPath(basePath, theme)
	b.WriteString(prefix)
	b.WriteString(strings.TrimLeft(name, "/"))
	if templateID != "" {
		b.WriteByte('.')
		b.WriteString(templateID)
	}
	if extension != "" {
		b.WriteByte('.')
		b.WriteString(extension)
	}
	return b.String()
}

// prefixPath joins basePath and theme into a directory prefix that is either
// empty or ends with exactly one slash.
func prefixPath(segments ...string) string {
	var parts []string
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

func trimExtension(p string) string {
	return strings.TrimSuffix(p, "."+Extension)
}
