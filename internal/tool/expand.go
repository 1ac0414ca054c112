package tool

import (
	"slices"
	"strings"
)

// Expand returns the argv for spec with placeholders substituted.
// The first element is the command.
func Expand(spec Spec) []string {
	argv := make([]string, 0, len(spec.Args)+1)
	argv = append(argv, expandScalar(spec.Command, spec.Vars))

	for _, arg := range spec.Args {
		if name, ok := listPlaceholder(arg); ok {
			if values, found := spec.Lists[name]; found {
				argv = append(argv, values...)
				continue
			}
		}
		argv = append(argv, expandScalar(arg, spec.Vars))
	}
	return argv
}

// UsesList reports whether any argument is the whole list placeholder name.
func UsesList(args []string, name string) bool {
	return slices.Contains(args, "{"+name+"}")
}

func listPlaceholder(arg string) (string, bool) {
	if len(arg) > 2 && arg[0] == '{' && arg[len(arg)-1] == '}' && !strings.ContainsAny(arg[1:len(arg)-1], "{} ") {
		return arg[1 : len(arg)-1], true
	}
	return "", false
}

func expandScalar(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{") {
		return s
	}
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
