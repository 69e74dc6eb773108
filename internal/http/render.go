package http

import (
	"html/template"

	"triage-assist/pkg"
)

var templateFuncs = template.FuncMap{
	"urgencyLabel": func(u pkg.UrgencyLevel) string {
		if l := u.Label(); l != "" {
			return l
		}
		return string(u)
	},
	"nextLabel": func(next *string) string {
		if next == nil || *next == "" {
			return "—"
		}
		return *next
	},
	"inc": func(i int) int { return i + 1 },
	"levels": func() []pkg.UrgencyInfo {
		out := make([]pkg.UrgencyInfo, 0, len(pkg.UrgencyLevels))
		for _, u := range pkg.UrgencyLevels {
			out = append(out, u.Info())
		}
		return out
	},
}
