package roles

// AdminRole sees every candidate
const AdminRole = "admin"

// Filter keeps the candidates the caller may see: all of them for admins,
// otherwise those whose name (or projectName_name when a project is set)
// is one of the caller's roles
func Filter(candidates []string, projectName string, roles Set) []string {
	if roles.IsAdmin() {
		out := make([]string, len(candidates))
		copy(out, candidates)
		return out
	}

	out := make([]string, 0, len(candidates))
	for _, val := range candidates {
		required := val
		if projectName != "" {
			required = projectName + "_" + val
		}
		if roles.Contains(required) {
			out = append(out, val)
		}
	}
	return out
}

// Policy decides whether filtering applies to a parameter
type Policy struct {
	Enabled     bool
	ProjectName string
}

// Apply filters candidates when the policy is enabled and returns them unchanged otherwise
func (p Policy) Apply(candidates []string, roles Set) []string {
	if !p.Enabled {
		return candidates
	}
	return Filter(candidates, p.ProjectName, roles)
}
