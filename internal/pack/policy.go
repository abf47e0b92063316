package pack

// Policy lists the document types each application type must include.
type Policy map[string][]DocumentType

var householderSet = []DocumentType{
	ApplicationForm,
	LocationPlan,
	SitePlan,
	ExistingDrawings,
	ProposedDrawings,
}

func withHouseholder(extra ...DocumentType) []DocumentType {
	out := make([]DocumentType, 0, len(householderSet)+len(extra))
	out = append(out, householderSet...)
	return append(out, extra...)
}

// DefaultPolicy returns the required-document policy for planning
// applications. A fresh map is returned on each call.
func DefaultPolicy() Policy {
	return Policy{
		"householder":     withHouseholder(),
		"full_planning":   withHouseholder(DesignStatement, PlanningStatement),
		"listed_building": withHouseholder(HeritageStatement, DesignStatement),
	}
}

// Required returns the required types for appType. Unknown types require nothing.
func (p Policy) Required(appType string) []DocumentType {
	return p[appType]
}

func (p Policy) IsRequired(appType string, t DocumentType) bool {
	for _, r := range p[appType] {
		if r == t {
			return true
		}
	}
	return false
}

// Missing returns the required types for appType that are absent from
// present, in policy order.
func (p Policy) Missing(appType string, present []DocumentType) []DocumentType {
	have := make(map[DocumentType]struct{}, len(present))
	for _, t := range present {
		have[t] = struct{}{}
	}
	var missing []DocumentType
	for _, r := range p[appType] {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}
