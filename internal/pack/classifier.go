package pack

import "strings"

// DocumentType tags what a document is for planning purposes.
type DocumentType string

const (
	LocationPlan       DocumentType = "location_plan"
	SitePlan           DocumentType = "site_plan"
	ExistingDrawings   DocumentType = "existing_drawings"
	ProposedDrawings   DocumentType = "proposed_drawings"
	DesignStatement    DocumentType = "design_statement"
	PlanningStatement  DocumentType = "planning_statement"
	HeritageStatement  DocumentType = "heritage_statement"
	ApplicationForm    DocumentType = "application_form"
	SupportingDocument DocumentType = "supporting_document"
)

type classificationRule struct {
	patterns []string
	docType  DocumentType
}

// Evaluated in order; the first rule with a matching pattern wins.
var classificationRules = []classificationRule{
	{patterns: []string{"location", "site_location"}, docType: LocationPlan},
	{patterns: []string{"site_plan", "site plan"}, docType: SitePlan},
	{patterns: []string{"existing", "current"}, docType: ExistingDrawings},
	{patterns: []string{"proposed", "new"}, docType: ProposedDrawings},
	{patterns: []string{"design", "design_statement"}, docType: DesignStatement},
	{patterns: []string{"planning", "planning_statement"}, docType: PlanningStatement},
	{patterns: []string{"heritage", "heritage_statement"}, docType: HeritageStatement},
	{patterns: []string{"application", "form"}, docType: ApplicationForm},
}

// Classify maps an original file name to a document type using a
// case-insensitive substring match. Names that match nothing are
// supporting documents.
func Classify(originalName string) DocumentType {
	name := strings.ToLower(originalName)
	for _, rule := range classificationRules {
		for _, p := range rule.patterns {
			if strings.Contains(name, p) {
				return rule.docType
			}
		}
	}
	return SupportingDocument
}
