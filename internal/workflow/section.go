package workflow

// Section is one named part of the application document. Each section owns
// a disjoint set of document fields.
type Section string

const (
	SectionApplicant        Section = "applicant"
	SectionInstitutional    Section = "institutional"
	SectionProject          Section = "project"
	SectionRequestedStudies Section = "requestedStudies"
	SectionEthics           Section = "ethics"
	SectionAgreements       Section = "agreements"
	SectionAppendices       Section = "appendices"
	SectionCollaborators    Section = "collaborators"
	SectionSign             Section = "sign"
)

// Sections lists every document section.
var Sections = []Section{
	SectionApplicant,
	SectionInstitutional,
	SectionProject,
	SectionRequestedStudies,
	SectionEthics,
	SectionAgreements,
	SectionAppendices,
	SectionCollaborators,
	SectionSign,
}

// sectionFields maps each section to the document fields it owns. The sets
// are disjoint; SectionForField resolves membership without reflection.
var sectionFields = map[Section][]string{
	SectionApplicant:        {"firstName", "lastName", "email", "position", "orcid"},
	SectionInstitutional:    {"institutionName", "institutionAddress", "repName", "repEmail"},
	SectionProject:          {"projectTitle", "projectDescription", "startDate", "endDate", "fundingSource"},
	SectionRequestedStudies: {"studyIDs", "datasetJustification"},
	SectionEthics:           {"ethicsApproval", "ethicsCommittee", "ethicsExpiry"},
	SectionAgreements:       {"acceptedTerms", "dataHandlingAgreement", "publicationPolicy"},
	SectionAppendices:       {"attachments"},
	SectionCollaborators:    {"collaboratorList"},
	SectionSign:             {"applicantSignature", "institutionalRepSignature"},
}

var fieldToSection = func() map[string]Section {
	m := make(map[string]Section)
	for section, fields := range sectionFields {
		for _, f := range fields {
			m[f] = section
		}
	}
	return m
}()

// SectionForField returns the section owning the given document field.
func SectionForField(field string) (Section, bool) {
	s, ok := fieldToSection[field]
	return s, ok
}

// FieldsOf returns the document fields owned by a section.
func FieldsOf(s Section) []string {
	return sectionFields[s]
}

// IsValidSection reports whether s is a member of the section enum.
func IsValidSection(s Section) bool {
	_, ok := sectionFields[s]
	return ok
}
