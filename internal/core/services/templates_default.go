package services

import (
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// DefaultTemplateTable returns the built-in factoid templates for every known
// domain. Field names match the cleaned fields produced by the connectors.
//
//nolint:funlen // Declarative table
func DefaultTemplateTable() TemplateTable {
	return TemplateTable{
		domain.DomainComputeResources: {
			{
				ID:             "fq_resource_type",
				Question:       "What type of resource is {name}?",
				Answer:         "{name} is a {resource_type} resource.",
				RequiredFields: []string{"name", "resource_type"},
			},
			{
				ID:             "fq_operator",
				Question:       "Who operates {name}?",
				Answer:         "{name} is operated by {organization_names}.",
				RequiredFields: []string{"name", "organization_names"},
			},
			{
				ID:             "fq_has_gpu",
				Question:       "Does {name} have GPUs?",
				BoolField:      "has_gpu",
				AnswerYes:      "Yes, {name} has GPUs available.",
				AnswerNo:       "No, {name} does not have GPUs.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_gpu_model",
				Question:       "What GPU models does {name} have?",
				Answer:         "{name} has {gpu_names}.",
				RequiredFields: []string{"name", "gpu_names"},
			},
			{
				ID:             "fq_allocated",
				Question:       "Is {name} ACCESS-allocated?",
				BoolField:      "access_allocated",
				AnswerYes:      "Yes, {name} is an ACCESS-allocated resource.",
				AnswerNo:       "No, {name} is not ACCESS-allocated.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_features",
				Question:       "What features does {name} support?",
				Answer:         "{name} supports {feature_names}.",
				RequiredFields: []string{"name", "feature_names"},
			},
			{
				ID:             "fq_description",
				Question:       "What is {name}?",
				Answer:         "{description_short}",
				RequiredFields: []string{"name", "description_short"},
			},
		},
		domain.DomainSoftware: {
			{
				ID:             "fq_software_type",
				Question:       "What type of software is {name}?",
				Answer:         "{name} is a {software_type}.",
				RequiredFields: []string{"name", "software_type"},
			},
			{
				ID:             "fq_resource_count",
				Question:       "How many ACCESS resources have {name} installed?",
				Answer:         "{name} is available on {available_on_resources_count} ACCESS resources.",
				RequiredFields: []string{"name", "available_on_resources"},
			},
			{
				ID:             "fq_resource_list",
				Question:       "Which ACCESS systems have {name}?",
				Answer:         "{name} is available on {available_on_resources}.",
				RequiredFields: []string{"name", "available_on_resources"},
			},
			{
				ID:             "fq_latest_version",
				Question:       "What is the latest version of {name} on ACCESS?",
				Answer:         "The latest version of {name} on ACCESS is {latest_version}.",
				RequiredFields: []string{"name", "latest_version"},
			},
			{
				ID:             "fq_version_count",
				Question:       "How many versions of {name} are available on ACCESS?",
				Answer:         "There are {versions_count} versions of {name} available on ACCESS.",
				RequiredFields: []string{"name", "versions"},
			},
			{
				ID:             "fq_has_example",
				Question:       "Is there a usage example for {name} on ACCESS?",
				BoolField:      "example_use",
				AnswerYes:      "Yes, there is a usage example available for {name} on ACCESS.",
				AnswerNo:       "No, there is no usage example available for {name} on ACCESS.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_description",
				Question:       "What is {name}?",
				Answer:         "{description}",
				RequiredFields: []string{"name", "description"},
			},
		},
		domain.DomainAllocations: {
			{
				ID:             "fq_pi_name",
				Question:       "Who is the PI for {title}?",
				Answer:         "The PI for {title} is {pi}.",
				RequiredFields: []string{"title", "pi"},
			},
			{
				ID:             "fq_institution",
				Question:       "What institution leads {title}?",
				Answer:         "{title} is led by researchers at {institution}.",
				RequiredFields: []string{"title", "institution"},
			},
			{
				ID:             "fq_field",
				Question:       "What field of science is {title} in?",
				Answer:         "{title} is in the field of {field_of_science}.",
				RequiredFields: []string{"title", "field_of_science"},
			},
			{
				ID:             "fq_start_date",
				Question:       "When does {title} start?",
				Answer:         "{title} starts on {begin_date}.",
				RequiredFields: []string{"title", "begin_date"},
			},
			{
				ID:             "fq_end_date",
				Question:       "When does {title} end?",
				Answer:         "{title} ends on {end_date}.",
				RequiredFields: []string{"title", "end_date"},
			},
			{
				ID:             "fq_alloc_type",
				Question:       "What type of allocation is {title}?",
				Answer:         "{title} is a {allocation_type} allocation.",
				RequiredFields: []string{"title", "allocation_type"},
			},
			{
				ID:             "fq_resource_count",
				Question:       "How many resources does {title} use?",
				Answer:         "{title} uses {resources_count} resources.",
				RequiredFields: []string{"title", "resources"},
			},
			{
				ID:             "fq_resource_list",
				Question:       "What resources does {title} use?",
				Answer:         "{title} uses {resources}.",
				RequiredFields: []string{"title", "resources"},
			},
		},
		domain.DomainNSFAwards: {
			{
				ID:             "fq_pi_name",
				Question:       `Who is the PI for the NSF award "{title}"?`,
				Answer:         `The PI for "{title}" is {principal_investigator}.`,
				RequiredFields: []string{"title", "principal_investigator"},
			},
			{
				ID:             "fq_institution",
				Question:       `What institution is the NSF award "{title}" at?`,
				Answer:         `"{title}" is at {institution}.`,
				RequiredFields: []string{"title", "institution"},
			},
			{
				ID:             "fq_amount",
				Question:       `How much funding was awarded for "{title}"?`,
				Answer:         `"{title}" was awarded {total_intended_award}.`,
				RequiredFields: []string{"title", "total_intended_award"},
			},
			{
				ID:             "fq_program",
				Question:       `What NSF program funds "{title}"?`,
				Answer:         `"{title}" is funded by the {primary_program} program.`,
				RequiredFields: []string{"title", "primary_program"},
			},
			{
				ID:             "fq_start_date",
				Question:       `When does the NSF award "{title}" start?`,
				Answer:         `"{title}" starts on {start_date}.`,
				RequiredFields: []string{"title", "start_date"},
			},
			{
				ID:             "fq_end_date",
				Question:       `When does the NSF award "{title}" end?`,
				Answer:         `"{title}" ends on {end_date}.`,
				RequiredFields: []string{"title", "end_date"},
			},
			{
				ID:             "fq_has_copis",
				Question:       `Does "{title}" have co-PIs?`,
				BoolField:      "co_pis",
				AnswerYes:      `Yes, "{title}" has {co_pis_count} co-PI(s): {co_pis}.`,
				AnswerNo:       `No, "{title}" does not have any co-PIs.`,
				RequiredFields: []string{"title"},
			},
			{
				ID:             "fq_award_number",
				Question:       `What is the award number for "{title}"?`,
				Answer:         `The award number for "{title}" is {award_number}.`,
				RequiredFields: []string{"title", "award_number"},
			},
		},
		domain.DomainAffinityGroups: {
			{
				ID:             "fq_coordinator",
				Question:       "Who coordinates the {name} affinity group?",
				Answer:         "The {name} affinity group is coordinated by {coordinator}.",
				RequiredFields: []string{"name", "coordinator"},
			},
			{
				ID:             "fq_category",
				Question:       "What category is the {name} affinity group in?",
				Answer:         "The {name} affinity group is in the {category} category.",
				RequiredFields: []string{"name", "category"},
			},
			{
				ID:             "fq_has_slack",
				Question:       "Does the {name} affinity group have a Slack channel?",
				BoolField:      "slack_link",
				AnswerYes:      "Yes, the {name} affinity group has a Slack channel.",
				AnswerNo:       "No, the {name} affinity group does not have a Slack channel.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_has_events",
				Question:       "Does the {name} affinity group host events?",
				BoolField:      "upcoming_events",
				AnswerYes:      "Yes, the {name} affinity group hosts events.",
				AnswerNo:       "No, the {name} affinity group does not currently have events listed.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_has_kb",
				Question:       "Does the {name} affinity group have a knowledge base?",
				BoolField:      "knowledge_base_topics",
				AnswerYes:      "Yes, the {name} affinity group maintains a knowledge base.",
				AnswerNo:       "No, the {name} affinity group does not have a knowledge base.",
				RequiredFields: []string{"name"},
			},
			{
				ID:             "fq_support",
				Question:       "Where can I get support from the {name} affinity group?",
				Answer:         "You can get support from the {name} affinity group at {support_url}.",
				RequiredFields: []string{"name", "support_url"},
			},
		},
	}
}

func defaultPreparers() map[string]FieldPreparer {
	return map[string]FieldPreparer{
		domain.DomainComputeResources: prepareComputeResource,
		domain.DomainSoftware:         prepareSoftware,
	}
}

// prepareComputeResource adds description_short, the first sentence of the description.
func prepareComputeResource(fields domain.Fields) {
	desc := strings.TrimSpace(fields.String("description"))
	if desc == "" {
		fields["description_short"] = ""
		return
	}
	first, _, _ := strings.Cut(desc, ". ")
	if !strings.HasSuffix(first, ".") {
		first += "."
	}
	fields["description_short"] = first
}

// prepareSoftware adds latest_version from the newest-first versions list.
func prepareSoftware(fields domain.Fields) {
	versions := fields.Strings("versions")
	if len(versions) == 0 {
		fields["latest_version"] = ""
		return
	}
	fields["latest_version"] = versions[0]
}
