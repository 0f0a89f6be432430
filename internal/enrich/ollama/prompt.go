package ollama

import (
	"fmt"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
)

// The prompts mirror the CSV contract the reply parser expects: exact header,
// field count, the 1-20 score range, and the quoting rule for embedded commas
// or newlines. Keep them in sync with internal/enrich/reply.

const healthProbePrompt = "Can you tell me your model name, what you specialize in, " +
	"if you have been fine-tuned for any specific purpose, " +
	"and the date of your most recent training data?"

func combinedPrompt(p enrich.Privilege) string {
	return fmt.Sprintf(`You are an expert in Microsoft Graph API permissions.

For the inputs below, return a CSV with the header exactly:
suggested_privilege_score,extended_description

- suggested_privilege_score: an integer between 1 and 20 (1 = least privilege, 20 = full/admin)
- extended_description: a long, human-readable description of what the privilege allows, security implications, use-cases and guidance.

Return exactly two CSV fields. If the description contains commas or newlines,
enclose it in double-quotes and escape any double-quotes by doubling them.
Do NOT add any other commentary, explanation, or extra rows.

Input:
Privilege Type: %s
Privilege Name: %s

Provide the CSV now.`, p.Type, p.Name)
}

func descriptionPrompt(p enrich.Privilege) string {
	return fmt.Sprintf(`You are an expert in Microsoft Graph API permissions.

For the inputs below, return a CSV with the header exactly:
extended_description

- extended_description: a long, human-readable description of what the privilege allows, security implications, use-cases and guidance.

Return exactly one CSV field (the description). If the description contains commas or newlines,
enclose it in double-quotes and escape any double-quotes by doubling them.
Do NOT add any other commentary, explanation, or extra rows.

Input:
Privilege Type: %s
Privilege Name: %s

Provide the CSV now.`, p.Type, p.Name)
}

func scorePrompt(p enrich.Privilege) string {
	return fmt.Sprintf(`You are an expert in Microsoft Graph API permissions.

For the inputs below, return a CSV with the header exactly:
suggested_privilege_score

- suggested_privilege_score: an integer between 1 and 20 (1 = least privilege, 20 = full/admin)

Return exactly one CSV field that is the integer score. Do NOT add any commentary, explanation, or extra rows.

Input:
Privilege Type: %s
Privilege Name: %s

Provide the CSV now.`, p.Type, p.Name)
}
