// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// stepBackPromptTmpl asks for the broader context of a question and a list of
// retrieval topics.
var stepBackPromptTmpl = template.Must(template.New("step-back").Parse(`You are a biomedical research assistant.

Your job is to analyze a user's research question and write a *step-back summary*: a 1-2 sentence explanation that captures the broader biomedical context of the question.

The summary should NOT rephrase the question.
Instead, it should generalize it to reflect the underlying medical domain, disease area, or biological system it relates to.

Then, return a list of 3-6 relevant biomedical topics (specific and general) that can help retrieve scientific articles related to the question.

Respond with a JSON object with two fields: "summary" (the step-back summary) and "topics" (an array of strings). Do not include any text outside the JSON object.

Examples:

User Question: What are the known side effects of infliximab in long-term use?
{"summary": "This question is about safety and long-term adverse effects of infliximab, a monoclonal antibody used to treat autoimmune diseases such as Crohn's disease and rheumatoid arthritis.", "topics": ["infliximab", "autoimmune diseases", "Crohn's disease", "rheumatoid arthritis", "drug safety"]}

User Question: What are the comparative effects of etanercept and adalimumab in treating psoriatic arthritis?
{"summary": "This question relates to the evaluation of biologic therapies used to treat psoriatic arthritis, a type of autoimmune inflammatory arthritis associated with psoriasis.", "topics": ["etanercept", "adalimumab", "psoriatic arthritis", "biologic therapies", "autoimmune diseases", "inflammatory arthritis"]}

---

User Question: {{.Question}}
`))

// broadenPromptTmpl asks for generalization-level terms for a topic list.
var broadenPromptTmpl = template.Must(template.New("broaden").Parse(`You are a biomedical assistant helping with literature retrieval.

For each of the following biomedical search topics, suggest 1-2 truly *broader* medical terms to improve article search.
Only include *generalization-level terms* that subsume or encompass the original topic.
Avoid:
- Synonyms or related terms
- Narrower or equivalent terms
- Overly generic terms like "treatment", "therapy", "biologics", or "medicine"

Example:
Input: ["asthma", "airway inflammation"]
Output: {"topics": ["respiratory diseases", "pulmonary disorders"]}

Now expand the following:
{{.Topics}}

Respond with a JSON object whose "topics" field is an array of strings. No extra text.
`))

func renderStepBack(question string) (string, error) {
	var buf bytes.Buffer
	if err := stepBackPromptTmpl.Execute(&buf, struct{ Question string }{question}); err != nil {
		return "", fmt.Errorf("executing step-back template: %w", err)
	}
	return buf.String(), nil
}

func renderBroaden(topics []string) (string, error) {
	list, err := json.Marshal(topics)
	if err != nil {
		return "", fmt.Errorf("encoding topics: %w", err)
	}
	var buf bytes.Buffer
	if err := broadenPromptTmpl.Execute(&buf, struct{ Topics string }{string(list)}); err != nil {
		return "", fmt.Errorf("executing broaden template: %w", err)
	}
	return buf.String(), nil
}
