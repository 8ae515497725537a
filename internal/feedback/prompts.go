package feedback

import (
	"strings"
	"text/template"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const systemPrompt = `You are an experienced hackathon judge. Write constructive, specific feedback addressed to the team. Be concise and do not invent facts that are not in the notes.`

type scoreLine struct {
	Criterion string
	Score     int
}

func sortedScores(scores map[string]int) []scoreLine {
	names := maps.Keys(scores)
	slices.Sort(names)
	res := make([]scoreLine, len(names))
	for i, name := range names {
		res[i] = scoreLine{Criterion: name, Score: scores[name]}
	}
	return res
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var funcs = template.FuncMap{
	"scores": sortedScores,
	"trim":   strings.TrimSpace,
	"deref":  deref,
}

var feedbackTemplate = template.Must(template.New("feedback").Funcs(funcs).Parse(`A jury panel scored a hackathon project.

Scores by criterion:
{{- range scores .Scores }}
- {{ .Criterion }}: {{ .Score }}
{{- end }}

Jury remarks:
{{ trim .Remarks }}

Write 3 to 5 sentences of feedback for the team based on these scores and remarks.`))

type feedbackInput struct {
	Scores  map[string]int
	Remarks string
}

var consolidateTemplate = template.Must(template.New("consolidate").Funcs(funcs).Parse(`Several jury panels evaluated the same hackathon project independently.
{{ range . }}
Panel {{ .Panel }} (total {{ .Total }}):
{{- range scores .Scores }}
- {{ .Criterion }}: {{ .Score }}
{{- end }}
Remarks: {{ trim .Remarks }}
{{- if .AIFeedback }}
Feedback: {{ trim (deref .AIFeedback) }}
{{- end }}
{{ end }}
Combine the panels into a single summary for the team: common strengths, common concerns, and one concrete next step. Mention disagreements between panels only if they are significant.`))

var criteriaTemplate = template.Must(template.New("criteria").Funcs(funcs).Parse(`Convert the following judging rubric into JSON.

Reply with a JSON array only, no prose and no code fences. Each element must have the fields "name" (short, lowercase), "description" and "maxScore" (integer, default 10).

Rubric:
{{ trim . }}`))

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
