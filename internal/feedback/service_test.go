package feedback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
)

type call struct {
	System string
	Prompt string
}

type scriptedProvider struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	calls   []call
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, call{system, prompt})
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.answers) {
		return p.answers[i], nil
	}
	return "", errors.New("script exhausted")
}

func strp(s string) *string { return &s }

func TestGenerateFeedbackPrompt(t *testing.T) {
	provider := &scriptedProvider{answers: []string{"  Nice work.  "}}
	svc := NewService(provider, zap.NewNop())

	text, err := svc.GenerateFeedback(context.Background(), map[string]int{"pitch": 7, "design": 9}, "Great UI, weak backend")
	require.NoError(t, err)
	assert.Equal(t, "Nice work.", text)

	require.Len(t, provider.calls, 1)
	prompt := provider.calls[0].Prompt
	assert.Contains(t, prompt, "- design: 9\n- pitch: 7")
	assert.Contains(t, prompt, "Great UI, weak backend")
	assert.Equal(t, systemPrompt, provider.calls[0].System)
}

func TestConsolidateOnlyPresentPanels(t *testing.T) {
	provider := &scriptedProvider{answers: []string{"Summary."}}
	svc := NewService(provider, zap.NewNop())

	panels := []*models.PanelScore{
		{Panel: models.Panel1, Total: 40, Scores: map[string]int{"pitch": 8}, Remarks: "good pitch"},
		{Panel: models.Panel3, Total: 20, Scores: map[string]int{"pitch": 4}, Remarks: "hard to follow", AIFeedback: strp("Practice the demo.")},
	}
	text, err := svc.Consolidate(context.Background(), panels)
	require.NoError(t, err)
	assert.Equal(t, "Summary.", text)

	prompt := provider.calls[0].Prompt
	assert.Contains(t, prompt, "Panel 1 (total 40)")
	assert.Contains(t, prompt, "Panel 3 (total 20)")
	assert.NotContains(t, prompt, "Panel 2")
	assert.Contains(t, prompt, "Feedback: Practice the demo.")
	assert.Equal(t, 1, strings.Count(prompt, "Feedback:"))

	_, err = svc.Consolidate(context.Background(), nil)
	assert.Error(t, err)
}

func TestRetriesTransientErrors(t *testing.T) {
	provider := &scriptedProvider{
		errs:    []error{&ProviderError{Provider: "scripted", Status: 503, Err: errors.New("overloaded")}},
		answers: []string{"", "Recovered."},
	}
	svc := NewService(provider, zap.NewNop(), WithMaxRetries(2))

	text, err := svc.GenerateFeedback(context.Background(), map[string]int{"pitch": 5}, "fine overall")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", text)
	assert.Len(t, provider.calls, 2)
}

func TestDoesNotRetryPermanentErrors(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{&ProviderError{Provider: "scripted", Status: 401, Err: errors.New("bad key")}},
	}
	svc := NewService(provider, zap.NewNop(), WithMaxRetries(5))

	_, err := svc.GenerateFeedback(context.Background(), map[string]int{"pitch": 5}, "fine overall")
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 401, perr.Status)
	assert.Len(t, provider.calls, 1)
}

func TestParseCriteria(t *testing.T) {
	answer := "```json\n[{\"name\": \"innovation\", \"description\": \"Novelty\", \"maxScore\": 10}, {\"name\": \"impact\"}]\n```"
	provider := &scriptedProvider{answers: []string{answer}}
	svc := NewService(provider, zap.NewNop())

	criteria, err := svc.ParseCriteria(context.Background(), "Innovation: how novel. Impact: who benefits.")
	require.NoError(t, err)
	assert.Equal(t, []rubric.Criterion{
		{Name: "innovation", Description: "Novelty", MaxScore: 10},
		{Name: "impact", MaxScore: models.DefaultCriterionMaxScore},
	}, criteria)

	_, err = svc.ParseCriteria(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyRubric)
}

func TestDecodeCriteriaRejectsGarbage(t *testing.T) {
	_, err := decodeCriteria("I could not find any criteria, sorry")
	assert.Error(t, err)

	_, err = decodeCriteria("[]")
	assert.ErrorIs(t, err, ErrEmptyRubric)

	_, err = decodeCriteria(`[{"name": "a"}, {"name": "a"}]`)
	assert.Error(t, err)
}

func TestProviderRegistry(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "openai", "static"}, Providers())

	_, err := NewProvider(ProviderConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewProvider(ProviderConfig{Provider: "openai"})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewProvider(ProviderConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	static, err := NewProvider(ProviderConfig{Provider: "static", Model: "Canned."})
	require.NoError(t, err)
	text, err := static.Complete(context.Background(), "", "anything")
	require.NoError(t, err)
	assert.Equal(t, "Canned.", text)
}
