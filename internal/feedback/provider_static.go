package feedback

import "context"

const defaultStaticText = "Thanks for presenting. The jury appreciated the demo; keep polishing the rough edges."

func init() {
	RegisterProvider("static", newStaticProvider)
}

// staticProvider answers every prompt with the configured model string, or a
// canned sentence. Useful for local runs without an API key.
type staticProvider struct {
	text string
}

func newStaticProvider(config ProviderConfig) (Provider, error) {
	text := config.Model
	if text == "" {
		text = defaultStaticText
	}
	return &staticProvider{text: text}, nil
}

func (p *staticProvider) Name() string {
	return "static"
}

func (p *staticProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.text, nil
}
