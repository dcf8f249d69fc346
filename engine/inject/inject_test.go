package inject

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/layer"
	"github.com/inboxflow/inboxflow/engine/placeholder"
	"github.com/inboxflow/inboxflow/engine/template"
	"github.com/inboxflow/inboxflow/engine/validate"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allLabels() map[string]string {
	return map[string]string{
		"Urgent":   "Label_1",
		"Sales":    "Label_2",
		"Support":  "Label_3",
		"Supplier": "Label_4",
		"Manager":  "Label_5",
	}
}

func fullConfig() *business.Config {
	return &business.Config{
		Provider: workflow.ProviderGmail,
		Business: business.Profile{
			Name:        "Blue Lagoon Pools",
			Category:    "Pool Service",
			ServiceArea: "Austin, TX",
			Website:     "https://bluelagoon.example",
		},
		Contact: business.Contact{Email: "info@bluelagoon.example", Phone: "555-0100"},
		Services: []business.Service{
			{Name: "Weekly Cleaning", Price: decimal.RequireFromString("85"), PricingType: business.PricingFixed},
			{Name: "Heater Repair", PricingType: business.PricingQuote},
		},
		Team: business.Team{
			Managers:  []business.Person{{Name: "Ana", Email: "ana@bluelagoon.example", Role: "Owner"}},
			Suppliers: []business.Supplier{{Name: "ChemCo", Domain: "chemco.example"}},
		},
		Labels:         allLabels(),
		Credentials:    map[workflow.Provider]string{workflow.ProviderGmail: "cred-gmail-1"},
		AICredentialID: "cred-openai-1",
	}
}

func loadTemplate(t *testing.T, provider workflow.Provider) *workflow.Workflow {
	t.Helper()
	data, err := template.NewEmbeddedSource().Fetch(context.Background(), provider)
	require.NoError(t, err)
	wf, err := workflow.ParseStrict(data)
	require.NoError(t, err)
	return wf
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	set, err := layer.DefaultSet()
	require.NoError(t, err)
	return New(set, opts...)
}

// removeNodes drops every node of category c together with the connections
// that touch it.
func removeNodes(wf *workflow.Workflow, c workflow.Category) {
	removed := make(map[string]struct{})
	kept := wf.Nodes[:0]
	for _, node := range wf.Nodes {
		if workflow.KindOf(node.Type).Category() == c {
			removed[node.Name] = struct{}{}
			continue
		}
		kept = append(kept, node)
	}
	wf.Nodes = kept
	for source, outputs := range wf.Connections {
		if _, ok := removed[source]; ok {
			delete(wf.Connections, source)
			continue
		}
		for port, slots := range outputs {
			for i, slot := range slots {
				filtered := slot[:0]
				for _, conn := range slot {
					if _, ok := removed[conn.Node]; !ok {
						filtered = append(filtered, conn)
					}
				}
				slots[i] = filtered
			}
			outputs[port] = slots
		}
	}
}

func TestEngine_Inject(t *testing.T) {
	ctx := context.Background()

	t.Run("Should produce byte-identical documents for identical inputs", func(t *testing.T) {
		for _, provider := range workflow.Providers() {
			tpl := loadTemplate(t, provider)
			cfg := fullConfig()
			cfg.Provider = provider
			engine := newEngine(t)

			first, err := engine.Inject(ctx, tpl, cfg)
			require.NoError(t, err)
			second, err := engine.Inject(ctx, tpl, cfg)
			require.NoError(t, err)

			assert.Equal(t, string(first.Document), string(second.Document), "provider %s", provider)
		}
	})

	t.Run("Should leave no tokens when every label is mapped", func(t *testing.T) {
		for _, provider := range workflow.Providers() {
			cfg := fullConfig()
			cfg.Provider = provider
			cfg.Credentials = map[workflow.Provider]string{provider: "cred-" + string(provider)}

			res, err := newEngine(t).Inject(ctx, loadTemplate(t, provider), cfg)
			require.NoError(t, err)

			assert.Empty(t, placeholder.Find(string(res.Document)), "provider %s", provider)
			assert.Len(t, res.AppliedLabels, 5)
			report := validate.Validate(res.Workflow)
			assert.True(t, report.Valid)
			assert.Equal(t, 100, report.Score)
		}
	})

	t.Run("Should leave only label tokens when labels are partial", func(t *testing.T) {
		cfg := fullConfig()
		cfg.Labels = map[string]string{"Urgent": "Label_1"}

		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		remaining := placeholder.Find(string(res.Document))
		require.NotEmpty(t, remaining)
		for _, tok := range remaining {
			assert.True(t, placeholder.IsLabelToken(tok), tok)
		}
		assert.NotContains(t, remaining, "<<<LABEL_URGENT>>>")

		report := validate.Validate(res.Workflow)
		assert.True(t, report.Valid)
		assert.Equal(t, 95, report.Score)
		assert.ElementsMatch(t, remaining, report.UnresolvedLabels)
	})

	t.Run("Should round-trip business names with special characters", func(t *testing.T) {
		names := []string{
			`O'Brien "Pools" & Spa`,
			`Back\slash Plumbing`,
			"Tab\tand\nNewline Cleaning",
			"Zero\u200bWidth Roofing",
			"Café Crème & Co",
			"Rocket 🚀 Repairs",
			`{"json": true}`,
		}
		engine := newEngine(t)
		tpl := loadTemplate(t, workflow.ProviderGmail)
		for _, name := range names {
			cfg := fullConfig()
			cfg.Business.Name = name

			res, err := engine.Inject(ctx, tpl, cfg)
			require.NoError(t, err, name)

			reparsed, err := workflow.ParseStrict(res.Document)
			require.NoError(t, err, name)
			assert.Equal(t, placeholder.SanitizeDisplay(name), reparsed.Meta["businessName"], name)
		}
	})

	t.Run("Should not let business text introduce tokens", func(t *testing.T) {
		cfg := fullConfig()
		cfg.Business.Name = "Acme <<<LABEL_URGENT>>>"

		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		assert.Equal(t, "Acme << <LABEL_URGENT>>>", res.Workflow.Meta["businessName"])
		assert.Empty(t, placeholder.Find(string(res.Document)))
	})

	t.Run("Should reject parameter keys that collide after substitution", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		tpl.Nodes[0].Parameters = map[string]any{
			"<<<BUSINESS_NAME>>>": "from token",
			"Blue Lagoon Pools":   "literal",
		}

		res, err := newEngine(t).Inject(ctx, tpl, fullConfig())

		assert.Nil(t, res)
		require.ErrorIs(t, err, core.ErrSubstitutionParse)
		assert.Contains(t, err.Error(), `"Blue Lagoon Pools" produced twice`)
	})

	t.Run("Should reject connection sources that collide after substitution", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		outputs := workflow.NodeConnections{"main": [][]workflow.Connection{{{Node: tpl.Nodes[0].Name, Type: "main"}}}}
		tpl.Connections["<<<BUSINESS_NAME>>>"] = outputs
		tpl.Connections["Blue Lagoon Pools"] = outputs

		_, err := newEngine(t).Inject(ctx, tpl, fullConfig())

		require.ErrorIs(t, err, core.ErrSubstitutionParse)
	})

	t.Run("Should embed label ids that need escaping", func(t *testing.T) {
		cfg := fullConfig()
		cfg.Labels["Urgent"] = `Label "1"\x`

		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		node := res.Workflow.NodeByName("Label Urgent")
		require.NotNil(t, node)
		assert.Equal(t, []any{`Label "1"\x`}, node.Parameters["labelIds"])
	})

	t.Run("Should not modify the template", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		before, err := workflow.Marshal(tpl)
		require.NoError(t, err)

		_, err = newEngine(t).Inject(ctx, tpl, fullConfig())
		require.NoError(t, err)

		after, err := workflow.Marshal(tpl)
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("Should assign stable node ids", func(t *testing.T) {
		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), fullConfig())
		require.NoError(t, err)

		seen := make(map[string]struct{})
		for _, node := range res.Workflow.Nodes {
			require.NotEmpty(t, node.ID)
			seen[node.ID] = struct{}{}
		}
		assert.Len(t, seen, len(res.Workflow.Nodes))
	})

	t.Run("Should reject an invalid configuration", func(t *testing.T) {
		cfg := fullConfig()
		cfg.Business.Name = ""

		_, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("Should reject missing inputs", func(t *testing.T) {
		engine := newEngine(t)

		_, err := engine.Inject(ctx, nil, fullConfig())
		assert.ErrorIs(t, err, core.ErrConfiguration)
		_, err = engine.Inject(ctx, loadTemplate(t, workflow.ProviderGmail), nil)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("Should inject a fallback template without failing", func(t *testing.T) {
		res, err := newEngine(t).Inject(ctx, workflow.NewFallback(workflow.ProviderGmail), fullConfig())
		require.NoError(t, err)

		assert.Empty(t, res.Workflow.Nodes)
		report := validate.Validate(res.Workflow)
		assert.False(t, report.Valid)
		assert.Contains(t, report.Issues, validate.IssueNoNodes)
	})
}

func TestEngine_Inject_Credentials(t *testing.T) {
	ctx := context.Background()

	t.Run("Should bind only the provider that has a credential", func(t *testing.T) {
		cfg := fullConfig()
		cfg.AICredentialID = ""

		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		assert.Equal(t, "Blue Lagoon Pools - Gmail AI Email Automation", res.Workflow.Name)
		assert.NotContains(t, res.Workflow.Name, "Outlook")
		assert.Equal(t, workflow.ProviderGmail, res.Binding.Provider)
		assert.Equal(t, []string{"OpenAI Chat Model"}, res.Binding.Pending)

		for _, node := range res.Workflow.Nodes {
			switch workflow.KindOf(node.Type).Credential() {
			case workflow.CredentialGmail:
				assert.Equal(t, workflow.CredentialRef{ID: "cred-gmail-1", Name: "Gmail account"}, node.Credentials["gmailOAuth2"], node.Name)
			case workflow.CredentialOpenAI:
				assert.Nil(t, node.Credentials, node.Name)
			}
		}
	})

	t.Run("Should leave outlook nodes unbound in a mixed template", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		outlook := loadTemplate(t, workflow.ProviderOutlook)
		extra := *outlook.NodeByName("Label Sales")
		extra.Name = "Outlook Label Sales"
		tpl.Nodes = append(tpl.Nodes, extra)

		res, err := newEngine(t).Inject(ctx, tpl, fullConfig())
		require.NoError(t, err)

		node := res.Workflow.NodeByName("Outlook Label Sales")
		require.NotNil(t, node)
		assert.Nil(t, node.Credentials)
		assert.Contains(t, res.Binding.Pending, "Outlook Label Sales")
		assert.Equal(t, "Blue Lagoon Pools - Gmail AI Email Automation", res.Workflow.Name)
	})

	t.Run("Should drop the provider from the name when nothing is bound", func(t *testing.T) {
		cfg := fullConfig()
		cfg.Credentials = nil

		res, err := newEngine(t).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		assert.Equal(t, "Blue Lagoon Pools - AI Email Automation", res.Workflow.Name)
		assert.Empty(t, res.Binding.Provider)
		assert.Empty(t, placeholder.Find(string(res.Document)))
	})

	t.Run("Should use the engine AI credential when the business has none", func(t *testing.T) {
		cfg := fullConfig()
		cfg.AICredentialID = ""

		res, err := newEngine(t, WithAICredential("cred-shared-ai", "Shared OpenAI")).
			Inject(ctx, loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		node := res.Workflow.NodeByName("OpenAI Chat Model")
		require.NotNil(t, node)
		assert.Equal(t, workflow.CredentialRef{ID: "cred-shared-ai", Name: "Shared OpenAI"}, node.Credentials["openAiApi"])
		assert.Empty(t, res.Binding.Pending)
	})
}

func TestEngine_Inject_Scenario(t *testing.T) {
	t.Run("Should report a missing router for a minimal O'Brien configuration", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		removeNodes(tpl, workflow.CategoryRouter)
		cfg := &business.Config{
			Provider: workflow.ProviderGmail,
			Business: business.Profile{Name: "O'Brien \"Pools\" & Spa\n"},
			Contact:  business.Contact{Email: "hello@obrien.example"},
			Services: []business.Service{
				{Name: "Spa Cleaning", Price: decimal.RequireFromString("120"), PricingType: business.PricingFixed},
			},
			Credentials: map[workflow.Provider]string{workflow.ProviderGmail: "cred-gmail-1"},
		}

		res, err := newEngine(t).Inject(context.Background(), tpl, cfg)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(res.Workflow.Name, "OBrien Pools  Spa - "))
		assert.Contains(t, string(res.Document), `O'Brien \"Pools\" & Spa`)
		_, err = workflow.ParseStrict(res.Document)
		require.NoError(t, err)

		report := validate.Validate(res.Workflow)
		assert.False(t, report.Valid)
		assert.Contains(t, report.Issues, validate.IssueMissingRouter)
	})
}

type stubExtractor struct {
	name  layer.Name
	out   map[string]string
	err   error
	panic bool
}

func (s *stubExtractor) Name() layer.Name { return s.name }

func (s *stubExtractor) Extract(context.Context, *business.Config) (map[string]string, error) {
	if s.panic {
		panic("boom")
	}
	return s.out, s.err
}

func TestEngine_Inject_LayerFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fall back when extractors fail or panic", func(t *testing.T) {
		set := layer.Set{
			Classification: &stubExtractor{name: layer.Classification, err: errors.New("model unavailable")},
			Behavior:       &stubExtractor{name: layer.Behavior, panic: true},
		}

		res, err := New(set).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), fullConfig())
		require.NoError(t, err)

		assert.Equal(t, []layer.Name{layer.Classification, layer.Behavior, layer.Labels}, res.Degraded)
		doc := string(res.Document)
		assert.Contains(t, doc, "You triage incoming email for Blue Lagoon Pools.")
		assert.Contains(t, doc, "Write a short, polite reply on behalf of Blue Lagoon Pools")
		assert.Empty(t, placeholder.Find(doc))
	})

	t.Run("Should fill keys an extractor left out without degrading", func(t *testing.T) {
		set, err := layer.DefaultSet()
		require.NoError(t, err)
		set.Classification = &stubExtractor{
			name: layer.Classification,
			out:  map[string]string{layer.KeySystemMessage: "Custom triage prompt"},
		}

		res, err := New(set).Inject(ctx, loadTemplate(t, workflow.ProviderGmail), fullConfig())
		require.NoError(t, err)

		assert.Empty(t, res.Degraded)
		node := res.Workflow.NodeByName("AI Classifier")
		require.NotNil(t, node)
		options, ok := node.Parameters["options"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Custom triage prompt", options["systemMessage"])
		assert.Contains(t, string(res.Document), "Blue Lagoon Pools")
	})
}

func TestEngine_Inject_ControlCharacters(t *testing.T) {
	t.Run("Should strip control characters from extracted and business values", func(t *testing.T) {
		set, err := layer.DefaultSet()
		require.NoError(t, err)
		set.Classification = &stubExtractor{
			name: layer.Classification,
			out:  map[string]string{layer.KeySystemMessage: "sys\x1bmsg\x0b\nline two"},
		}
		cfg := fullConfig()
		cfg.Contact.Phone = "555\x01-0100"
		cfg.Rules.EscalationRules = "Call Ana\x07 now"

		res, err := New(set).Inject(context.Background(), loadTemplate(t, workflow.ProviderGmail), cfg)
		require.NoError(t, err)

		doc := string(res.Document)
		for _, escaped := range []string{`\u0007`, `\u0001`, `\u001b`, `\u000b`} {
			assert.NotContains(t, doc, escaped)
		}
		assert.Contains(t, doc, "555-0100")
		node := res.Workflow.NodeByName("AI Classifier")
		require.NotNil(t, node)
		options, ok := node.Parameters["options"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "sysmsg\nline two", options["systemMessage"])
	})
}

func TestInjectLabelIDs(t *testing.T) {
	t.Run("Should replace canonical label tokens and keep unmapped ones", func(t *testing.T) {
		text := `{"a":"<<<LABEL_SALES_NEW_LEADS>>>","b":"<<<LABEL_OTHER>>>"}`

		out, applied := InjectLabelIDs(text, map[string]string{"Sales/New Leads": "Label_9"})

		assert.Equal(t, `{"a":"Label_9","b":"<<<LABEL_OTHER>>>"}`, out)
		assert.Equal(t, []string{"<<<LABEL_SALES_NEW_LEADS>>>"}, applied)
	})

	t.Run("Should JSON-escape ids", func(t *testing.T) {
		out, _ := InjectLabelIDs(`{"a":"<<<LABEL_URGENT>>>"}`, map[string]string{"Urgent": `x"y`})

		assert.Equal(t, `{"a":"x\"y"}`, out)
	})

	t.Run("Should let the first sorted name claim a shared token", func(t *testing.T) {
		out, _ := InjectLabelIDs(`<<<LABEL_SALES>>>`, map[string]string{"sales": "lower", "Sales": "upper"})

		assert.Equal(t, "upper", out)
	})

	t.Run("Should skip names without token characters", func(t *testing.T) {
		out, applied := InjectLabelIDs(`<<<LABEL_URGENT>>>`, map[string]string{"!!!": "x"})

		assert.Equal(t, `<<<LABEL_URGENT>>>`, out)
		assert.Empty(t, applied)
	})
}

func TestCheckRoundTrip(t *testing.T) {
	t.Run("Should accept a document that re-serializes identically", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		assert.NoError(t, checkRoundTrip(tpl, tpl.Clone()))
	})

	t.Run("Should report a structural change as a round-trip mismatch", func(t *testing.T) {
		tpl := loadTemplate(t, workflow.ProviderGmail)
		parsed := tpl.Clone()
		parsed.Nodes = parsed.Nodes[:1]

		err := checkRoundTrip(tpl, parsed)
		var perr *core.SubstitutionParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, int64(-1), perr.Offset)
		assert.Contains(t, err.Error(), "round-trip mismatch")
		assert.ErrorIs(t, err, core.ErrSubstitutionParse)
	})
}

func TestWorkflowName(t *testing.T) {
	t.Run("Should render the provider title", func(t *testing.T) {
		assert.Equal(t, "Acme - Outlook AI Email Automation", WorkflowName("Acme", workflow.ProviderOutlook))
		assert.Equal(t, "Acme - AI Email Automation", WorkflowName("Acme!", ""))
	})
}
