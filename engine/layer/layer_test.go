package layer

import (
	"context"
	"testing"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *business.Config {
	t.Helper()
	cfg := &business.Config{
		Provider: workflow.ProviderGmail,
		Business: business.Profile{Name: "Blue Lagoon Pools", Category: "Pool Service"},
		Services: []business.Service{
			{Name: "Weekly Cleaning", Price: decimal.NewFromInt(85)},
			{Name: "Heater Repair", PricingType: business.PricingQuote},
		},
		Team: business.Team{
			Managers:  []business.Person{{Name: "Ana", Email: "ana@example.com"}},
			Suppliers: []business.Supplier{{Name: "ChemCo", Domain: "chemco.example"}},
		},
		Rules:  business.Rules{OutOfScope: []string{"spa remodeling"}},
		Labels: map[string]string{"Sales/Leads": "Label_1", "Urgent": "Label_2", "Warranty": "Label_3"},
	}
	out, err := cfg.ApplyDefaults()
	require.NoError(t, err)
	return out
}

func TestDefaultSet(t *testing.T) {
	set, err := DefaultSet()
	require.NoError(t, err)
	cfg := testConfig(t)

	for _, ext := range set.All() {
		t.Run("Should produce every key of the "+string(ext.Name())+" layer", func(t *testing.T) {
			out, err := ext.Extract(context.Background(), cfg)
			require.NoError(t, err)
			for _, key := range Keys(ext.Name()) {
				assert.NotEmpty(t, out[key], key)
			}
		})
	}
}

func TestClassificationExtractor(t *testing.T) {
	engine, err := NewPromptEngine()
	require.NoError(t, err)
	cfg := testConfig(t)

	t.Run("Should mention the business, catalog and suppliers", func(t *testing.T) {
		out, err := NewClassificationExtractor(engine).Extract(context.Background(), cfg)
		require.NoError(t, err)
		msg := out[KeySystemMessage]
		assert.Contains(t, msg, "Blue Lagoon Pools")
		assert.Contains(t, msg, "- Weekly Cleaning (Fixed): 85.00 USD")
		assert.Contains(t, msg, "chemco.example")
		assert.Contains(t, msg, "spa remodeling")
		assert.Contains(t, msg, "Warranty")
	})

	t.Run("Should derive keywords from category and services", func(t *testing.T) {
		assert.Equal(t, []string{"pool", "service", "weekly", "cleaning", "heater", "repair"}, Keywords(cfg))
	})

	t.Run("Should add label groups to the categories once", func(t *testing.T) {
		cats := Categories(cfg)
		assert.Equal(t, append(append([]string{}, BaseCategories...), "Warranty"), cats)
	})
}

func TestBehaviorExtractor(t *testing.T) {
	engine, err := NewPromptEngine()
	require.NoError(t, err)

	t.Run("Should use the configured tone without a usable voice profile", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Voice = &business.VoiceProfile{Formality: 1, Warmth: 1, Directness: 1, Confidence: 0.2, SampleSize: 50}
		out, err := NewBehaviorExtractor(engine).Extract(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, business.DefaultTone, out[KeyTone])
		assert.Contains(t, out[KeyReplyPrompt], "The Blue Lagoon Pools Team")
		assert.Contains(t, out[KeyGuardrails], "Do not quote prices by email.")
	})

	t.Run("Should apply a confident voice profile", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Voice = &business.VoiceProfile{
			Formality: 0.1, Warmth: 0.9, Directness: 0.5,
			Phrases: []string{"Thanks a bunch!"}, Confidence: 0.9, SampleSize: 40,
		}
		out, err := NewBehaviorExtractor(engine).Extract(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, "casual, warm, clear", out[KeyTone])
		assert.Contains(t, out[KeyReplyPrompt], "- Thanks a bunch!")
	})
}

func TestLabelExtractor(t *testing.T) {
	t.Run("Should group labels by their top-level segment", func(t *testing.T) {
		out, err := (&LabelExtractor{}).Extract(context.Background(), testConfig(t))
		require.NoError(t, err)
		assert.Equal(t, "Sales/Leads, Urgent, Warranty", out[KeyLabelNames])
		assert.Equal(t, "Sales:\n- Sales/Leads -> Label_1\nUrgent:\n- Urgent -> Label_2\nWarranty:\n- Warranty -> Label_3", out[KeyLabelRouting])
	})

	t.Run("Should fall back when no labels exist", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Labels = nil
		out, err := (&LabelExtractor{}).Extract(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, Fallback(Labels, cfg.Business.Name), out)
	})
}

func TestFallback(t *testing.T) {
	t.Run("Should cover every key with text built from the name", func(t *testing.T) {
		for _, name := range []Name{Classification, Behavior, Labels} {
			out := Fallback(name, "Acme")
			for _, key := range Keys(name) {
				assert.NotEmpty(t, out[key], key)
			}
		}
		assert.Contains(t, Fallback(Classification, "Acme")[KeySystemMessage], "Acme")
	})
}
