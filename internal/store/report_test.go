package store

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/manifest"
)

// fixedStore builds a store from hand-written wire records so the
// rendered report is byte-stable (no minted UUIDs, no signatures).
func fixedStore(t *testing.T) *Store {
	t.Helper()

	const (
		label1    = "urn:uuid:3f2a9c1e-6b4d-4e8a-9c51-0d7e2f8a1b63"
		label2    = "urn:uuid:7d85e0f2-94c3-4b1a-8f67-52a9c4e1d380"
		instance1 = "xmp:iid:c4b1f6a8-2e9d-4c37-b051-8a6f3e92d715"
		instance2 = "xmp:iid:9e5d2c70-1f48-4a6b-bc83-47d08f6a21e9"
	)

	m1, err := manifest.Decode(&manifest.Wire{
		ClaimGenerator: "walkthrough/0.1",
		Title:          "sunrise.jpg",
		Format:         "image/jpeg",
		InstanceID:     instance1,
		Label:          label1,
		Assertions: []assertion.Record{{
			Kind:  assertion.KindCreativeWork,
			Label: assertion.LabelCreativeWork,
			Data:  json.RawMessage(`{"@context":"https://schema.org","@type":"CreativeWork","author":[{"identifier":"mikecvet","name":"Mike Cvet"}]}`),
		}},
	})
	require.NoError(t, err)

	m2, err := manifest.Decode(&manifest.Wire{
		ClaimGenerator: "walkthrough/0.1",
		Title:          "sunrise_edit.jpg",
		Format:         "image/jpeg",
		InstanceID:     instance2,
		Label:          label2,
		Assertions: []assertion.Record{{
			Kind:  assertion.KindActions,
			Label: assertion.LabelActions,
			Data:  json.RawMessage(`{"actions":[{"action":"c2pa.opened","when":"2024-05-01T10:00:00Z"}]}`),
		}},
		Parent: &manifest.IngredientWire{
			InstanceID: instance1,
			Title:      "sunrise.jpg",
			Format:     "image/jpeg",
		},
	})
	require.NoError(t, err)

	return &Store{
		manifests:   []*manifest.Manifest{m1, m2},
		byLabel:     map[string]*manifest.Manifest{label1: m1, label2: m2},
		activeLabel: label2,
		statuses: []Status{{
			Code:          CodeContentTampered,
			ManifestLabel: label2,
			Severity:      SeverityError,
			Explanation:   "asset bytes do not match the bound digest",
		}},
	}
}

func TestRenderGolden(t *testing.T) {
	s := fixedStore(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, s.Render(&buf, format))
			g.Assert(t, "report_"+format, buf.Bytes())
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	s := fixedStore(t)
	err := s.Render(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}

func TestReportSlicesNeverNil(t *testing.T) {
	s := &Store{activeLabel: "urn:uuid:none"}
	r := s.Report()
	assert.NotNil(t, r.Statuses)
	assert.NotNil(t, r.Manifests)
	assert.True(t, r.Valid)
}
