package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	rs, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "type", "status"}, rs.CommonRequired())
	assert.Nil(t, rs.DatePattern())

	plan, ok := rs.ForType("implementation_plan")
	require.True(t, ok)
	assert.Contains(t, plan.AllowedStatuses, "draft")
	assert.Contains(t, rs.Categories(), "assessment")

	for _, category := range rs.Categories() {
		tr, _ := rs.ForType(category)
		assert.True(t, tr.AllowsStatus("draft"), "category %s must accept the remediation default", category)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		yaml       string
		wantCommon []string
		wantTypes  []string
		wantErr    string
	}{
		"types section": {
			yaml: `
common:
  required_fields: [title, type, status]
types:
  design:
    required_fields: [owner]
    allowed_statuses: [draft, active]
`,
			wantCommon: []string{"title", "type", "status"},
			wantTypes:  []string{"design"},
		},
		"legacy artifact_types section": {
			yaml: `
common:
  required_fields: [title]
artifact_types:
  assessment:
    required_fields: [date]
`,
			wantCommon: []string{"title"},
			wantTypes:  []string{"assessment"},
		},
		"no types": {
			yaml:       "common:\n  required_fields: [title]\n",
			wantCommon: []string{"title"},
			wantTypes:  []string{},
		},
		"empty field name rejected": {
			yaml:    "common:\n  required_fields: [title, \"\"]\n",
			wantErr: "rule set validation failed",
		},
		"bad date pattern": {
			yaml:    "common:\n  required_fields: [title]\n  date_pattern: \"([\"\n",
			wantErr: "invalid common.date_pattern",
		},
		"malformed yaml": {
			yaml:    "common: [\n",
			wantErr: "failed to parse rules",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rs, err := Parse([]byte(tc.yaml))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantCommon, rs.CommonRequired())
			assert.Equal(t, tc.wantTypes, rs.Categories())
		})
	}
}

func TestTypeRules_AllowsStatus(t *testing.T) {
	t.Parallel()

	open := TypeRules{}
	assert.True(t, open.AllowsStatus("anything"))

	restricted := TypeRules{AllowedStatuses: []string{"draft", "active"}}
	assert.True(t, restricted.AllowsStatus("active"))
	assert.False(t, restricted.AllowsStatus("bogus"))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("common:\n  required_fields: [title]\n  date_pattern: '^\\d{4}'\n"), 0o644))

		rs, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"title"}, rs.CommonRequired())
		require.NotNil(t, rs.DatePattern())
		assert.True(t, rs.DatePattern().MatchString("2024-01-01"))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("empty path uses default", func(t *testing.T) {
		t.Parallel()
		rs, err := Load("")
		require.NoError(t, err)
		assert.NotEmpty(t, rs.Categories())
	})
}
