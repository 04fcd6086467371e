package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echocli/internal/dataset"
)

func surveyData(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New()
	require.NoError(t, d.SetColumn("backscatter", []dataset.Cell{dataset.Float(-62.1)}))
	require.NoError(t, d.SetColumn("depth", []dataset.Cell{dataset.Float(14.2)}))
	return d
}

func TestResolveColumnLiteralWinsOverAlias(t *testing.T) {
	s := New(nil)
	s.ReplaceDataset(surveyData(t))

	// "depth" is both a real column and an alias target; the real
	// column must win.
	s.SetAlias("depth", "backscatter")
	assert.Equal(t, "depth", s.ResolveColumn("depth"))

	s.SetAlias("bs", "backscatter")
	assert.Equal(t, "backscatter", s.ResolveColumn("bs"))
	assert.Equal(t, "backscatter", s.ResolveColumn("BS"))

	// Unknown names pass through for the executor to reject.
	assert.Equal(t, "salinity", s.ResolveColumn("salinity"))
}

func TestAliasRebindOverwrites(t *testing.T) {
	s := New(nil)
	s.SetAlias("v", "depth")
	s.SetAlias("v", "backscatter")
	assert.Equal(t, map[string]string{"v": "backscatter"}, s.Aliases())
}

func TestReplaceDatasetDropsDerived(t *testing.T) {
	s := New(nil)
	s.ReplaceDataset(surveyData(t))
	s.RecordDerived("hour")
	s.RecordDerived("depth_m")

	dropped := s.ReplaceDataset(surveyData(t))
	assert.Equal(t, []string{"depth_m", "hour"}, dropped)
	assert.Empty(t, s.DerivedVariables())

	assert.Nil(t, s.ReplaceDataset(surveyData(t)))
}

func TestSetDatasetKeepsDerived(t *testing.T) {
	s := New(nil)
	s.ReplaceDataset(surveyData(t))
	s.RecordDerived("hour")

	s.SetDataset(surveyData(t))
	assert.Equal(t, []string{"hour"}, s.DerivedVariables())
}

func TestSettingsSeededAndCaseInsensitive(t *testing.T) {
	s := New(map[string]string{"dir": "data", "interval": "5min"})

	v, ok := s.Setting("dir")
	require.True(t, ok)
	assert.Equal(t, "data", v)

	s.Set("DIR", "/mnt/survey")
	v, _ = s.Setting("dir")
	assert.Equal(t, "/mnt/survey", v)

	_, ok = s.Setting("nope")
	assert.False(t, ok)
}

func TestScaleMemory(t *testing.T) {
	m := NewScaleMemory()

	_, ok := m.Lookup("backscatter")
	assert.False(t, ok)

	m.RecordMax("backscatter", 120)
	v, ok := m.Lookup("backscatter")
	require.True(t, ok)
	assert.Equal(t, 120.0, v)

	m.RecordMax("backscatter", 80)
	v, _ = m.Lookup("backscatter")
	assert.Equal(t, 80.0, v)

	m.Clear("backscatter")
	_, ok = m.Lookup("backscatter")
	assert.False(t, ok)

	m.RecordMax("depth", 30)
	m.Reset()
	_, ok = m.Lookup("depth")
	assert.False(t, ok)
}
