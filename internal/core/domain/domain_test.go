package domain_test

import (
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

func TestTarget_Validate(t *testing.T) {
	valid := []domain.Target{"com.example.app", "app.x", "a"}
	for _, target := range valid {
		assert.NoError(t, target.Validate(), target)
	}

	invalid := []domain.Target{"", ".", "..", "a/b", `a\b`, ".hidden", ".staging"}
	for _, target := range invalid {
		assert.Error(t, target.Validate(), target)
	}
}

func TestFingerprintSet_Paths(t *testing.T) {
	set := domain.FingerprintSet{
		"shared_prefs/b.xml": digest.FromString("b"),
		"a.txt":              digest.FromString("a"),
		"databases/c.db":     digest.FromString("c"),
	}
	assert.Equal(t, []string{"a.txt", "databases/c.db", "shared_prefs/b.xml"}, set.Paths())
}

func TestComparisonReport_Views(t *testing.T) {
	report := &domain.ComparisonReport{
		Changes: []domain.ChangeRecord{
			{Kind: domain.ChangeAdded, Path: "c.txt"},
			{Kind: domain.ChangeRemoved, Path: "b.txt"},
			{Kind: domain.ChangeModified, Path: "a.txt"},
		},
	}
	assert.Len(t, report.Added(), 1)
	assert.Equal(t, "b.txt", report.Removed()[0].Path)
	assert.Equal(t, "a.txt", report.Modified()[0].Path)
	assert.True(t, report.HasChanges())
	assert.False(t, (&domain.ComparisonReport{}).HasChanges())
}
