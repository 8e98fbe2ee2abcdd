package model_test

import (
	"testing"

	"github.com/docvault/docnode/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestActionRecord_NeedsCompensation(t *testing.T) {
	tests := []struct {
		name       string
		actionType model.ActionType
		committed  bool
		expected   bool
	}{
		{
			name:       "uncommitted create needs orphan cleanup",
			actionType: model.ActionTypeCreate,
			committed:  false,
			expected:   true,
		},
		{
			name:       "committed create is a finished operation",
			actionType: model.ActionTypeCreate,
			committed:  true,
			expected:   false,
		},
		{
			name:       "committed delete needs the file removed",
			actionType: model.ActionTypeDelete,
			committed:  true,
			expected:   true,
		},
		{
			name:       "uncommitted delete still references the file",
			actionType: model.ActionTypeDelete,
			committed:  false,
			expected:   false,
		},
		{
			name:       "unknown type is never compensated",
			actionType: model.ActionType("MOVE"),
			committed:  true,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &model.ActionRecord{
				ActionType: tt.actionType,
				Committed:  tt.committed,
			}
			assert.Equal(t, tt.expected, record.NeedsCompensation())
		})
	}
}

func TestDataRecord_SectionsByID(t *testing.T) {
	record := &model.DataRecord{
		Sections: []model.Section{
			{ID: 1, FileName: "a.pdf"},
			{ID: 2, FileName: "b.pdf"},
			{ID: 2, FileName: "b-dup.pdf"},
		},
	}

	assert.Empty(t, record.SectionsByID(99))
	assert.Len(t, record.SectionsByID(1), 1)
	assert.Len(t, record.SectionsByID(2), 2)
}

func TestDataRecord_RemoveSection(t *testing.T) {
	record := &model.DataRecord{
		Sections: []model.Section{
			{ID: 1, FileName: "a.pdf"},
			{ID: 2, FileName: "b.pdf"},
		},
	}

	removed, ok := record.RemoveSection(1)
	assert.True(t, ok)
	assert.Equal(t, "a.pdf", removed.FileName)
	assert.Len(t, record.Sections, 1)

	_, ok = record.RemoveSection(1)
	assert.False(t, ok)
}
