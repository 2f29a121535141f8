package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
)

type sample struct {
	Title    string   `json:"title" validate:"notblank"`
	Category string   `json:"category" validate:"required"`
	Pages    int      `json:"pages" validate:"gte=0"`
	Status   string   `json:"status" validate:"omitempty,oneof=draft published"`
	Tags     []string `json:"tags" validate:"omitempty,dive,notblank"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(&sample{Title: "Go", Category: "Tech"}))
}

func TestStruct_MissingFields(t *testing.T) {
	err := Struct(&sample{Title: "   "})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "Missing required fields: title, category")
}

func TestStruct_InvalidValues(t *testing.T) {
	err := Struct(&sample{Title: "Go", Category: "Tech", Pages: -1, Status: "archived", Tags: []string{"ok", " "}})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "pages must be at least 0")
	assert.Contains(t, appErr.Message, "status must be one of: draft published")
	assert.Contains(t, appErr.Message, "Missing required fields: tags[1]")
	assert.NotNil(t, appErr.Context["fields"])
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("a@example.com", "email"))
	assert.Error(t, Var("not-an-email", "email"))
}
