package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientLabelLayout_Check(t *testing.T) {
	errs, warnings := PatientLabelLayout().Check()
	assert.Empty(t, errs)
	assert.Empty(t, warnings)
}

func TestLabelLayout_Check(t *testing.T) {
	layout := &LabelLayout{
		WidthMM:  55,
		HeightMM: 33,
		Elements: []LabelElement{
			{Type: "text", X: 10, Y: 10},
			{Type: "barcode", X: 10, Y: 40, Content: "{{mrn}}", Symbology: "QR"},
			{Type: "box", X: 10, Y: 10, XEnd: 5, YEnd: 50},
			{Type: "text", X: 900, Y: 10, Content: "{{ward}}"},
			{Type: "circle"},
		},
	}

	errs, warnings := layout.Check()
	assert.Equal(t, []string{
		"element[0]: missing content",
		`element[1]: unsupported symbology "QR"`,
		"element[2]: box end must be below and right of its origin",
		`element[4]: unknown type "circle"`,
	}, errs)
	assert.Equal(t, []string{
		"gap_mm not specified, may cause alignment issues",
		"element[3]: origin lies outside the label",
		`element[3]: unknown variable "ward" prints empty`,
	}, warnings)
}

func TestParseLabelLayout_DefaultsDPI(t *testing.T) {
	layout, err := ParseLabelLayout([]byte(`{"name": "x", "width_mm": 50, "height_mm": 25, "elements": []}`))
	require.NoError(t, err)
	assert.Equal(t, defaultDPI, layout.DPI)
}
