package core

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultDPI = 203

type LabelLayout struct {
	Name     string         `json:"name"`
	WidthMM  float64        `json:"width_mm"`
	HeightMM float64        `json:"height_mm"`
	GapMM    float64        `json:"gap_mm"`
	DPI      int            `json:"dpi"`
	Elements []LabelElement `json:"elements"`
}

// LabelElement coordinates are in printer dots.
type LabelElement struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`

	Content  string `json:"content,omitempty"`
	Font     string `json:"font,omitempty"`
	Rotation int    `json:"rotation,omitempty"`
	XScale   int    `json:"x_scale,omitempty"`
	YScale   int    `json:"y_scale,omitempty"`

	Symbology string `json:"symbology,omitempty"`
	Height    int    `json:"height,omitempty"`
	Narrow    int    `json:"narrow,omitempty"`
	Wide      int    `json:"wide,omitempty"`

	Width     int `json:"width,omitempty"`
	MaxLines  int `json:"max_lines,omitempty"`
	XEnd      int `json:"x_end,omitempty"`
	YEnd      int `json:"y_end,omitempty"`
	Thickness int `json:"thickness,omitempty"`
}

// fontCells maps TSPL bitmap font names to their cell size in dots, used to
// pick the matching scalable ZPL font size.
var fontCells = map[string][2]int{
	"1": {8, 12},
	"2": {12, 20},
	"3": {16, 24},
	"4": {24, 32},
	"5": {32, 48},
}

// Patient label variables.
const (
	VarName      = "name"
	VarSex       = "sex"
	VarMRN       = "mrn"
	VarBirthDate = "birth_date"
	VarNIK       = "nik"
	VarAge       = "age"
	VarAddress   = "address"
)

// PatientLabelLayout is the 55x33mm landscape patient wristband/sticker label.
func PatientLabelLayout() *LabelLayout {
	return &LabelLayout{
		Name:     "patient-55x33",
		WidthMM:  55,
		HeightMM: 33,
		GapMM:    2,
		DPI:      defaultDPI,
		Elements: []LabelElement{
			{Type: "text", X: 16, Y: 12, Font: "3", Content: "{{name}} ({{sex}})"},
			{Type: "text", X: 16, Y: 44, Font: "2", Content: "RM : {{mrn}} Tgl Lhr {{birth_date}}"},
			{Type: "text", X: 16, Y: 70, Font: "2", Content: "NO KTP : {{nik}}"},
			{Type: "text", X: 16, Y: 96, Font: "2", Content: "{{age}}"},
			{Type: "text", X: 16, Y: 124, Font: "1", Content: "{{address}}"},
			{Type: "barcode", X: 40, Y: 150, Symbology: "39", Height: 80, Narrow: 2, Wide: 4, Content: "{{mrn}}"},
		},
	}
}

func LoadLabelLayout(path string) (*LabelLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label layout: %w", err)
	}
	return ParseLabelLayout(data)
}

func ParseLabelLayout(data []byte) (*LabelLayout, error) {
	var layout LabelLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse label layout JSON: %w", err)
	}
	if layout.DPI == 0 {
		layout.DPI = defaultDPI
	}
	if layout.WidthMM <= 0 || layout.HeightMM <= 0 {
		return nil, fmt.Errorf("label layout %q: width and height must be positive", layout.Name)
	}
	return &layout, nil
}

// PatientLabelVariables flattens a patient record into label variables.
// The age is computed against the caller's clock reading.
func PatientLabelVariables(p PatientRecord, age Age) map[string]string {
	return map[string]string{
		VarName:      p.DisplayName(),
		VarSex:       p.Sex.Code(),
		VarMRN:       p.MRN,
		VarBirthDate: p.FormattedBirthDate(),
		VarNIK:       p.NationalID,
		VarAge:       age.String(),
		VarAddress:   p.TruncatedAddress(),
	}
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// substituteVariables replaces {{var}} placeholders; unknown names become empty.
func substituteVariables(content string, variables map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return variables[name]
	})
}

func (l *LabelLayout) dpi() int {
	if l.DPI == 0 {
		return defaultDPI
	}
	return l.DPI
}

func mmToDots(mm float64, dpi int) int {
	dotsPerMM := float64(dpi) / 25.4
	return int(mm * dotsPerMM)
}

func fontCell(font string) (int, int) {
	if cell, ok := fontCells[strings.TrimSpace(font)]; ok {
		return cell[0], cell[1]
	}
	return fontCells["3"][0], fontCells["3"][1]
}

var knownVariables = map[string]bool{
	VarName:      true,
	VarSex:       true,
	VarMRN:       true,
	VarBirthDate: true,
	VarNIK:       true,
	VarAge:       true,
	VarAddress:   true,
}

// Check reports problems that make a layout unprintable, plus warnings for
// things that print but probably not as intended.
func (l *LabelLayout) Check() (errs, warnings []string) {
	if l.WidthMM <= 0 {
		errs = append(errs, "width_mm must be greater than 0")
	}
	if l.HeightMM <= 0 {
		errs = append(errs, "height_mm must be greater than 0")
	}
	if len(l.Elements) == 0 {
		errs = append(errs, "layout must have at least one element")
	}
	if l.GapMM == 0 {
		warnings = append(warnings, "gap_mm not specified, may cause alignment issues")
	}

	widthDots := mmToDots(l.WidthMM, l.dpi())
	heightDots := mmToDots(l.HeightMM, l.dpi())

	for i, el := range l.Elements {
		prefix := fmt.Sprintf("element[%d]", i)
		switch el.Type {
		case "text", "block":
			if el.Content == "" {
				errs = append(errs, prefix+": missing content")
			}
		case "barcode":
			if el.Content == "" {
				errs = append(errs, prefix+": missing content")
			}
			switch el.Symbology {
			case "", "39", "128":
			default:
				errs = append(errs, fmt.Sprintf("%s: unsupported symbology %q", prefix, el.Symbology))
			}
		case "box":
			if el.XEnd <= el.X || el.YEnd <= el.Y {
				errs = append(errs, prefix+": box end must be below and right of its origin")
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown type %q", prefix, el.Type))
			continue
		}

		if el.X < 0 || el.Y < 0 || (widthDots > 0 && el.X >= widthDots) || (heightDots > 0 && el.Y >= heightDots) {
			warnings = append(warnings, prefix+": origin lies outside the label")
		}
		for _, m := range placeholderRe.FindAllStringSubmatch(el.Content, -1) {
			if !knownVariables[m[1]] {
				warnings = append(warnings, fmt.Sprintf("%s: unknown variable %q prints empty", prefix, m[1]))
			}
		}
	}
	return errs, warnings
}
