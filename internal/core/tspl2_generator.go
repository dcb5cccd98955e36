package core

import (
	"fmt"
	"strings"
)

// TSPL2Generator emits TSC label printer command streams.
type TSPL2Generator struct{}

func NewTSPL2Generator() *TSPL2Generator {
	return &TSPL2Generator{}
}

func (g *TSPL2Generator) Generate(layout *LabelLayout, variables map[string]string) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("SIZE %g mm, %g mm\n", layout.WidthMM, layout.HeightMM))
	sb.WriteString(fmt.Sprintf("GAP %g mm, 0 mm\n", layout.GapMM))
	sb.WriteString("DIRECTION 0\n")
	sb.WriteString("CLS\n")

	for _, elem := range layout.Elements {
		cmd, err := g.generateElement(&elem, variables)
		if err != nil {
			return "", fmt.Errorf("error generating %s element: %w", elem.Type, err)
		}
		if cmd != "" {
			sb.WriteString(cmd)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("PRINT 1\n")
	return sb.String(), nil
}

func (g *TSPL2Generator) generateElement(elem *LabelElement, variables map[string]string) (string, error) {
	switch elem.Type {
	case "text":
		return g.generateText(elem, variables), nil
	case "barcode":
		return g.generateBarcode(elem, variables), nil
	case "block":
		return g.generateBlock(elem, variables), nil
	case "box":
		return g.generateBox(elem), nil
	default:
		return "", fmt.Errorf("unsupported element type: %s", elem.Type)
	}
}

func (g *TSPL2Generator) generateText(elem *LabelElement, variables map[string]string) string {
	content := escapeTSPLString(substituteVariables(elem.Content, variables))
	font := elem.Font
	if font == "" {
		font = "3"
	}
	xScale, yScale := scales(elem)
	return fmt.Sprintf(`TEXT %d,%d,"%s",%d,%d,%d,"%s"`, elem.X, elem.Y, font, elem.Rotation, xScale, yScale, content)
}

func (g *TSPL2Generator) generateBarcode(elem *LabelElement, variables map[string]string) string {
	content := escapeTSPLString(substituteVariables(elem.Content, variables))
	symbology := elem.Symbology
	if symbology == "" {
		symbology = "39"
	}
	height := elem.Height
	if height == 0 {
		height = 80
	}
	narrow := elem.Narrow
	if narrow == 0 {
		narrow = 2
	}
	wide := elem.Wide
	if wide == 0 {
		wide = narrow * 2
	}
	// human readable flag 0: the MRN is already printed above the bars
	return fmt.Sprintf(`BARCODE %d,%d,"%s",%d,0,%d,%d,%d,"%s"`,
		elem.X, elem.Y, symbology, height, elem.Rotation, narrow, wide, content)
}

func (g *TSPL2Generator) generateBlock(elem *LabelElement, variables map[string]string) string {
	content := escapeTSPLString(substituteVariables(elem.Content, variables))
	font := elem.Font
	if font == "" {
		font = "3"
	}
	xScale, yScale := scales(elem)
	return fmt.Sprintf(`BLOCK %d,%d,%d,%d,"%s",%d,%d,%d,"%s"`,
		elem.X, elem.Y, elem.Width, elem.Height, font, elem.Rotation, xScale, yScale, content)
}

func (g *TSPL2Generator) generateBox(elem *LabelElement) string {
	thickness := elem.Thickness
	if thickness == 0 {
		thickness = 1
	}
	return fmt.Sprintf("BOX %d,%d,%d,%d,%d", elem.X, elem.Y, elem.XEnd, elem.YEnd, thickness)
}

func scales(elem *LabelElement) (int, int) {
	xScale := elem.XScale
	if xScale == 0 {
		xScale = 1
	}
	yScale := elem.YScale
	if yScale == 0 {
		yScale = 1
	}
	return xScale, yScale
}

// escapeTSPLString uses the TSPL \["] escape for embedded quotes.
func escapeTSPLString(s string) string {
	s = strings.ReplaceAll(s, `"`, `\["]`)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
