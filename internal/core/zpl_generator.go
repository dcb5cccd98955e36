package core

import (
	"fmt"
	"strings"
)

// ZPLGenerator emits Zebra label markup. Text fields use ^FH so control
// characters in patient data cannot terminate a field early.
type ZPLGenerator struct{}

func NewZPLGenerator() *ZPLGenerator {
	return &ZPLGenerator{}
}

func (g *ZPLGenerator) Generate(layout *LabelLayout, variables map[string]string) (string, error) {
	var sb strings.Builder
	dpi := layout.dpi()

	sb.WriteString("^XA\n")
	sb.WriteString("^CI28\n")
	sb.WriteString(fmt.Sprintf("^PW%d\n", mmToDots(layout.WidthMM, dpi)))
	sb.WriteString(fmt.Sprintf("^LL%d\n", mmToDots(layout.HeightMM, dpi)))
	sb.WriteString("^LH0,0\n")

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

	sb.WriteString("^PQ1\n")
	sb.WriteString("^XZ\n")
	return sb.String(), nil
}

func (g *ZPLGenerator) generateElement(elem *LabelElement, variables map[string]string) (string, error) {
	switch elem.Type {
	case "text":
		return g.generateText(elem, variables), nil
	case "block":
		return g.generateBlock(elem, variables), nil
	case "barcode":
		return g.generateBarcode(elem, variables)
	case "box":
		return g.generateBox(elem), nil
	default:
		return "", fmt.Errorf("unsupported element type: %s", elem.Type)
	}
}

func (g *ZPLGenerator) font(elem *LabelElement) string {
	w, h := fontCell(elem.Font)
	xScale, yScale := scales(elem)
	return fmt.Sprintf("^A0%s,%d,%d", zplOrientation(elem.Rotation), h*yScale, w*xScale)
}

func (g *ZPLGenerator) generateText(elem *LabelElement, variables map[string]string) string {
	content := escapeZPLField(substituteVariables(elem.Content, variables))
	return fmt.Sprintf("^FO%d,%d%s^FH^FD%s^FS", elem.X, elem.Y, g.font(elem), content)
}

func (g *ZPLGenerator) generateBlock(elem *LabelElement, variables map[string]string) string {
	content := escapeZPLField(substituteVariables(elem.Content, variables))
	lines := elem.MaxLines
	if lines == 0 {
		lines = 2
	}
	return fmt.Sprintf("^FO%d,%d%s^FB%d,%d,0,L^FH^FD%s^FS", elem.X, elem.Y, g.font(elem), elem.Width, lines, content)
}

func (g *ZPLGenerator) generateBarcode(elem *LabelElement, variables map[string]string) (string, error) {
	content := escapeZPLField(substituteVariables(elem.Content, variables))
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
	ratio := float64(wide) / float64(narrow)

	var symbol string
	switch elem.Symbology {
	case "", "39":
		symbol = fmt.Sprintf("^B3%s,N,%d,N,N", zplOrientation(elem.Rotation), height)
	case "128":
		symbol = fmt.Sprintf("^BC%s,%d,N,N,N", zplOrientation(elem.Rotation), height)
	default:
		return "", fmt.Errorf("unsupported symbology: %s", elem.Symbology)
	}
	return fmt.Sprintf("^FO%d,%d^BY%d,%.1f,%d%s^FH^FD%s^FS", elem.X, elem.Y, narrow, ratio, height, symbol, content), nil
}

func (g *ZPLGenerator) generateBox(elem *LabelElement) string {
	thickness := elem.Thickness
	if thickness == 0 {
		thickness = 1
	}
	return fmt.Sprintf("^FO%d,%d^GB%d,%d,%d^FS", elem.X, elem.Y, elem.XEnd-elem.X, elem.YEnd-elem.Y, thickness)
}

func zplOrientation(rotation int) string {
	switch rotation {
	case 90:
		return "R"
	case 180:
		return "I"
	case 270:
		return "B"
	default:
		return "N"
	}
}

// escapeZPLField hex-encodes the characters that ZPL treats as command
// prefixes, using the default ^FH indicator '_'.
func escapeZPLField(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '_':
			sb.WriteString("_5F")
		case '^':
			sb.WriteString("_5E")
		case '~':
			sb.WriteString("_7E")
		case '\r', '\n':
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
