package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/strayworks/bracketbot/brackets"
)

// ErrUnsupportedBracketSize is returned when the projection does not describe
// a renderable bracket.
var ErrUnsupportedBracketSize = errors.New("bracket size cannot be rendered")

const (
	imgWidth  = 1800
	imgHeight = 900

	marginX     = 130.0
	marginY     = 80.0
	boxHeight   = 46.0
	lineWidth   = 3.0
	markPad     = 4.0
	fontSize    = 16.0
	textInset   = 10.0
	champTail   = 60.0
	champFactor = 1.2
)

var (
	pink       = drawing.Color{R: 255, G: 0, B: 120, A: 255}
	gold       = drawing.Color{R: 255, G: 204, B: 120, A: 255}
	white      = drawing.Color{R: 240, G: 240, B: 240, A: 255}
	background = drawing.Color{R: 5, G: 5, B: 8, A: 255}
)

type box struct {
	left, top, right, bottom float64
}

func (b box) centerY() float64 { return (b.top + b.bottom) / 2 }

// Bracket renders a projection to a PNG image. The output is a pure function
// of the projection, so rendering the same bracket state twice yields
// identical bytes.
func Bracket(proj *brackets.Projection) ([]byte, error) {
	n := len(proj.Seeds)
	if !brackets.ValidSize(n) {
		return nil, fmt.Errorf("%w: %d seeds", ErrUnsupportedBracketSize, n)
	}
	numRounds := brackets.NumRounds(n)
	if len(proj.Columns) != numRounds+1 {
		return nil, fmt.Errorf("%w: expected %d columns, got %d", ErrUnsupportedBracketSize, numRounds+1, len(proj.Columns))
	}

	r, err := chart.PNG(imgWidth, imgHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	r.SetFont(font)
	r.SetFontSize(fontSize)
	r.SetFontColor(white)

	// Background fill.
	r.SetFillColor(background)
	r.MoveTo(0, 0)
	r.LineTo(imgWidth, 0)
	r.LineTo(imgWidth, imgHeight)
	r.LineTo(0, imgHeight)
	r.Close()
	r.Fill()

	totalSpan := float64(imgHeight) - 2*marginY
	usableWidth := float64(imgWidth) - 2*marginX
	colStep := usableWidth / float64(numRounds+1)
	boxWidth := colStep * 0.75

	// Participant columns. The final winner is not boxed here; it gets the
	// champion box instead.
	columns := make([][]box, numRounds)
	for c := 0; c < numRounds; c++ {
		count := n >> uint(c)
		colX := marginX + float64(c)*colStep
		gap := totalSpan / float64(count)

		columns[c] = make([]box, count)
		for i := 0; i < count; i++ {
			cy := marginY + gap*(float64(i)+0.5)
			b := box{
				left:   colX,
				top:    cy - boxHeight/2,
				right:  colX + boxWidth,
				bottom: cy + boxHeight/2,
			}
			columns[c][i] = b

			strokeRect(r, b, pink)
			if name := proj.Columns[c][i]; name != nil {
				drawLabel(r, b, *name, boxWidth)
			}
		}
	}

	// Champion box, centered between the two finalist boxes.
	lastCol := columns[numRounds-1]
	championY := (lastCol[0].centerY() + lastCol[len(lastCol)-1].centerY()) / 2
	champ := box{
		left:   marginX + float64(numRounds)*colStep,
		top:    championY - boxHeight/2,
		right:  marginX + float64(numRounds)*colStep + boxWidth*champFactor,
		bottom: championY + boxHeight/2,
	}
	strokeRect(r, champ, gold)

	champLabel := "Champion"
	if proj.Champion != nil {
		champLabel = "Champion: " + *proj.Champion
	}
	drawLabel(r, champ, champLabel, boxWidth*champFactor)
	strokeLine(r, champ.right, championY, champ.right+champTail, championY, gold)

	// Elbow connectors between rounds.
	for c := 0; c < numRounds-1; c++ {
		children := columns[c]
		parents := columns[c+1]
		for j, p := range parents {
			c1 := children[2*j]
			c2 := children[2*j+1]
			midX := (c1.right + p.left) / 2

			strokeLine(r, c1.right, c1.centerY(), midX, c1.centerY(), pink)
			strokeLine(r, c2.right, c2.centerY(), midX, c2.centerY(), pink)
			strokeLine(r, midX, c1.centerY(), midX, c2.centerY(), pink)
			strokeLine(r, midX, p.centerY(), p.left, p.centerY(), pink)
		}
	}

	// Final round into the champion box.
	top := lastCol[0]
	bottom := lastCol[len(lastCol)-1]
	midX := (top.right + champ.left) / 2
	strokeLine(r, top.right, top.centerY(), midX, top.centerY(), pink)
	strokeLine(r, bottom.right, bottom.centerY(), midX, bottom.centerY(), pink)
	strokeLine(r, midX, top.centerY(), midX, bottom.centerY(), pink)
	strokeLine(r, midX, championY, champ.left, championY, pink)

	// Cross out eliminated participants.
	for _, slot := range proj.Eliminated {
		if slot.Column < 0 || slot.Column >= len(columns) {
			continue
		}
		col := columns[slot.Column]
		if slot.Index < 0 || slot.Index >= len(col) {
			continue
		}
		b := col[slot.Index]
		strokeLine(r, b.left+markPad, b.top+markPad, b.right-markPad, b.bottom-markPad, pink)
		strokeLine(r, b.left+markPad, b.bottom-markPad, b.right-markPad, b.top+markPad, pink)
	}

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func strokeRect(r chart.Renderer, b box, color drawing.Color) {
	r.SetStrokeColor(color)
	r.SetStrokeWidth(lineWidth)
	r.MoveTo(int(b.left), int(b.top))
	r.LineTo(int(b.right), int(b.top))
	r.LineTo(int(b.right), int(b.bottom))
	r.LineTo(int(b.left), int(b.bottom))
	r.Close()
	r.Stroke()
}

func strokeLine(r chart.Renderer, x1, y1, x2, y2 float64, color drawing.Color) {
	r.SetStrokeColor(color)
	r.SetStrokeWidth(lineWidth)
	r.MoveTo(int(x1), int(y1))
	r.LineTo(int(x2), int(y2))
	r.Stroke()
}

// drawLabel writes text inside a box, truncating with an ellipsis when the
// name does not fit.
func drawLabel(r chart.Renderer, b box, label string, maxWidth float64) {
	fit := truncateToWidth(r, label, maxWidth-2*textInset)
	tb := r.MeasureText(fit)
	y := int(b.centerY()) + tb.Height()/2
	r.Text(fit, int(b.left+textInset), y)
}

func truncateToWidth(r chart.Renderer, label string, maxWidth float64) string {
	if float64(r.MeasureText(label).Width()) <= maxWidth {
		return label
	}
	runes := []rune(label)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if float64(r.MeasureText(candidate).Width()) <= maxWidth {
			return candidate
		}
	}
	return "…"
}
