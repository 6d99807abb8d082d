package ocr

import "strings"

// LowConfidenceThreshold marks blocks whose recognition confidence is
// weak enough to warrant review downstream.
const LowConfidenceThreshold = 0.7

// TextBlock is a single span of recognized text with spatial information.
// Bounding box coordinates are normalized to the 0-1 range relative to
// page size, so positions are comparable across document resolutions.
type TextBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
	Page       int     `json:"page"`
}

// CenterX returns the horizontal center of the block.
func (b TextBlock) CenterX() float64 { return (b.XMin + b.XMax) / 2 }

// CenterY returns the vertical center of the block.
func (b TextBlock) CenterY() float64 { return (b.YMin + b.YMax) / 2 }

// Width returns the normalized width of the block.
func (b TextBlock) Width() float64 { return b.XMax - b.XMin }

// Height returns the normalized height of the block.
func (b TextBlock) Height() float64 { return b.YMax - b.YMin }

// BoundingBox returns the block's box as a standalone value.
func (b TextBlock) BoundingBox() BoundingBox {
	return BoundingBox{XMin: b.XMin, YMin: b.YMin, XMax: b.XMax, YMax: b.YMax, Page: b.Page}
}

// BoundingBox locates an extracted value on a page. Coordinates follow
// the same normalized 0-1 convention as TextBlock.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
	Page int     `json:"page"`
}

// Page holds recognition output for a single page.
type Page struct {
	Number int         `json:"page_number"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Blocks []TextBlock `json:"blocks"`
}

// Result is the complete recognition output for a document.
type Result struct {
	Pages []Page `json:"pages"`
}

// AllBlocks flattens blocks across all pages, in page order.
func (r *Result) AllBlocks() []TextBlock {
	var out []TextBlock
	for _, p := range r.Pages {
		out = append(out, p.Blocks...)
	}
	return out
}

// FullText concatenates all block text in reading order, one block per line.
func (r *Result) FullText() string {
	var sb strings.Builder
	first := true
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			if !first {
				sb.WriteByte('\n')
			}
			sb.WriteString(b.Text)
			first = false
		}
	}
	return sb.String()
}

// TotalBlocks counts blocks across all pages.
func (r *Result) TotalBlocks() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Blocks)
	}
	return n
}

// AvgConfidence averages block confidence across the document.
// A document with no blocks has confidence 0.
func (r *Result) AvgConfidence() float64 {
	sum, n := 0.0, 0
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			sum += b.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LowConfidenceBlocks returns the blocks below LowConfidenceThreshold.
func (r *Result) LowConfidenceBlocks() []TextBlock {
	var out []TextBlock
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			if b.Confidence < LowConfidenceThreshold {
				out = append(out, b)
			}
		}
	}
	return out
}
