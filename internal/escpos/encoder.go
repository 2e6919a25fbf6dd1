package escpos

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

const defaultCurrencyCode = "Rs"

// Encoder serializes a receipt and printer profile into the exact byte
// sequence an ESC/POS-class thermal printer consumes. It is deterministic
// and never fails for well-typed input: malformed numbers are coerced to 0
// at the boundary.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Receipt builds the text-protocol byte stream for one receipt.
func (e *Encoder) Receipt(r *pos.ReceiptData, p *pos.PrinterProfile) []byte {
	rc := *r
	rc.Normalize()
	r = &rc

	cols := p.Columns()
	code := r.CurrencyCode
	if code == "" {
		code = defaultCurrencyCode
	}

	var buf bytes.Buffer
	buf.Write(cmdInit)
	if p.TextEncoding != EncodingUTF8 && p.CodePage >= 0 && p.CodePage <= 255 {
		buf.Write(codePageSelect(p.CodePage))
	}

	buf.Write(cmdAlignCenter)
	buf.Write(cmdSizeDouble)
	buf.Write(cmdBoldOn)
	// Double-width glyphs halve the usable columns.
	e.writeLines(&buf, p, wrapText(r.StoreName, cols/2))
	buf.Write(cmdSizeNormal)
	buf.Write(cmdBoldOff)

	if r.Address != "" {
		e.writeLines(&buf, p, wrapText(r.Address, cols))
	}
	if r.Phone != "" {
		e.writeLine(&buf, p, r.Phone)
	}

	buf.Write(cmdAlignLeft)
	e.writeLine(&buf, p, divider(cols))
	if r.ReceiptNumber != "" {
		e.writeLine(&buf, p, twoColumn("Receipt #", r.ReceiptNumber, cols))
	}
	if r.Timestamp != "" {
		e.writeLine(&buf, p, twoColumn("Date", r.Timestamp, cols))
	}
	if r.CustomerName != "" {
		e.writeLine(&buf, p, twoColumn("Customer", r.CustomerName, cols))
	}
	e.writeLine(&buf, p, divider(cols))

	for _, item := range r.Items {
		for _, line := range wrapText(item.Name, cols) {
			e.writeLine(&buf, p, line)
		}
		qty := fmt.Sprintf("  %s x %s", trimFloat(item.Quantity), money(code, item.UnitPrice))
		total := money(code, item.Quantity*item.UnitPrice)
		e.writeLine(&buf, p, twoColumn(qty, total, cols))
	}

	e.writeLine(&buf, p, divider(cols))
	e.writeLine(&buf, p, twoColumn("Subtotal", money(code, r.Subtotal), cols))
	if r.Tax != 0 {
		e.writeLine(&buf, p, twoColumn("Tax", money(code, r.Tax), cols))
	}
	buf.Write(cmdBoldOn)
	e.writeLine(&buf, p, twoColumn("Total", money(code, r.Total), cols))
	buf.Write(cmdBoldOff)

	// Zero or absent optional amounts print nothing. A receipt with no
	// change due carries no Change line at all.
	if r.AmountPaid != 0 {
		e.writeLine(&buf, p, twoColumn("Paid", money(code, r.AmountPaid), cols))
	}
	if r.ChangeAmount != 0 {
		e.writeLine(&buf, p, twoColumn("Change", money(code, r.ChangeAmount), cols))
	}
	if r.RemainingBalance != 0 {
		e.writeLine(&buf, p, twoColumn("Balance", money(code, r.RemainingBalance), cols))
	}
	if r.CreditUsed != 0 {
		e.writeLine(&buf, p, twoColumn("Credit", money(code, r.CreditUsed), cols))
	}
	if r.PaymentMethod != "" {
		e.writeLine(&buf, p, twoColumn("Payment", r.PaymentMethod, cols))
	}

	e.writeLine(&buf, p, divider(cols))
	buf.Write(cmdAlignCenter)
	if r.FooterText != "" {
		e.writeLines(&buf, p, wrapText(r.FooterText, cols))
	}
	for _, line := range r.ExtraFooterLines {
		e.writeLines(&buf, p, wrapText(line, cols))
	}

	e.finish(&buf, p)
	return buf.Bytes()
}

// Bitmap wraps a pre-rasterized image between reset, centering and cut. The
// raster bytes are opaque: the rendering collaborator produced a complete
// GS v 0 block sized for the paper width.
func (e *Encoder) Bitmap(image []byte, p *pos.PrinterProfile) []byte {
	var buf bytes.Buffer
	buf.Write(cmdInit)
	buf.Write(cmdAlignCenter)
	buf.Write(image)
	buf.Write(cmdLineFeed)
	e.finish(&buf, p)
	return buf.Bytes()
}

// RequiresRaster reports whether the receipt's content uses a character
// repertoire the single-byte text protocol cannot represent. The caller
// combines this with the profile's bitmap_fallback opt-in.
func (e *Encoder) RequiresRaster(r *pos.ReceiptData) bool {
	if needsRaster(r.StoreName) || needsRaster(r.CustomerName) ||
		needsRaster(r.FooterText) || needsRaster(r.PaymentMethod) {
		return true
	}
	for _, item := range r.Items {
		if needsRaster(item.Name) {
			return true
		}
	}
	for _, line := range r.ExtraFooterLines {
		if needsRaster(line) {
			return true
		}
	}
	return false
}

func (e *Encoder) writeLine(buf *bytes.Buffer, p *pos.PrinterProfile, line string) {
	buf.Write(encodeText(line, p.TextEncoding))
	buf.Write(cmdLineFeed)
}

func (e *Encoder) writeLines(buf *bytes.Buffer, p *pos.PrinterProfile, lines []string) {
	for _, line := range lines {
		e.writeLine(buf, p, line)
	}
}

func (e *Encoder) finish(buf *bytes.Buffer, p *pos.PrinterProfile) {
	buf.Write(cmdLineFeed)
	buf.Write(cmdLineFeed)
	buf.Write(cmdLineFeed)
	switch p.CutMode {
	case pos.CutFull:
		buf.Write(cmdCutFull)
	case pos.CutNone:
	default:
		buf.Write(cmdCutPartial)
	}
	if p.DrawerKick {
		buf.Write(cmdDrawerKick)
	}
}

// money renders a fixed-point integer currency string, "Rs 150".
func money(code string, v float64) string {
	return fmt.Sprintf("%s %.0f", code, v)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func divider(width int) string {
	return strings.Repeat("-", width)
}

// twoColumn lays out a label on the left and an amount right-aligned into
// the remaining width. Only the label is ever truncated, and only when the
// amount alone would not fit beside it.
func twoColumn(label, amount string, width int) string {
	lr := []rune(label)
	ar := []rune(amount)
	if len(ar) >= width {
		return string(ar[:width])
	}
	space := width - len(ar)
	if len(lr) > space-1 {
		if space-1 < 0 {
			lr = nil
		} else {
			lr = lr[:space-1]
		}
	}
	return string(lr) + strings.Repeat(" ", width-len(ar)-len(lr)) + string(ar)
}

// wrapText word-wraps s to width columns. Words longer than the width are
// hard-split character by character; no character is dropped.
func wrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, word := range words {
		for len([]rune(word)) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		if word == "" {
			continue
		}
		switch {
		case line == "":
			line = word
		case len([]rune(line))+1+len([]rune(word)) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
