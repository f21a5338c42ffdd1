package render

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions configures PDF output.
type PDFOptions struct {
	// FontPath is a UTF-8 TrueType font. Without it the core Helvetica font
	// is used, which only covers cp1252 text.
	FontPath string
}

var (
	imageLineRe = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)$`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// WritePDF renders the Markdown produced by Markdown into a PDF at outPath.
// Links stay clickable; images are listed as links rather than embedded.
func WritePDF(markdown string, outPath string, opts PDFOptions) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		ttf, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return fmt.Errorf("pdf font: %w", err)
		}
		pdf.AddUTF8FontFromBytes("body", "", ttf)
		pdf.AddUTF8FontFromBytes("body", "B", ttf)
		family = "body"
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf font: %w", err)
	}
	pdf.SetFont(family, "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			pdf.Ln(3)
			continue
		}
		if strings.HasPrefix(s, "#") {
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 16.0
			if i >= 2 {
				size = 13.0
			}
			pdf.SetFont(family, "B", size)
			pdf.MultiCell(0, 8, tr(text), "", "L", false)
			pdf.SetFont(family, "", 11)
			continue
		}
		if strings.HasPrefix(s, `\#`) {
			pdf.MultiCell(0, 5, tr(s[1:]), "", "L", false)
			continue
		}
		if m := imageLineRe.FindStringSubmatch(s); m != nil {
			pdf.WriteLinkString(5, tr("[image] "+m[1]), m[2])
			pdf.Ln(6)
			continue
		}
		parts := linkRe.FindAllStringSubmatchIndex(s, -1)
		if len(parts) == 0 {
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
			continue
		}
		pos := 0
		for _, m := range parts {
			if m[0] > pos {
				pdf.Write(5, tr(s[pos:m[0]]))
			}
			pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
			pos = m[1]
		}
		if pos < len(s) {
			pdf.Write(5, tr(s[pos:]))
		}
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}
