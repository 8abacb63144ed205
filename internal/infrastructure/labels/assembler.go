package labels

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"

	"github.com/Upcasted/optimus-courier/pkg/logging"
)

// Label page geometry in millimetres (A6-ish thermal label, landscape)
const (
	PageWidthMM  = 152.0
	PageHeightMM = 101.0

	pointsToMM = 25.4 / 72.0
	pageBox    = "/MediaBox"
)

// ErrNoPages is returned when no source contributed a single page
var ErrNoPages = errors.New("no label pages to assemble")

// Source is one label PDF to place
type Source struct {
	Name string
	Data []byte
}

// Document is an assembled label PDF
type Document struct {
	Data  []byte
	Pages int
}

// Assembler places every page of every source on its own label-sized page
type Assembler struct {
	logger *logging.Logger
}

// NewAssembler creates an Assembler
func NewAssembler(logger *logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{logger: logger.WithComponent("label-assembler")}
}

// Assemble imports all pages of the sources in order. Pages keep their size.
// Sources that fail to parse are skipped.
func (a *Assembler) Assemble(sources []Source) (*Document, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	imp := gofpdi.NewImporter()

	for _, src := range sources {
		pages, err := a.importSource(pdf, imp, src)
		if err != nil {
			a.logger.WithError(err).Warn("Skipping unreadable label", "source", src.Name, "pagesPlaced", pages)
			continue
		}
	}

	if pdf.PageCount() == 0 {
		return nil, ErrNoPages
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to assemble labels: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write assembled labels: %w", err)
	}

	return &Document{Data: buf.Bytes(), Pages: pdf.PageCount()}, nil
}

// importSource places the pages of one source. The importer panics on broken input.
func (a *Assembler) importSource(pdf *fpdf.Fpdf, imp *gofpdi.Importer, src Source) (placed int, err error) {
	if len(src.Data) == 0 {
		return 0, errors.New("empty pdf")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid pdf: %v", r)
		}
	}()

	// the importer keys sources by the address of the ReadSeeker variable
	rs := io.ReadSeeker(bytes.NewReader(src.Data))

	tpl := imp.ImportPageFromStream(pdf, &rs, 1, pageBox)
	sizes := imp.GetPageSizes()
	if len(sizes) == 0 {
		return 0, errors.New("pdf has no pages")
	}

	for page := 1; page <= len(sizes); page++ {
		if page > 1 {
			tpl = imp.ImportPageFromStream(pdf, &rs, page, pageBox)
		}
		w, h := pageSizeMM(sizes, page)
		placePage(pdf, imp, tpl, w, h)
		placed++
	}

	return placed, nil
}

func pageSizeMM(sizes map[int]map[string]map[string]float64, page int) (float64, float64) {
	box, ok := sizes[page][pageBox]
	if !ok {
		return PageWidthMM, PageHeightMM
	}
	return box["w"] * pointsToMM, box["h"] * pointsToMM
}

// placePage adds a label page and draws the template unscaled, flush right and vertically centred
func placePage(pdf *fpdf.Fpdf, imp *gofpdi.Importer, tpl int, w, h float64) {
	pdf.AddPageFormat("L", fpdf.SizeType{Wd: PageHeightMM, Ht: PageWidthMM})

	x := PageWidthMM - w
	y := (PageHeightMM - h) / 2
	imp.UseImportedTemplate(pdf, tpl, x, y, w, h)
}

// PageSizes reads the MediaBox of every page of a PDF, in millimetres
func PageSizes(data []byte) (sizes []fpdf.SizeType, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid pdf: %v", r)
		}
	}()

	scratch := fpdf.New("P", "mm", "A4", "")
	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))
	imp.ImportPageFromStream(scratch, &rs, 1, pageBox)

	raw := imp.GetPageSizes()
	for page := 1; page <= len(raw); page++ {
		w, h := pageSizeMM(raw, page)
		sizes = append(sizes, fpdf.SizeType{Wd: w, Ht: h})
	}
	return sizes, nil
}
