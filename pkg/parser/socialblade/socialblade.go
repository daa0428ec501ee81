package socialblade

import (
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Class of the realtime odometer widget.
const DefaultSelector = ".odometer-value"

var (
	ErrNotFound = errors.New("counter element not found")
	ErrNotCount = errors.New("counter element is not a number")
)

// Parses subscriber count from a realtime counter page.
type Parser struct {
	Selector string
}

func (p *Parser) Parse(payload io.Reader) (uint64, error) {
	// Load the HTML document
	doc, err := goquery.NewDocumentFromReader(payload)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load document")
	}

	selector := p.Selector
	if selector == "" {
		selector = DefaultSelector
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0, errors.WithMessagef(ErrNotFound, "selector %s", selector)
	}

	return ParseCount(sel.Text())
}

// Parses displayed count, e.g. "1,234,567".
func ParseCount(text string) (uint64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', ' ', '\u00a0', '\n', '\t':
			return -1
		}
		return r
	}, text)

	if cleaned == "" {
		return 0, errors.WithMessagef(ErrNotCount, "%q", text)
	}

	count, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil {
		return 0, errors.WithMessagef(ErrNotCount, "%q", text)
	}

	return count, nil
}
