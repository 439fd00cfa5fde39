package xmlmap

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrSyntax is wrapped by every structural decoding failure.
var ErrSyntax = errors.New("xmlmap: malformed document")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type frame struct {
	name   string
	fields *Map
	text   strings.Builder
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if f.fields.Len() == 0 {
		if text == "" {
			return nil
		}
		return text
	}
	if text != "" {
		f.fields.add(TextKey, text)
	}
	return f.fields
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Map, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single XML document from r. The returned map has exactly one
// key, the qualified name of the root element.
func Decode(r io.Reader) (*Map, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	d := xml.NewDecoder(br)
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity

	doc := &frame{fields: newMap()}
	stack := []*frame{doc}
	rootClosed := false

	for {
		// RawToken keeps namespace prefixes as written ("amp:report"), so
		// element matching is checked by hand below.
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return nil, fmt.Errorf("%w: content after root element <%s>", ErrSyntax, qualifiedName(t.Name))
			}
			f := &frame{name: qualifiedName(t.Name), fields: newMap()}
			for _, attr := range t.Attr {
				f.fields.add("@"+qualifiedName(attr.Name), attr.Value)
			}
			stack = append(stack, f)

		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 1 {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrSyntax, name)
			}
			f := stack[len(stack)-1]
			if f.name != name {
				return nil, fmt.Errorf("%w: element <%s> closed by </%s>", ErrSyntax, f.name, name)
			}
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].fields.add(f.name, f.value())
			if len(stack) == 1 {
				rootClosed = true
			}

		case xml.CharData:
			if len(stack) == 1 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside root element", ErrSyntax)
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if len(stack) > 1 {
		return nil, fmt.Errorf("%w: unexpected end of document inside <%s>", ErrSyntax, stack[len(stack)-1].name)
	}
	if !rootClosed {
		return nil, fmt.Errorf("%w: no root element", ErrSyntax)
	}
	return doc.fields, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
